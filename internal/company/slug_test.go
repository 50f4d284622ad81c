package company

import (
	"regexp"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"基本", "Acme Robots", "acme-robots"},
		{"記号の連続", "Acme -- Robots!!", "acme-robots"},
		{"前後の記号", "  ...Acme Robots...  ", "acme-robots"},
		{"数字", "Web3 Labs 2024", "web3-labs-2024"},
		{"非ASCII", "Café Déjà Vu", "caf-d-j-vu"},
		{"記号のみ", "!!!", ""},
		{"空", "", ""},
		{"既にスラッグ", "acme-robots", "acme-robots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugify_Properties(t *testing.T) {
	valid := regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*)?$`)
	inputs := []string{
		"Acme Robots", "ÅNGSTRÖM 北京 Labs", "--x--", "a_b.c/d\\e", "UPPER lower 123",
		"tab\tand\nnewline", "emoji 🚀 rocket", "  ", "-", "x",
	}

	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q -> %q", in, once, twice)
		}
		if !valid.MatchString(once) {
			t.Errorf("Slugify(%q) = %q has invalid characters or hyphen placement", in, once)
		}
	}
}

func TestOverviewPath(t *testing.T) {
	if got := OverviewPath("acme-robots"); got != "/raise_money/acme-robots/overview" {
		t.Errorf("OverviewPath = %q", got)
	}
}
