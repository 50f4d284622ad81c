package company

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/venturex/internal/model"
	"github.com/hitoshi/venturex/internal/security"
)

type noopSanitizer struct{}

func (noopSanitizer) Sanitize(rawHTML string) string { return rawHTML }

type mockURLGuard struct {
	validateFn func(rawURL string) error
}

func (g *mockURLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *mockURLGuard) ValidateURL(rawURL string) error {
	return g.validateFn(rawURL)
}

func strPtr(s string) *string { return &s }

func TestService_SaveBasics_CreatesAndNormalizes(t *testing.T) {
	repo := newMemCompanyRepo()
	svc := NewService(repo, noopSanitizer{}, security.NewURLGuard(), nil, nil)

	saved, err := svc.SaveBasics(context.Background(), "u1", model.CompanyBasics{
		Name:       strPtr("  Acme Robots  "),
		Website:    strPtr("https://acme.example"),
		Industries: []string{" robotics ", "", "robotics", "ai"},
		Tags:       []string{"hardware"},
		RaiseWant:  strPtr("1M"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Name != "Acme Robots" {
		t.Errorf("Name = %q, want trimmed", saved.Name)
	}
	if saved.StartupName != "acme-robots" {
		t.Errorf("StartupName = %q, want acme-robots", saved.StartupName)
	}
	if strings.Join(saved.Industries, ",") != "robotics,ai" {
		t.Errorf("Industries = %v, want [robotics ai]", saved.Industries)
	}
	if saved.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestService_SaveBasics_PartialUpdateKeepsOtherFields(t *testing.T) {
	repo := newMemCompanyRepo()
	repo.add(model.Company{
		ID: "c1", IdentityID: "u1", Name: "Acme", StartupName: "acme",
		Location: "Berlin", Industries: []string{"robotics"},
	})
	svc := NewService(repo, noopSanitizer{}, nil, nil, nil)

	saved, err := svc.SaveBasics(context.Background(), "u1", model.CompanyBasics{OneLiner: strPtr("Robots for everyone")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != "c1" {
		t.Errorf("ID = %q, want c1", saved.ID)
	}
	if saved.Location != "Berlin" || len(saved.Industries) != 1 {
		t.Errorf("untouched fields changed: %+v", saved)
	}
	if saved.OneLiner != "Robots for everyone" {
		t.Errorf("OneLiner = %q", saved.OneLiner)
	}
}

func TestService_SaveBasics_RenameRecomputesSlug(t *testing.T) {
	repo := newMemCompanyRepo()
	repo.add(model.Company{ID: "c1", IdentityID: "u1", Name: "Acme", StartupName: "acme"})
	svc := NewService(repo, noopSanitizer{}, nil, nil, nil)

	saved, err := svc.SaveBasics(context.Background(), "u1", model.CompanyBasics{Name: strPtr("Acme Labs")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.StartupName != "acme-labs" {
		t.Errorf("StartupName = %q, want acme-labs", saved.StartupName)
	}
}

func TestService_SaveBasics_CollisionKeepsBoth(t *testing.T) {
	repo := newMemCompanyRepo()
	repo.add(model.Company{ID: "c0", IdentityID: "u0", Name: "Acme", StartupName: "acme"})
	rec := &mockRecorder{}
	svc := NewService(repo, noopSanitizer{}, nil, nil, rec)

	if _, err := svc.SaveBasics(context.Background(), "u1", model.CompanyBasics{Name: strPtr("ACME")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.slugCollisions != 1 {
		t.Errorf("slugCollisions = %d, want 1", rec.slugCollisions)
	}
	got, _ := svc.Get(context.Background(), "acme", "")
	if got.ID != "c0" {
		t.Errorf("Get by slug returned %q, want oldest c0", got.ID)
	}
}

func TestService_SaveBasics_RejectsBlockedWebsite(t *testing.T) {
	svc := NewService(newMemCompanyRepo(), noopSanitizer{}, security.NewURLGuard(), nil, nil)

	_, err := svc.SaveBasics(context.Background(), "u1", model.CompanyBasics{Website: strPtr("http://169.254.169.254/latest")})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidURL)
}

func TestService_SaveBasics_RejectsOverLongFields(t *testing.T) {
	tests := []struct {
		name   string
		basics model.CompanyBasics
	}{
		{"name", model.CompanyBasics{Name: strPtr(strings.Repeat("a", model.MaxNameLength+1))}},
		{"location", model.CompanyBasics{Location: strPtr(strings.Repeat("b", model.MaxLocationLength+1))}},
		{"oneLiner", model.CompanyBasics{OneLiner: strPtr(strings.Repeat("c", model.MaxOneLinerLength+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemCompanyRepo()
			svc := NewService(repo, noopSanitizer{}, nil, nil, nil)

			_, err := svc.SaveBasics(context.Background(), "u1", tt.basics)
			assertAPIErrorCode(t, err, model.ErrCodeInvalidField)
			if c, _ := repo.FindByIdentityID(context.Background(), "u1"); c != nil {
				t.Error("over-long basics must not be stored")
			}
		})
	}
}

func TestService_SaveBasics_LengthCountsCharacters(t *testing.T) {
	svc := NewService(newMemCompanyRepo(), noopSanitizer{}, nil, nil, nil)

	// マルチバイト文字でも上限ちょうどなら受け付ける
	name := strings.Repeat("株", model.MaxNameLength)
	if _, err := svc.SaveBasics(context.Background(), "u1", model.CompanyBasics{Name: &name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestService_SaveBasics_AcceptsFreeTextRaiseTargets(t *testing.T) {
	svc := NewService(newMemCompanyRepo(), noopSanitizer{}, nil, nil, nil)

	want := "USD 1,500,000 through a SAFE note with a 20% discount and an 8M valuation cap"
	saved, err := svc.SaveBasics(context.Background(), "u1", model.CompanyBasics{
		Name:      strPtr("Acme"),
		RaiseWant: strPtr(want),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Raise.Want != want {
		t.Errorf("Raise.Want = %q, want %q", saved.Raise.Want, want)
	}
}

func TestService_SaveBasics_MissingIdentity(t *testing.T) {
	svc := NewService(newMemCompanyRepo(), noopSanitizer{}, nil, nil, nil)

	_, err := svc.SaveBasics(context.Background(), "", model.CompanyBasics{})
	assertAPIErrorCode(t, err, model.ErrCodeMissingIdentity)
}

func TestService_GetByIdentity_NotFound(t *testing.T) {
	svc := NewService(newMemCompanyRepo(), noopSanitizer{}, nil, nil, nil)

	_, err := svc.GetByIdentity(context.Background(), "u1")
	assertAPIErrorCode(t, err, model.ErrCodeCompanyNotFound)
}

func TestService_Get(t *testing.T) {
	repo := newMemCompanyRepo()
	repo.add(model.Company{ID: "7f1c1f0e-0000-4000-8000-000000000001", IdentityID: "u1", Name: "Acme", StartupName: "acme"})
	svc := NewService(repo, noopSanitizer{}, nil, nil, nil)
	ctx := context.Background()

	t.Run("by slug", func(t *testing.T) {
		c, err := svc.Get(ctx, "acme", "")
		if err != nil || c.Name != "Acme" {
			t.Fatalf("Get = %+v, %v", c, err)
		}
	})
	t.Run("by id", func(t *testing.T) {
		c, err := svc.Get(ctx, "", "7f1c1f0e-0000-4000-8000-000000000001")
		if err != nil || c.Name != "Acme" {
			t.Fatalf("Get = %+v, %v", c, err)
		}
	})
	t.Run("unknown slug", func(t *testing.T) {
		_, err := svc.Get(ctx, "nope", "")
		assertAPIErrorCode(t, err, model.ErrCodeCompanyNotFound)
	})
	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.Get(ctx, "", "not-a-uuid")
		assertAPIErrorCode(t, err, model.ErrCodeCompanyNotFound)
	})
	t.Run("neither", func(t *testing.T) {
		_, err := svc.Get(ctx, "", "")
		assertAPIErrorCode(t, err, model.ErrCodeMissingField)
	})
}

func TestService_List_ClampsPaging(t *testing.T) {
	tests := []struct {
		name      string
		in        model.CompanyListFilter
		wantLimit int
		wantSkip  int
	}{
		{"defaults", model.CompanyListFilter{}, 12, 0},
		{"over max", model.CompanyListFilter{Limit: 500}, 50, 0},
		{"negative skip", model.CompanyListFilter{Limit: 5, Skip: -3}, 5, 0},
		{"passthrough", model.CompanyListFilter{Limit: 20, Skip: 40}, 20, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.CompanyListFilter
			repo := newMemCompanyRepo()
			repo.listFn = func(ctx context.Context, filter model.CompanyListFilter) ([]model.Company, int, error) {
				got = filter
				return nil, 0, nil
			}
			page, err := NewService(repo, noopSanitizer{}, nil, nil, nil).List(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Limit != tt.wantLimit || got.Skip != tt.wantSkip {
				t.Errorf("repo filter limit/skip = %d/%d, want %d/%d", got.Limit, got.Skip, tt.wantLimit, tt.wantSkip)
			}
			if page.Limit != tt.wantLimit || page.Skip != tt.wantSkip {
				t.Errorf("page limit/skip = %d/%d, want %d/%d", page.Limit, page.Skip, tt.wantLimit, tt.wantSkip)
			}
		})
	}
}

func TestService_List_StoreError(t *testing.T) {
	repo := newMemCompanyRepo()
	repo.listFn = func(ctx context.Context, filter model.CompanyListFilter) ([]model.Company, int, error) {
		return nil, 0, errors.New("timeout")
	}
	if _, err := NewService(repo, noopSanitizer{}, nil, nil, nil).List(context.Background(), model.CompanyListFilter{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_UpdateDescription_SanitizesAndCreatesPlaceholder(t *testing.T) {
	repo := newMemCompanyRepo()
	svc := NewService(repo, security.NewRichTextSanitizer(), nil, nil, nil)

	c, err := svc.UpdateDescription(context.Background(), "u1", `<p>Hi</p><script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(c.Description, "script") {
		t.Errorf("Description not sanitised: %q", c.Description)
	}
	if repo.placehold != 1 {
		t.Errorf("placeholders = %d, want 1", repo.placehold)
	}
}

func TestService_UpdateRound_Validation(t *testing.T) {
	repo := newMemCompanyRepo()
	svc := NewService(repo, noopSanitizer{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateRound(ctx, "u1", model.Round{DaysLeft: -1})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidField)

	_, err = svc.UpdateRound(ctx, "u1", model.Round{Target: 100, MinInvestment: 200})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidField)

	_, err = svc.UpdateRound(ctx, "u1", model.Round{Target: 1e17})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidField)

	_, err = svc.UpdateRound(ctx, "u1", model.Round{MinInvestment: model.MaxAmount})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidField)

	_, err = svc.UpdateRound(ctx, "u1", model.Round{DaysLeft: math.MaxInt32 + 1})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidField)

	if repo.placehold != 0 {
		t.Errorf("placeholders = %d, want 0 for rejected rounds", repo.placehold)
	}

	c, err := svc.UpdateRound(ctx, "u1", model.Round{DaysLeft: 30, Target: 100000, MinInvestment: 500, Live: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Round.Live || c.Round.MinInvestment != 500 {
		t.Errorf("Round = %+v", c.Round)
	}
}

func TestService_UpdateTeam(t *testing.T) {
	repo := newMemCompanyRepo()
	guard := &mockURLGuard{validateFn: func(rawURL string) error {
		if strings.Contains(rawURL, "internal") {
			return fmt.Errorf("blocked host")
		}
		return nil
	}}
	svc := NewService(repo, noopSanitizer{}, guard, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateTeam(ctx, "u1", []model.TeamMember{{Name: " "}})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidField)

	_, err = svc.UpdateTeam(ctx, "u1", []model.TeamMember{{Name: "Ada", Photo: "http://internal/photo.png"}})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidURL)

	c, err := svc.UpdateTeam(ctx, "u1", []model.TeamMember{{Name: " Ada ", IsFounder: true}, {Name: "Linus"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Team) != 2 || c.Team[0].Name != "Ada" || !c.Team[0].IsFounder {
		t.Errorf("Team = %+v", c.Team)
	}

	c, err = svc.UpdateTeam(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Team) != 0 {
		t.Errorf("Team = %+v, want replaced with empty roster", c.Team)
	}
}

func TestService_UpdateProducts(t *testing.T) {
	svc := NewService(newMemCompanyRepo(), noopSanitizer{}, security.NewURLGuard(), nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateProducts(ctx, "u1", []model.Product{{Name: "Bot", URL: "ftp://acme.example"}})
	assertAPIErrorCode(t, err, model.ErrCodeInvalidURL)

	c, err := svc.UpdateProducts(ctx, "u1", []model.Product{{Name: "Bot", URL: "https://acme.example/bot"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Products) != 1 || c.Products[0].URL != "https://acme.example/bot" {
		t.Errorf("Products = %+v", c.Products)
	}
}

func TestService_UpdateMedia_DropsEmptySocialLinks(t *testing.T) {
	svc := NewService(newMemCompanyRepo(), noopSanitizer{}, security.NewURLGuard(), nil, nil)

	c, err := svc.UpdateMedia(context.Background(), "u1", model.Media{
		Logo: "https://cdn.example/logo.png",
		SocialLinks: map[string]string{
			"Twitter":  "https://twitter.com/acme",
			"linkedin": "  ",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Media.SocialLinks) != 1 || c.Media.SocialLinks["twitter"] != "https://twitter.com/acme" {
		t.Errorf("SocialLinks = %v", c.Media.SocialLinks)
	}
}

// TestService_SectionsDoNotClobber は別セクションの保存が互いの値を消さないことを検証する。
func TestService_SectionsDoNotClobber(t *testing.T) {
	repo := newMemCompanyRepo()
	svc := NewService(repo, noopSanitizer{}, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.SaveBasics(ctx, "u1", model.CompanyBasics{Name: strPtr("Acme"), Location: strPtr("Berlin")}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateRound(ctx, "u1", model.Round{Target: 1000}); err != nil {
		t.Fatal(err)
	}
	c, err := svc.UpdateDescription(ctx, "u1", "<p>About</p>")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Acme" || c.Location != "Berlin" || c.Round.Target != 1000 || c.Description != "<p>About</p>" {
		t.Errorf("company = %+v", c)
	}
}
