package company

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultExcerptLength は一覧表示用の抜粋の最大文字数。
const DefaultExcerptLength = 160

// Excerpt はサニタイズ済みHTMLからテキストを抽出し、空白を畳んでmaxRunes文字に切り詰める。
// 切り詰めた場合は末尾に"…"を付ける。
func Excerpt(description string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultExcerptLength
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(description))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return truncateRunes(strings.Join(strings.Fields(b.String()), " "), maxRunes)
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// ブロック要素の境界で単語が連結しないように区切る
			b.WriteByte(' ')
		}
	}
}

func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
