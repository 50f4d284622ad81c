// Package security はリッチテキストのサニタイズとSSRF防止を提供する。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// RichTextSanitizer はエディタウィジェットが生成したHTMLをサニタイズする。
type RichTextSanitizer interface {
	// Sanitize は許可リスト外のタグ・属性を除去したHTMLを返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// alignClass はエディタが段落に付与する配置クラス（ql-align-center等）。
var alignClass = regexp.MustCompile(`^ql-align-(left|center|right|justify)$`)

var httpsURL = regexp.MustCompile(`^https://[^/\s]+`)

type richTextSanitizer struct {
	policy *bluemonday.Policy
}

// NewRichTextSanitizer はキャンペーン説明文用のポリシーでサニタイザを生成する。
//   - 許可タグ: p, br, h1-h3, strong, b, em, i, u, s, ul, ol, li, blockquote, pre, code, a, img
//   - aタグ: http/https/mailtoのみ。target="_blank"とrel="noopener noreferrer"を付与
//   - imgタグ: httpsのsrcとaltのみ
//   - class属性: 配置クラスのみ
func NewRichTextSanitizer() *richTextSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "h1", "h2", "h3",
		"strong", "b", "em", "i", "u", "s",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
	)
	p.AllowAttrs("class").Matching(alignClass).OnElements("p", "h1", "h2", "h3", "li")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").Matching(httpsURL).OnElements("img")
	p.AllowAttrs("alt").OnElements("img")

	return &richTextSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズする。
func (s *richTextSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
