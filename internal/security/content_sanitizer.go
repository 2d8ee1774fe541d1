// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はドキュメント本文やチャットメッセージを保存前に無害化する。
// bluemondayの許可リストポリシーで、検索・表示に必要なタグのみを通過させる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は保存前のテキスト無害化のインターフェース。
type ContentSanitizer interface {
	// SanitizeHTML は許可タグのみを残したHTMLを返す。
	// 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, h1-h6, table系, a(href)
	// script, iframe, styleおよびon*属性は除去する。同一入力に対して同一出力を返す。
	SanitizeHTML(raw string) string

	// PlainText は全てのタグを除去したプレーンテキストを返す。
	// エンティティは元の文字に戻すため、"Q&A" はそのまま保存される。
	PlainText(raw string) string
}

type contentSanitizer struct {
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。ポリシーは生成時に一度だけ構築する。
func NewContentSanitizer() ContentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"h1", "h2", "h3", "h4", "h5", "h6",
	)
	p.AllowTables()

	// リンクは絶対URLのhttp/httpsのみ
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		rich:   p,
		strict: bluemonday.StrictPolicy(),
	}
}

func (s *contentSanitizer) SanitizeHTML(raw string) string {
	return s.rich.Sanitize(raw)
}

func (s *contentSanitizer) PlainText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(raw)))
}
