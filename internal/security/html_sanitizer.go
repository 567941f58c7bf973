// Package security はアプリケーションのセキュリティ機能を提供する。
//
// EmailSanitizerService は送信前のメールHTML本文をサニタイズし、
// テンプレート由来のスクリプト混入やヘッダインジェクションの足場となる
// 要素を除去する。bluemondayライブラリを使用した許可リストベースの
// ポリシーで、メール本文として安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// EmailSanitizerService はメールHTML本文のサニタイズ機能のインターフェースを定義する。
// メール送信およびテンプレートプレビューの直前に使用される。
type EmailSanitizerService interface {
	// Sanitize はHTML本文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, h1〜h4, strong, em, img, hr）
	// のみを通過させ、script, iframe, style, formタグおよびon*イベント属性を
	// 除去する。imgタグのsrc属性はhttpsスキームのみ、aタグのhref属性は
	// httpsとmailtoスキームのみ許可される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// emailSanitizer はEmailSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type emailSanitizer struct {
	policy *bluemonday.Policy
}

// NewEmailSanitizer はEmailSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, h1〜h4, strong, em, img, hr
//   - 禁止タグ: script, iframe, style, form および全てのon*イベント属性
//   - imgのsrc属性: httpsスキームのみ許可
//   - aのhref属性: httpsとmailtoスキームのみ許可
func NewEmailSanitizer() *emailSanitizer {
	p := bluemonday.NewPolicy()

	// メール本文として意味を持つ構造タグのみ通す。
	// script, iframe, style, form等は許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される。
	p.AllowElements(
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "h1", "h2", "h3", "h4",
		"strong", "em",
	)

	// aタグの設定:
	// - href属性を許可、相対URLは不許可
	// - スキームはhttpsとmailtoのみ（メール本文にhttpリンクは埋め込まない方針）
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)

	// imgタグの設定:
	// - src属性はhttpsスキームのみ許可（http, javascript, data等は拒否）
	// - alt属性を許可
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})
	p.AllowURLSchemeWithCustomPolicy("mailto", func(u *url.URL) bool {
		return true
	})

	return &emailSanitizer{
		policy: p,
	}
}

// Sanitize はHTML本文をサニタイズして安全なHTMLを返す。
func (s *emailSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
