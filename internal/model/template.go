// Package model はドメインモデルを定義する。
package model

// EmailTemplate はメールテンプレートを表す。
// ClientやDealからは独立しており、送信メール本文の事前入力にのみ使用される。
type EmailTemplate struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

// EmailTemplateInput はテンプレート作成リクエストの入力。
type EmailTemplateInput struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
