// Package model はドメインモデルを定義する。
package model

// Client は顧客を表す。
// CreatedAtはRFC 3339形式のタイムスタンプ文字列。
// ローカル作成時はクライアント側が現在時刻由来のIDを割り当て、
// サーバー作成時はサーバーがIDを割り当てる。
type Client struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Company   string       `json:"company"`
	Status    ClientStatus `json:"status"`
	CreatedAt string       `json:"createdAt"`
}

// ClientStatus は顧客のステータスを表す。
type ClientStatus string

const (
	// ClientStatusActive はアクティブな顧客ステータス。
	ClientStatusActive ClientStatus = "active"
	// ClientStatusInactive は非アクティブな顧客ステータス。
	ClientStatusInactive ClientStatus = "inactive"
)

// ClientInput は顧客の作成・更新リクエストの入力。
// IDとCreatedAtはサーバー側（またはストア側）で割り当てる。
type ClientInput struct {
	Name    string       `json:"name"`
	Email   string       `json:"email"`
	Phone   string       `json:"phone"`
	Company string       `json:"company"`
	Status  ClientStatus `json:"status"`
}
