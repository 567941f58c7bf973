// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/crmdesk/internal/model"
)

// ClientRepository は顧客データの永続化インターフェース。
type ClientRepository interface {
	// ListAll は全顧客を作成日時の昇順で返す。
	ListAll(ctx context.Context) ([]model.Client, error)

	// FindByID は指定IDの顧客を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Client, error)

	// Create は顧客を作成する。
	Create(ctx context.Context, client *model.Client) error

	// Update は顧客情報を更新する。
	Update(ctx context.Context, client *model.Client) error

	// DeleteByID は指定IDの顧客を削除する。
	// 顧客を参照する商談は削除しない（商談のclient_idは外部キーではない）。
	DeleteByID(ctx context.Context, id string) error
}

// DealRepository は商談データの永続化インターフェース。
type DealRepository interface {
	// ListAll は全商談を作成日時の昇順で返す。
	ListAll(ctx context.Context) ([]model.Deal, error)

	// FindByID は指定IDの商談を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Deal, error)

	// Create は商談を作成する。client_idの参照先は検証しない。
	Create(ctx context.Context, deal *model.Deal) error

	// Update は商談情報を更新する。
	Update(ctx context.Context, deal *model.Deal) error

	// DeleteByID は指定IDの商談を削除する。
	DeleteByID(ctx context.Context, id string) error
}
