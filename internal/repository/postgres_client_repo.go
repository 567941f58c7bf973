package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/crmdesk/internal/model"
)

// PostgresClientRepo はPostgreSQLを使用した顧客リポジトリ。
type PostgresClientRepo struct {
	db *sql.DB
}

// NewPostgresClientRepo はPostgresClientRepoを生成する。
func NewPostgresClientRepo(db *sql.DB) *PostgresClientRepo {
	return &PostgresClientRepo{db: db}
}

// scanClient は1行分の顧客データをmodel.Clientに変換する。
func scanClient(scan func(dest ...any) error) (*model.Client, error) {
	client := &model.Client{}
	var phone, company sql.NullString
	var createdAt time.Time

	if err := scan(
		&client.ID, &client.Name, &client.Email,
		&phone, &company, &client.Status, &createdAt,
	); err != nil {
		return nil, err
	}

	client.Phone = nullStringValue(phone)
	client.Company = nullStringValue(company)
	client.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return client, nil
}

// ListAll は全顧客を作成日時の昇順で返す。
func (r *PostgresClientRepo) ListAll(ctx context.Context) ([]model.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, phone, company, status, created_at
		 FROM clients
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("顧客一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		client, err := scanClient(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("顧客データの読み取りに失敗しました: %w", err)
		}
		clients = append(clients, *client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("顧客一覧の走査に失敗しました: %w", err)
	}

	return clients, nil
}

// FindByID は指定IDの顧客を取得する。見つからない場合はnilを返す。
func (r *PostgresClientRepo) FindByID(ctx context.Context, id string) (*model.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, company, status, created_at
		 FROM clients WHERE id = $1`,
		id,
	)

	client, err := scanClient(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("顧客の取得に失敗しました: %w", err)
	}
	return client, nil
}

// Create は顧客を作成する。
func (r *PostgresClientRepo) Create(ctx context.Context, client *model.Client) error {
	createdAt, err := parseTimestamp(client.CreatedAt)
	if err != nil {
		return fmt.Errorf("顧客の作成日時が不正です: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, email, phone, company, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		client.ID, client.Name, client.Email,
		nullString(client.Phone), nullString(client.Company),
		client.Status, createdAt,
	)
	if err != nil {
		return fmt.Errorf("顧客の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は顧客情報を更新する。
func (r *PostgresClientRepo) Update(ctx context.Context, client *model.Client) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE clients SET
		    name = $2, email = $3, phone = $4, company = $5, status = $6
		 WHERE id = $1`,
		client.ID, client.Name, client.Email,
		nullString(client.Phone), nullString(client.Company), client.Status,
	)
	if err != nil {
		return fmt.Errorf("顧客の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの顧客を削除する。
func (r *PostgresClientRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("顧客の削除に失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// parseTimestamp はRFC3339形式の日時文字列をtime.Timeに変換する。
// 空文字列の場合は現在時刻を返す。
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

// compile-time interface check
var _ ClientRepository = (*PostgresClientRepo)(nil)
