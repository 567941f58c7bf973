package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/crmdesk/internal/model"
)

// PostgresDealRepo はPostgreSQLを使用した商談リポジトリ。
type PostgresDealRepo struct {
	db *sql.DB
}

// NewPostgresDealRepo はPostgresDealRepoを生成する。
func NewPostgresDealRepo(db *sql.DB) *PostgresDealRepo {
	return &PostgresDealRepo{db: db}
}

// scanDeal は1行分の商談データをmodel.Dealに変換する。
func scanDeal(scan func(dest ...any) error) (*model.Deal, error) {
	deal := &model.Deal{}
	var clientID, expectedCloseDate sql.NullString
	var createdAt time.Time

	if err := scan(
		&deal.ID, &deal.Title, &deal.Value, &deal.Stage,
		&clientID, &expectedCloseDate, &createdAt,
	); err != nil {
		return nil, err
	}

	deal.ClientID = nullStringValue(clientID)
	deal.ExpectedCloseDate = nullStringValue(expectedCloseDate)
	deal.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return deal, nil
}

// ListAll は全商談を作成日時の昇順で返す。
func (r *PostgresDealRepo) ListAll(ctx context.Context) ([]model.Deal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, value, stage, client_id, expected_close_date, created_at
		 FROM deals
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("商談一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	deals := []model.Deal{}
	for rows.Next() {
		deal, err := scanDeal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("商談データの読み取りに失敗しました: %w", err)
		}
		deals = append(deals, *deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("商談一覧の走査に失敗しました: %w", err)
	}

	return deals, nil
}

// FindByID は指定IDの商談を取得する。見つからない場合はnilを返す。
func (r *PostgresDealRepo) FindByID(ctx context.Context, id string) (*model.Deal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, value, stage, client_id, expected_close_date, created_at
		 FROM deals WHERE id = $1`,
		id,
	)

	deal, err := scanDeal(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商談の取得に失敗しました: %w", err)
	}
	return deal, nil
}

// Create は商談を作成する。client_idの参照先は検証しない。
func (r *PostgresDealRepo) Create(ctx context.Context, deal *model.Deal) error {
	createdAt, err := parseTimestamp(deal.CreatedAt)
	if err != nil {
		return fmt.Errorf("商談の作成日時が不正です: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO deals (id, title, value, stage, client_id, expected_close_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		deal.ID, deal.Title, deal.Value, deal.Stage,
		nullString(deal.ClientID), nullString(deal.ExpectedCloseDate),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("商談の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は商談情報を更新する。
func (r *PostgresDealRepo) Update(ctx context.Context, deal *model.Deal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE deals SET
		    title = $2, value = $3, stage = $4,
		    client_id = $5, expected_close_date = $6
		 WHERE id = $1`,
		deal.ID, deal.Title, deal.Value, deal.Stage,
		nullString(deal.ClientID), nullString(deal.ExpectedCloseDate),
	)
	if err != nil {
		return fmt.Errorf("商談の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの商談を削除する。
func (r *PostgresDealRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("商談の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ DealRepository = (*PostgresDealRepo)(nil)
