// Package cache はコレクションのローカル永続キャッシュを提供する。
// 各コレクションを固定キーの下にJSONエンコードして保存するライトスルー型のミラーで、
// プロセス起動時にエンティティストアの初期状態を種付けするために読み込まれる。
// 書き込み失敗はログに記録して握りつぶし、呼び出し元のインメモリ変更を
// 中断させない。読み込みは欠損・破損データを空のコレクションとして扱う。
package cache

import (
	"encoding/json"
	"log/slog"

	"github.com/dgraph-io/badger/v3"

	"github.com/hitoshi/crmdesk/internal/model"
)

// 固定ストレージキー
const (
	KeyClients   = "crm_clients"
	KeyDeals     = "crm_deals"
	KeyTemplates = "crm_email_templates"

	keyAuthToken = "auth_token"
)

// Cache はBadgerをバックエンドとする永続キャッシュ。
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open は指定ディレクトリのBadgerストアを開く。
// ライトスルー保証のため同期書き込みを有効にする。
func Open(dir string, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLogger(nil) // Badger自身のログは抑制し、slogに一本化する

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Cache{db: db, logger: logger}, nil
}

// Close はストアを閉じる。
func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveClients は顧客コレクションのスナップショットを保存する。
// 失敗はログに記録するのみで、呼び出し元には伝播しない。
func (c *Cache) SaveClients(clients []model.Client) {
	c.save(KeyClients, clients)
}

// SaveDeals は商談コレクションのスナップショットを保存する。
func (c *Cache) SaveDeals(deals []model.Deal) {
	c.save(KeyDeals, deals)
}

// SaveTemplates はメールテンプレートコレクションのスナップショットを保存する。
func (c *Cache) SaveTemplates(templates []model.EmailTemplate) {
	c.save(KeyTemplates, templates)
}

// LoadClients は保存済みの顧客コレクションを読み込む。
// キーが存在しない、またはデータが破損している場合は空のスライスを返す。
func (c *Cache) LoadClients() []model.Client {
	var clients []model.Client
	if !c.load(KeyClients, &clients) || clients == nil {
		return []model.Client{}
	}
	return clients
}

// LoadDeals は保存済みの商談コレクションを読み込む。
func (c *Cache) LoadDeals() []model.Deal {
	var deals []model.Deal
	if !c.load(KeyDeals, &deals) || deals == nil {
		return []model.Deal{}
	}
	return deals
}

// LoadTemplates は保存済みのメールテンプレートコレクションを読み込む。
func (c *Cache) LoadTemplates() []model.EmailTemplate {
	var templates []model.EmailTemplate
	if !c.load(KeyTemplates, &templates) || templates == nil {
		return []model.EmailTemplate{}
	}
	return templates
}

// SaveToken はAPI認証用のBearerトークンを保存する。
func (c *Cache) SaveToken(token string) {
	c.setRaw(keyAuthToken, []byte(token))
}

// LoadToken は保存済みのBearerトークンを返す。未保存の場合は空文字列を返す。
func (c *Cache) LoadToken() string {
	data, ok := c.getRaw(keyAuthToken)
	if !ok {
		return ""
	}
	return string(data)
}

// ClearToken は保存済みのBearerトークンを削除する。
func (c *Cache) ClearToken() {
	c.Clear(keyAuthToken)
}

// Clear は指定キーの保存データを削除する。リセット・デモフロー用。
func (c *Cache) Clear(key string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		c.logger.Error("failed to clear cache key",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// ClearAll は全コレクションの保存データを削除する。
func (c *Cache) ClearAll() {
	for _, key := range []string{KeyClients, KeyDeals, KeyTemplates} {
		c.Clear(key)
	}
}

// save はコレクションをJSONエンコードして保存する。
// キャッシュ書き込みの失敗がインメモリ変更を中断させてはならないため、
// エラーはログに記録するのみとする。
func (c *Cache) save(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	c.setRaw(key, data)
}

// load は保存済みデータをデコードする。
// キー欠損・破損時はfalseを返し、呼び出し元は空のコレクションへフォールバックする。
func (c *Cache) load(key string, out any) bool {
	data, ok := c.getRaw(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("failed to decode cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (c *Cache) setRaw(key string, data []byte) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		c.logger.Error("failed to write cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Cache) getRaw(key string) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false
	}
	if err != nil {
		c.logger.Error("failed to read cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return data, true
}
