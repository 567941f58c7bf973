// Package store はアプリケーションの正準なインメモリ状態を保持するエンティティストアを提供する。
//
// 各コレクション（clients, deals, templates）は挿入順を保つ列として管理され、
// コレクションを変更するすべての操作は、呼び出し元に制御を返す前に
// 変更後のスナップショットを永続キャッシュへ同期的に書き込む（ライトスルー）。
//
// 各エンティティには2系統の操作がある:
//   - ローカル（楽観的）: 即時のインメモリ変更。ネットワークなし。失敗しない設計。
//   - リモート（非同期）: pending→fulfilled→rejectedのライフサイクル。
//     rejected時はErrにメッセージを記録し、Itemsは呼び出し前の値を維持する。
//
// ストア自体はどちらの系統が「正しい」かのポリシーを持たない。ローカルのみの
// モードと同期モードのどちらで動かすかは呼び出し側の構成に委ねる。
// 楽観的ローカル変更と実行中のリモート変更が同一エンティティ上で競合した場合、
// 後に完了した側がコレクション状態を上書きする（調停なし）。これは意図された
// アプリケーションレベルの挙動であり、コミットはcommitヘルパーに集約して
// テストから決定的に再現できるようにしている。
package store

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/crmdesk/internal/model"
)

// RemoteAPI はストアがリモート操作に必要とするAPIクライアントのインターフェース。
// api.Clientの部分集合として定義する。
type RemoteAPI interface {
	GetClients(ctx context.Context) ([]model.Client, error)
	CreateClient(ctx context.Context, input model.ClientInput) (*model.Client, error)
	UpdateClient(ctx context.Context, client model.Client) (*model.Client, error)
	DeleteClient(ctx context.Context, id string) error

	GetDeals(ctx context.Context) ([]model.Deal, error)
	CreateDeal(ctx context.Context, input model.DealInput) (*model.Deal, error)
	UpdateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error)
	DeleteDeal(ctx context.Context, id string) error
}

// Persister はストアが必要とする永続キャッシュのインターフェース。
// cache.Cacheの部分集合として定義する。Save系は失敗を伝播しない
// （キャッシュ書き込み失敗がインメモリ変更を中断させてはならない）。
type Persister interface {
	LoadClients() []model.Client
	LoadDeals() []model.Deal
	LoadTemplates() []model.EmailTemplate
	SaveClients([]model.Client)
	SaveDeals([]model.Deal)
	SaveTemplates([]model.EmailTemplate)
}

// updateResult はID一致更新の内部結果。
// 一致なし（notFound）は意図されたUI許容であり、外部へはエラーとして表面化しない。
type updateResult int

const (
	updated updateResult = iota
	notFound
)

// collection は1コレクション分の状態。
type collectionState struct {
	loading bool
	err     string
}

// Store はclients, deals, templatesの正準なインメモリ状態を保持する。
// すべての変更は内部ミューテックスで直列化される（ブラウザの単一スレッド
// イベントループに相当する実行モデル）。リモート操作のネットワーク呼び出し中は
// ロックを保持しないため、他の操作が間に割り込める。
type Store struct {
	mu     sync.Mutex
	cache  Persister
	api    RemoteAPI
	logger *slog.Logger

	clients   []model.Client
	deals     []model.Deal
	templates []model.EmailTemplate

	clientsState   collectionState
	dealsState     collectionState
	templatesState collectionState

	onChange func()
}

// Option はStoreの構成オプション。
type Option func(*Store)

// WithOnChange は各変更後に呼ばれるフックを設定する。
// プレゼンテーション層が状態変化を購読するために使用する。
// フックはロック解放後に呼ばれる。
func WithOnChange(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithLogger はストアのロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New はStoreを生成する。
// 初期化順序: 永続キャッシュから各コレクションを読み込み、
// 全コレクションが空の場合のみデモ用デフォルトデータを種付けする。
func New(cache Persister, api RemoteAPI, opts ...Option) *Store {
	s := &Store{
		cache:  cache,
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.clients = cache.LoadClients()
	s.deals = cache.LoadDeals()
	s.templates = cache.LoadTemplates()

	if len(s.clients) == 0 && len(s.deals) == 0 && len(s.templates) == 0 {
		s.clients = seedClients()
		s.deals = seedDeals()
	}

	return s
}

// ClientsState は顧客コレクションのスナップショット。
type ClientsState struct {
	Items   []model.Client
	Loading bool
	Err     string
}

// DealsState は商談コレクションのスナップショット。
type DealsState struct {
	Items   []model.Deal
	Loading bool
	Err     string
}

// TemplatesState はメールテンプレートコレクションのスナップショット。
type TemplatesState struct {
	Items   []model.EmailTemplate
	Loading bool
	Err     string
}

// Clients は顧客コレクションの現在状態を返す。Itemsは防御的コピー。
func (s *Store) Clients() ClientsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Client, len(s.clients))
	copy(items, s.clients)
	return ClientsState{Items: items, Loading: s.clientsState.loading, Err: s.clientsState.err}
}

// Deals は商談コレクションの現在状態を返す。Itemsは防御的コピー。
func (s *Store) Deals() DealsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Deal, len(s.deals))
	copy(items, s.deals)
	return DealsState{Items: items, Loading: s.dealsState.loading, Err: s.dealsState.err}
}

// Templates はメールテンプレートコレクションの現在状態を返す。Itemsは防御的コピー。
func (s *Store) Templates() TemplatesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.EmailTemplate, len(s.templates))
	copy(items, s.templates)
	return TemplatesState{Items: items, Loading: s.templatesState.loading, Err: s.templatesState.err}
}

// DealClientName は商談に紐づく顧客名を返す。
// ClientIDはソフト参照のため、参照先が存在しない場合は "Unknown" を返す。
func (s *Store) DealClientName(deal model.Deal) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.ID == deal.ClientID {
			return c.Name
		}
	}
	return "Unknown"
}

// LocalID はローカル作成エンティティ用のIDを現在時刻から生成する。
func LocalID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// Now は現在時刻のRFC 3339タイムスタンプ文字列を返す。
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// mutate はロック下でfnを実行し、ロック解放後に変更フックを起動する。
// すべての状態変更はこのヘルパーを通る。
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// seedClients はデモ用の初期顧客データを返す。
func seedClients() []model.Client {
	now := Now()
	return []model.Client{
		{
			ID:        "1",
			Name:      "John Doe",
			Email:     "john.doe@example.com",
			Phone:     "+1234567890",
			Company:   "ABC Corp",
			Status:    model.ClientStatusActive,
			CreatedAt: now,
		},
		{
			ID:        "2",
			Name:      "Jane Smith",
			Email:     "jane.smith@example.com",
			Phone:     "+0987654321",
			Company:   "XYZ Ltd",
			Status:    model.ClientStatusActive,
			CreatedAt: now,
		},
	}
}

// seedDeals はデモ用の初期商談データを返す。
func seedDeals() []model.Deal {
	now := Now()
	return []model.Deal{
		{
			ID:                "1",
			Title:             "Website Redesign",
			Value:             5000,
			Stage:             model.DealStageProposal,
			ClientID:          "1",
			ExpectedCloseDate: "2024-03-15",
			CreatedAt:         now,
		},
		{
			ID:                "2",
			Title:             "CRM Implementation",
			Value:             10000,
			Stage:             model.DealStageQualification,
			ClientID:          "2",
			ExpectedCloseDate: "2024-04-01",
			CreatedAt:         now,
		},
	}
}
