package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/crmdesk/internal/middleware"
	"github.com/hitoshi/crmdesk/internal/repository"
)

// MetricsRecorder はルーター全体が必要とするメトリクス記録インターフェース。
type MetricsRecorder interface {
	middleware.HTTPMetricsRecorder
	EntityMetricsRecorder
	EmailMetricsRecorder
	SlackMetricsRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	// APIKeyはメール・Slackプロキシ用の共有シークレット。空の場合は認証省略（開発モード）。
	// AuthTokenは顧客・商談CRUD用の静的Bearerトークン。空の場合は認証省略。
	APIKey    string
	AuthToken string

	// メトリクス
	Metrics        MetricsRecorder
	MetricsHandler http.Handler

	// ドメイン依存
	DB         DBPinger
	ClientRepo repository.ClientRepository
	DealRepo   repository.DealRepository
	Mailer     MailerInterface
	Slack      SlackInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Metrics → Recovery
//
// その内側で、CRUDルートにはBearer認証、プロキシルートにはAPIキー認証を適用する。
// ヘルスチェックとメトリクス公開は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware())

	healthHandler := NewHealthHandler(deps.DB)
	clientHandler := NewClientHandler(deps.ClientRepo, deps.Metrics)
	dealHandler := NewDealHandler(deps.DealRepo, deps.Metrics)
	emailHandler := NewEmailHandler(deps.Mailer, deps.Metrics)
	slackHandler := NewSlackHandler(deps.Slack, deps.Metrics)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)
	r.Handle("/metrics", deps.MetricsHandler)

	// --- 顧客・商談CRUD ---
	// ミドルウェアスタック: Bearer認証 → RateLimit(General)
	// 変更系ルートには変更専用レート制限を追加する。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.AuthToken))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		mutation := deps.RateLimiter.MutationMiddleware()

		r.Route("/api/clients", func(r chi.Router) {
			r.Get("/", clientHandler.ListClients)
			r.With(mutation).Post("/", clientHandler.CreateClient)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", clientHandler.GetClient)
				r.With(mutation).Put("/", clientHandler.UpdateClient)
				r.With(mutation).Delete("/", clientHandler.DeleteClient)
			})
		})

		r.Route("/api/deals", func(r chi.Router) {
			r.Get("/", dealHandler.ListDeals)
			r.With(mutation).Post("/", dealHandler.CreateDeal)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", dealHandler.GetDeal)
				r.With(mutation).Put("/", dealHandler.UpdateDeal)
				r.With(mutation).Delete("/", dealHandler.DeleteDeal)
			})
		})
	})

	// --- メール・Slackプロキシ ---
	// ミドルウェアスタック: APIキー認証 → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPIKeyMiddleware(deps.APIKey))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/email", func(r chi.Router) {
			r.Get("/test", emailHandler.TestConnection)
			r.Post("/send", emailHandler.Send)
			r.Post("/welcome", emailHandler.SendWelcome)
			r.Post("/deal-notification", emailHandler.SendDealNotification)
		})

		r.Route("/api/slack", func(r chi.Router) {
			r.Get("/test", slackHandler.TestConnection)
			r.Post("/send-message", slackHandler.SendMessage)
			r.Post("/client-notification", slackHandler.SendClientNotification)
			r.Post("/deal-notification", slackHandler.SendDealNotification)
		})
	})

	return r
}
