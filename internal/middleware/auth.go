// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// authErrorBody は認証失敗時のレスポンスボディ。
type authErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeAuthError は401 Unauthorizedレスポンスを書き込む。
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(authErrorBody{
		Error:   "Unauthorized",
		Message: message,
	})
}

// NewAPIKeyMiddleware はX-API-Keyヘッダーによる共有シークレット認証のミドルウェアを返す。
// secretが空の場合は認証を行わず全リクエストを通す（開発モード）。
// ヘッダー欠落または不一致の場合は401を返す。
func NewAPIKeyMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" || apiKey != secret {
				slog.Warn("api key authentication failed",
					slog.String("path", r.URL.Path),
					slog.Bool("key_present", apiKey != ""),
				)
				writeAuthError(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewBearerAuthMiddleware はAuthorizationヘッダーの静的Bearerトークン認証のミドルウェアを返す。
// tokenが空の場合は認証を行わず全リクエストを通す（開発モード）。
// ヘッダー欠落、Bearer以外のスキーム、トークン不一致の場合は401を返す。
func NewBearerAuthMiddleware(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			authorization := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(authorization, "Bearer ")
			if !ok || presented != token {
				slog.Warn("bearer authentication failed",
					slog.String("path", r.URL.Path),
					slog.Bool("header_present", authorization != ""),
				)
				writeAuthError(w, "Invalid or missing bearer token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
