// Package api はバックエンドAPIへのCRUD呼び出しを行うHTTPクライアントを提供する。
// 呼び出し時に永続キャッシュからBearerトークンを読み取って付与し、
// 401応答時はトークンを破棄してログイン境界へのリダイレクトフックを起動する。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/crmdesk/internal/model"
)

// TokenStore は認証トークンの読み取りと破棄のインターフェース。
// cache.Cacheの部分集合として定義する。
type TokenStore interface {
	LoadToken() string
	ClearToken()
}

// Client はバックエンドAPIのHTTPクライアント。
// ステートレスであり、トークンはリクエストごとにTokenStoreから読み取る。
type Client struct {
	httpClient     *http.Client
	logger         *slog.Logger
	baseURL        string // テスト用にベースURLを差し替え可能
	tokens         TokenStore
	onUnauthorized func()
}

// NewClient はClientの新しいインスタンスを生成する。
// onUnauthorizedは401受信時に呼ばれるリダイレクトフック。nilの場合は何もしない。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, tokens TokenStore, onUnauthorized func()) *Client {
	return &Client{
		httpClient:     httpClient,
		logger:         logger,
		baseURL:        baseURL,
		tokens:         tokens,
		onUnauthorized: onUnauthorized,
	}
}

// GetClients は顧客一覧を取得する。
func (c *Client) GetClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := c.do(ctx, http.MethodGet, "/clients", nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// CreateClient は顧客を作成し、サーバーが確定したエンティティを返す。
func (c *Client) CreateClient(ctx context.Context, input model.ClientInput) (*model.Client, error) {
	var created model.Client
	if err := c.do(ctx, http.MethodPost, "/clients", input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateClient は顧客を更新し、サーバーが確定したエンティティを返す。
func (c *Client) UpdateClient(ctx context.Context, client model.Client) (*model.Client, error) {
	var updated model.Client
	if err := c.do(ctx, http.MethodPut, "/clients/"+client.ID, client, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteClient は顧客を削除する。
func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/clients/"+id, nil, nil)
}

// GetDeals は商談一覧を取得する。
func (c *Client) GetDeals(ctx context.Context) ([]model.Deal, error) {
	var deals []model.Deal
	if err := c.do(ctx, http.MethodGet, "/deals", nil, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

// CreateDeal は商談を作成し、サーバーが確定したエンティティを返す。
func (c *Client) CreateDeal(ctx context.Context, input model.DealInput) (*model.Deal, error) {
	var created model.Deal
	if err := c.do(ctx, http.MethodPost, "/deals", input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDeal は商談を更新し、サーバーが確定したエンティティを返す。
func (c *Client) UpdateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	var updated model.Deal
	if err := c.do(ctx, http.MethodPut, "/deals/"+deal.ID, deal, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteDeal は商談を削除する。
func (c *Client) DeleteDeal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/deals/"+id, nil, nil)
}

// errorResponse はバックエンドのエラーレスポンスボディ。
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do はHTTPリクエストを実行し、2xxレスポンスのボディをoutにデコードする。
// 401受信時はトークンを破棄し、リダイレクトフックを起動した上でエラーを返す
// （呼び出し元のrejectedブランチは常に発火する）。
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// 呼び出し時点のトークンを付与する
	if token := c.tokens.LoadToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("unauthorized response, clearing stored credential",
			slog.String("method", method),
			slog.String("path", path),
		)
		c.tokens.ClearToken()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return model.NewUnauthorizedError()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
	}

	return nil
}

// responseError は非2xxレスポンスをエラーに変換する。
// ボディが{error, message}形式の場合はメッセージを、それ以外は生のボディを含める。
func (c *Client) responseError(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("APIがステータス %d を返しました", resp.StatusCode)
	}

	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil && (body.Error != "" || body.Message != "") {
		msg := body.Message
		if msg == "" {
			msg = body.Error
		}
		return fmt.Errorf("APIがステータス %d を返しました: %s", resp.StatusCode, msg)
	}

	return fmt.Errorf("APIがステータス %d を返しました: %s", resp.StatusCode, string(data))
}
