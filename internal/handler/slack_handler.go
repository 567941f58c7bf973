package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/crmdesk/internal/model"
	"github.com/hitoshi/crmdesk/internal/slack"
)

// SlackInterface はSlackハンドラーが必要とする通知サービスインターフェース。
type SlackInterface interface {
	// TestConnection はSlack APIとの疎通を確認する。
	TestConnection(ctx context.Context) slack.ConnectionStatus
	// SendMessage はテキストメッセージを投稿する。channelが空の場合はデフォルトチャンネルを使う。
	SendMessage(ctx context.Context, text, channel string) (*slack.SendResult, error)
	// SendClientNotification は顧客操作の通知を投稿する。
	SendClientNotification(ctx context.Context, client model.Client, action string) (*slack.SendResult, error)
	// SendDealNotification は商談作成の通知を投稿する。
	SendDealNotification(ctx context.Context, deal model.Deal, client model.Client) (*slack.SendResult, error)
}

// SlackMetricsRecorder はSlack投稿メトリクスの記録インターフェース。
type SlackMetricsRecorder interface {
	RecordSlackSent()
	RecordSlackFailed()
}

// SlackHandler はSlack通知プロキシのHTTPハンドラー。
// 投稿の成否は顧客・商談データに影響しない。
type SlackHandler struct {
	client  SlackInterface
	metrics SlackMetricsRecorder
}

// NewSlackHandler はSlackHandlerを生成する。
func NewSlackHandler(client SlackInterface, metrics SlackMetricsRecorder) *SlackHandler {
	return &SlackHandler{
		client:  client,
		metrics: metrics,
	}
}

// sendMessageRequest はメッセージ投稿リクエストのボディ。
type sendMessageRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// clientNotificationRequest は顧客通知リクエストのボディ。
type clientNotificationRequest struct {
	Client model.Client `json:"client"`
	Action string       `json:"action"`
}

// dealNotificationRequest は商談通知リクエストのボディ。
type dealNotificationRequest struct {
	Deal   model.Deal   `json:"deal"`
	Client model.Client `json:"client"`
}

// TestConnection はSlack APIとの疎通確認結果を返す。
// GET /api/slack/test
func (h *SlackHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	status := h.client.TestConnection(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// SendMessage はテキストメッセージの投稿を処理する。
// POST /api/slack/send-message
func (h *SlackHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if req.Text == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError([]string{"text is required"}))
		return
	}

	result, err := h.client.SendMessage(r.Context(), req.Text, req.Channel)
	if err != nil {
		h.metrics.RecordSlackFailed()
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordSlackSent()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// SendClientNotification は顧客操作通知の投稿を処理する。
// POST /api/slack/client-notification
func (h *SlackHandler) SendClientNotification(w http.ResponseWriter, r *http.Request) {
	var req clientNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if req.Client.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError([]string{"client.name is required"}))
		return
	}
	if req.Action == "" {
		req.Action = "created"
	}

	result, err := h.client.SendClientNotification(r.Context(), req.Client, req.Action)
	if err != nil {
		h.metrics.RecordSlackFailed()
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordSlackSent()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// SendDealNotification は商談作成通知の投稿を処理する。
// POST /api/slack/deal-notification
func (h *SlackHandler) SendDealNotification(w http.ResponseWriter, r *http.Request) {
	var req dealNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if req.Deal.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError([]string{"deal.title is required"}))
		return
	}

	result, err := h.client.SendDealNotification(r.Context(), req.Deal, req.Client)
	if err != nil {
		h.metrics.RecordSlackFailed()
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordSlackSent()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
