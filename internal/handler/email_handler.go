package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/crmdesk/internal/email"
	"github.com/hitoshi/crmdesk/internal/model"
)

// MailerInterface はメールハンドラーが必要とする送信サービスインターフェース。
type MailerInterface interface {
	// TestConnection はSMTPサーバーとの疎通を確認する。
	TestConnection(ctx context.Context) email.ConnectionStatus
	// Send は任意の宛先にメールを送信する。
	Send(ctx context.Context, input model.EmailSendInput) (*email.SendResult, error)
	// SendWelcome は顧客にウェルカムメールを送信する。
	SendWelcome(ctx context.Context, client model.Client) (*email.SendResult, error)
	// SendDealNotification は商談成立通知メールを顧客に送信する。
	SendDealNotification(ctx context.Context, client model.Client, deal model.Deal) (*email.SendResult, error)
}

// EmailMetricsRecorder はメール送信メトリクスの記録インターフェース。
type EmailMetricsRecorder interface {
	RecordEmailSent()
	RecordEmailFailed()
}

// EmailHandler はメール送信プロキシのHTTPハンドラー。
// 送信の成否は顧客・商談データに影響しない。
type EmailHandler struct {
	mailer  MailerInterface
	metrics EmailMetricsRecorder
}

// NewEmailHandler はEmailHandlerを生成する。
func NewEmailHandler(mailer MailerInterface, metrics EmailMetricsRecorder) *EmailHandler {
	return &EmailHandler{
		mailer:  mailer,
		metrics: metrics,
	}
}

// welcomeEmailRequest はウェルカムメール送信リクエストのボディ。
type welcomeEmailRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// dealEmailRequest は商談通知メール送信リクエストのボディ。
type dealEmailRequest struct {
	Client model.Client `json:"client"`
	Deal   model.Deal   `json:"deal"`
}

// TestConnection はSMTPサーバーとの疎通確認結果を返す。
// 未構成の場合もエラーではなく未接続ステータスとして返す。
// GET /api/email/test
func (h *EmailHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	status := h.mailer.TestConnection(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// Send は任意の宛先へのメール送信を処理する。
// POST /api/email/send
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.EmailSendInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if details := model.ValidateEmailSendInput(req); len(details) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(details))
		return
	}

	result, err := h.mailer.Send(r.Context(), req)
	if err != nil {
		h.metrics.RecordEmailFailed()
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEmailSent()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// SendWelcome は顧客へのウェルカムメール送信を処理する。
// POST /api/email/welcome
func (h *EmailHandler) SendWelcome(w http.ResponseWriter, r *http.Request) {
	var req welcomeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	input := model.ClientInput{Name: req.Name, Email: req.Email, Company: req.Company}
	if details := model.ValidateClientInput(input); len(details) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(details))
		return
	}

	client := model.Client{Name: req.Name, Email: req.Email, Company: req.Company}
	result, err := h.mailer.SendWelcome(r.Context(), client)
	if err != nil {
		h.metrics.RecordEmailFailed()
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEmailSent()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// SendDealNotification は商談成立通知メールの送信を処理する。
// POST /api/email/deal-notification
func (h *EmailHandler) SendDealNotification(w http.ResponseWriter, r *http.Request) {
	var req dealEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if req.Client.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError([]string{"client.email is required"}))
		return
	}

	result, err := h.mailer.SendDealNotification(r.Context(), req.Client, req.Deal)
	if err != nil {
		h.metrics.RecordEmailFailed()
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEmailSent()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
