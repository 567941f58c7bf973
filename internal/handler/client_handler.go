package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/crmdesk/internal/model"
	"github.com/hitoshi/crmdesk/internal/repository"
)

// EntityMetricsRecorder は顧客・商談操作のメトリクス記録インターフェース。
// metrics.Collectorを直接参照せず、ハンドラーが必要とする最小限のインターフェースとして定義する。
type EntityMetricsRecorder interface {
	RecordEntityOperation(entity, operation string)
}

// ClientHandler は顧客管理のHTTPハンドラー。
type ClientHandler struct {
	repo    repository.ClientRepository
	metrics EntityMetricsRecorder
}

// NewClientHandler はClientHandlerを生成する。
func NewClientHandler(repo repository.ClientRepository, metrics EntityMetricsRecorder) *ClientHandler {
	return &ClientHandler{
		repo:    repo,
		metrics: metrics,
	}
}

// clientResponse は顧客情報のAPIレスポンス。
type clientResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListClients は全顧客を作成日時の昇順で返す。
// GET /api/clients
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.repo.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]clientResponse, 0, len(clients))
	for i := range clients {
		responses = append(responses, toClientResponse(&clients[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetClient は顧客詳細を取得する。
// GET /api/clients/:id
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	client, err := h.repo.FindByID(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if client == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewClientNotFoundError(clientID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClientResponse(client))
}

// CreateClient は顧客を作成する。IDと作成日時はサーバー側で割り当てる。
// POST /api/clients
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req model.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if details := model.ValidateClientInput(req); len(details) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(details))
		return
	}

	client := &model.Client{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Status:    req.Status,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if client.Status == "" {
		client.Status = model.ClientStatusActive
	}

	if err := h.repo.Create(r.Context(), client); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEntityOperation("client", "create")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toClientResponse(client))
}

// UpdateClient は顧客情報を更新する。IDと作成日時は変更しない。
// PUT /api/clients/:id
func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	var req model.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if details := model.ValidateClientInput(req); len(details) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(details))
		return
	}

	existing, err := h.repo.FindByID(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if existing == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewClientNotFoundError(clientID))
		return
	}

	client := &model.Client{
		ID:        existing.ID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Status:    req.Status,
		CreatedAt: existing.CreatedAt,
	}
	if client.Status == "" {
		client.Status = existing.Status
	}

	if err := h.repo.Update(r.Context(), client); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEntityOperation("client", "update")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClientResponse(client))
}

// DeleteClient は顧客を削除する。参照する商談は削除しない。
// DELETE /api/clients/:id
func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	existing, err := h.repo.FindByID(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if existing == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewClientNotFoundError(clientID))
		return
	}

	if err := h.repo.DeleteByID(r.Context(), clientID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEntityOperation("client", "delete")

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toClientResponse はmodel.ClientからAPIレスポンスに変換する。
func toClientResponse(client *model.Client) clientResponse {
	return clientResponse{
		ID:        client.ID,
		Name:      client.Name,
		Email:     client.Email,
		Phone:     client.Phone,
		Company:   client.Company,
		Status:    string(client.Status),
		CreatedAt: client.CreatedAt,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestError はリクエストボディ解析失敗のエラーレスポンスを書き込む。
func writeInvalidRequestError(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIエラーコードをHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeClientNotFound, model.ErrCodeDealNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailNotConfigured, model.ErrCodeSlackNotConfigured:
		return http.StatusServiceUnavailable
	case model.ErrCodeEmailSendFailed, model.ErrCodeSlackSendFailed,
		model.ErrCodeSlackChannelMissing, model.ErrCodeSlackNotInChannel,
		model.ErrCodeSlackInvalidAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
