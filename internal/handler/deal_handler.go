package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/crmdesk/internal/model"
	"github.com/hitoshi/crmdesk/internal/repository"
)

// DealHandler は商談管理のHTTPハンドラー。
type DealHandler struct {
	repo    repository.DealRepository
	metrics EntityMetricsRecorder
}

// NewDealHandler はDealHandlerを生成する。
func NewDealHandler(repo repository.DealRepository, metrics EntityMetricsRecorder) *DealHandler {
	return &DealHandler{
		repo:    repo,
		metrics: metrics,
	}
}

// dealResponse は商談情報のAPIレスポンス。
type dealResponse struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Value             float64 `json:"value"`
	Stage             string  `json:"stage"`
	ClientID          string  `json:"clientId"`
	ExpectedCloseDate string  `json:"expectedCloseDate"`
	CreatedAt         string  `json:"createdAt"`
}

// ListDeals は全商談を作成日時の昇順で返す。
// GET /api/deals
func (h *DealHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.repo.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]dealResponse, 0, len(deals))
	for i := range deals {
		responses = append(responses, toDealResponse(&deals[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetDeal は商談詳細を取得する。
// GET /api/deals/:id
func (h *DealHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "id")

	deal, err := h.repo.FindByID(r.Context(), dealID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if deal == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDealNotFoundError(dealID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDealResponse(deal))
}

// CreateDeal は商談を作成する。clientIdの参照先は検証しない。
// POST /api/deals
func (h *DealHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req model.DealInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if details := model.ValidateDealInput(req); len(details) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(details))
		return
	}

	deal := &model.Deal{
		ID:                uuid.NewString(),
		Title:             req.Title,
		Value:             req.Value,
		Stage:             req.Stage,
		ClientID:          req.ClientID,
		ExpectedCloseDate: req.ExpectedCloseDate,
		CreatedAt:         time.Now().UTC().Format(time.RFC3339),
	}
	if deal.Stage == "" {
		deal.Stage = model.DealStageLead
	}

	if err := h.repo.Create(r.Context(), deal); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEntityOperation("deal", "create")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toDealResponse(deal))
}

// UpdateDeal は商談情報を更新する。ステージ間の遷移ルールは強制しない。
// PUT /api/deals/:id
func (h *DealHandler) UpdateDeal(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "id")

	var req model.DealInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	if details := model.ValidateDealInput(req); len(details) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(details))
		return
	}

	existing, err := h.repo.FindByID(r.Context(), dealID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if existing == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDealNotFoundError(dealID))
		return
	}

	deal := &model.Deal{
		ID:                existing.ID,
		Title:             req.Title,
		Value:             req.Value,
		Stage:             req.Stage,
		ClientID:          req.ClientID,
		ExpectedCloseDate: req.ExpectedCloseDate,
		CreatedAt:         existing.CreatedAt,
	}
	if deal.Stage == "" {
		deal.Stage = existing.Stage
	}

	if err := h.repo.Update(r.Context(), deal); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEntityOperation("deal", "update")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDealResponse(deal))
}

// DeleteDeal は商談を削除する。
// DELETE /api/deals/:id
func (h *DealHandler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "id")

	existing, err := h.repo.FindByID(r.Context(), dealID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if existing == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDealNotFoundError(dealID))
		return
	}

	if err := h.repo.DeleteByID(r.Context(), dealID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEntityOperation("deal", "delete")

	w.WriteHeader(http.StatusNoContent)
}

// toDealResponse はmodel.DealからAPIレスポンスに変換する。
func toDealResponse(deal *model.Deal) dealResponse {
	return dealResponse{
		ID:                deal.ID,
		Title:             deal.Title,
		Value:             deal.Value,
		Stage:             string(deal.Stage),
		ClientID:          deal.ClientID,
		ExpectedCloseDate: deal.ExpectedCloseDate,
		CreatedAt:         deal.CreatedAt,
	}
}
