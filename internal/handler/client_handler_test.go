package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/crmdesk/internal/model"
)

// --- モック定義 ---

// mockClientRepo はrepository.ClientRepositoryのモック実装。
type mockClientRepo struct {
	listAllFn    func(ctx context.Context) ([]model.Client, error)
	findByIDFn   func(ctx context.Context, id string) (*model.Client, error)
	createFn     func(ctx context.Context, client *model.Client) error
	updateFn     func(ctx context.Context, client *model.Client) error
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockClientRepo) ListAll(ctx context.Context) ([]model.Client, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockClientRepo) FindByID(ctx context.Context, id string) (*model.Client, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockClientRepo) Create(ctx context.Context, client *model.Client) error {
	if m.createFn != nil {
		return m.createFn(ctx, client)
	}
	return nil
}

func (m *mockClientRepo) Update(ctx context.Context, client *model.Client) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, client)
	}
	return nil
}

func (m *mockClientRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// mockMetrics はメトリクス記録インターフェース群のモック実装。
type mockMetrics struct {
	mu          sync.Mutex
	entityOps   map[string]int
	emailSent   int
	emailFailed int
	slackSent   int
	slackFailed int
	httpStatus  []int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{entityOps: make(map[string]int)}
}

func (m *mockMetrics) RecordEntityOperation(entity, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entityOps[entity+"/"+operation]++
}

func (m *mockMetrics) RecordEmailSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailSent++
}

func (m *mockMetrics) RecordEmailFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailFailed++
}

func (m *mockMetrics) RecordSlackSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackSent++
}

func (m *mockMetrics) RecordSlackFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackFailed++
}

func (m *mockMetrics) RecordHTTPStatus(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.httpStatus = append(m.httpStatus, statusCode)
}

func (m *mockMetrics) RecordRequestLatency(duration time.Duration) {}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- GET /api/clients テスト ---

func TestClientHandler_ListClients_Success(t *testing.T) {
	repo := &mockClientRepo{
		listAllFn: func(ctx context.Context) ([]model.Client, error) {
			return []model.Client{
				{ID: "c1", Name: "John Doe", Email: "john@example.com", Status: model.ClientStatusActive},
				{ID: "c2", Name: "Jane Smith", Email: "jane@example.com", Status: model.ClientStatusActive},
			}, nil
		},
	}
	h := NewClientHandler(repo, newMockMetrics())

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	w := httptest.NewRecorder()

	h.ListClients(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []clientResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("len(result) = %d, want 2", len(result))
	}
	if result[0].ID != "c1" || result[1].ID != "c2" {
		t.Errorf("client IDs = %q, %q, want c1, c2", result[0].ID, result[1].ID)
	}
}

func TestClientHandler_ListClients_EmptyReturnsEmptyArray(t *testing.T) {
	h := NewClientHandler(&mockClientRepo{}, newMockMetrics())

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	w := httptest.NewRecorder()

	h.ListClients(w, req)

	body := w.Body.String()
	if body != "[]\n" {
		t.Errorf("body = %q, want %q", body, "[]\n")
	}
}

// --- GET /api/clients/:id テスト ---

func TestClientHandler_GetClient_NotFound(t *testing.T) {
	h := NewClientHandler(&mockClientRepo{}, newMockMetrics())

	req := httptest.NewRequest(http.MethodGet, "/api/clients/missing", nil)
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.GetClient(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeClientNotFound {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeClientNotFound)
	}
}

// --- POST /api/clients テスト ---

func TestClientHandler_CreateClient_Success(t *testing.T) {
	var created *model.Client
	repo := &mockClientRepo{
		createFn: func(ctx context.Context, client *model.Client) error {
			created = client
			return nil
		},
	}
	metrics := newMockMetrics()
	h := NewClientHandler(repo, metrics)

	body := `{"name": "Ann", "email": "ann@example.com", "company": "Acme"}`
	req := httptest.NewRequest(http.MethodPost, "/api/clients", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.CreateClient(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if created == nil {
		t.Fatal("repository Create was not called")
	}
	if created.ID == "" {
		t.Error("created client has empty ID, want server-assigned ID")
	}
	if created.CreatedAt == "" {
		t.Error("created client has empty CreatedAt")
	}
	// ステータス未指定時はactiveになる
	if created.Status != model.ClientStatusActive {
		t.Errorf("status = %q, want %q", created.Status, model.ClientStatusActive)
	}
	if metrics.entityOps["client/create"] != 1 {
		t.Errorf("entityOps[client/create] = %d, want 1", metrics.entityOps["client/create"])
	}

	var result clientResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.ID != created.ID {
		t.Errorf("response ID = %q, want %q", result.ID, created.ID)
	}
}

func TestClientHandler_CreateClient_ValidationFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"email": "ann@example.com"}`},
		{name: "missing email", body: `{"name": "Ann"}`},
		{name: "invalid email", body: `{"name": "Ann", "email": "not-an-email"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createCalled := false
			repo := &mockClientRepo{
				createFn: func(ctx context.Context, client *model.Client) error {
					createCalled = true
					return nil
				},
			}
			h := NewClientHandler(repo, newMockMetrics())

			req := httptest.NewRequest(http.MethodPost, "/api/clients", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			h.CreateClient(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if createCalled {
				t.Error("repository Create was called for invalid input")
			}
			result := parseAPIErrorResponse(t, w)
			if result["code"] != model.ErrCodeValidationFailed {
				t.Errorf("code = %q, want %q", result["code"], model.ErrCodeValidationFailed)
			}
		})
	}
}

func TestClientHandler_CreateClient_InvalidJSON(t *testing.T) {
	h := NewClientHandler(&mockClientRepo{}, newMockMetrics())

	req := httptest.NewRequest(http.MethodPost, "/api/clients", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()

	h.CreateClient(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/clients/:id テスト ---

func TestClientHandler_UpdateClient_Success(t *testing.T) {
	existing := &model.Client{
		ID:        "c1",
		Name:      "Ann",
		Email:     "ann@example.com",
		Status:    model.ClientStatusActive,
		CreatedAt: "2024-01-15T09:00:00Z",
	}
	var updated *model.Client
	repo := &mockClientRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Client, error) {
			if id == "c1" {
				return existing, nil
			}
			return nil, nil
		},
		updateFn: func(ctx context.Context, client *model.Client) error {
			updated = client
			return nil
		},
	}
	h := NewClientHandler(repo, newMockMetrics())

	body := `{"name": "Ann K.", "email": "ann@example.com", "status": "inactive"}`
	req := httptest.NewRequest(http.MethodPut, "/api/clients/c1", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "c1")
	w := httptest.NewRecorder()

	h.UpdateClient(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if updated == nil {
		t.Fatal("repository Update was not called")
	}
	if updated.Name != "Ann K." {
		t.Errorf("name = %q, want %q", updated.Name, "Ann K.")
	}
	if updated.Status != model.ClientStatusInactive {
		t.Errorf("status = %q, want %q", updated.Status, model.ClientStatusInactive)
	}
	// IDと作成日時は変更されない
	if updated.ID != "c1" {
		t.Errorf("ID = %q, want %q", updated.ID, "c1")
	}
	if updated.CreatedAt != "2024-01-15T09:00:00Z" {
		t.Errorf("createdAt = %q, want preserved original", updated.CreatedAt)
	}
}

func TestClientHandler_UpdateClient_NotFound(t *testing.T) {
	updateCalled := false
	repo := &mockClientRepo{
		updateFn: func(ctx context.Context, client *model.Client) error {
			updateCalled = true
			return nil
		},
	}
	h := NewClientHandler(repo, newMockMetrics())

	body := `{"name": "Ghost", "email": "ghost@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/api/clients/missing", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.UpdateClient(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if updateCalled {
		t.Error("repository Update was called for missing client")
	}
}

// --- DELETE /api/clients/:id テスト ---

func TestClientHandler_DeleteClient_Success(t *testing.T) {
	var deletedID string
	repo := &mockClientRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Client, error) {
			return &model.Client{ID: id, Name: "Ann", Email: "ann@example.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	metrics := newMockMetrics()
	h := NewClientHandler(repo, metrics)

	req := httptest.NewRequest(http.MethodDelete, "/api/clients/c1", nil)
	req = withChiURLParam(req, "id", "c1")
	w := httptest.NewRecorder()

	h.DeleteClient(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedID != "c1" {
		t.Errorf("deleted ID = %q, want %q", deletedID, "c1")
	}
	if metrics.entityOps["client/delete"] != 1 {
		t.Errorf("entityOps[client/delete] = %d, want 1", metrics.entityOps["client/delete"])
	}
}

func TestClientHandler_DeleteClient_NotFound(t *testing.T) {
	h := NewClientHandler(&mockClientRepo{}, newMockMetrics())

	req := httptest.NewRequest(http.MethodDelete, "/api/clients/missing", nil)
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.DeleteClient(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- エラーマッピングテスト ---

func TestClientHandler_RepositoryError_Returns500(t *testing.T) {
	repo := &mockClientRepo{
		listAllFn: func(ctx context.Context) ([]model.Client, error) {
			return nil, errors.New("connection reset")
		},
	}
	h := NewClientHandler(repo, newMockMetrics())

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	w := httptest.NewRecorder()

	h.ListClients(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", result["code"], "INTERNAL_ERROR")
	}
}

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *model.APIError
		want int
	}{
		{name: "unauthorized", err: model.NewUnauthorizedError(), want: http.StatusUnauthorized},
		{name: "validation", err: model.NewValidationError([]string{"name is required"}), want: http.StatusBadRequest},
		{name: "client not found", err: model.NewClientNotFoundError("c1"), want: http.StatusNotFound},
		{name: "deal not found", err: model.NewDealNotFoundError("d1"), want: http.StatusNotFound},
		{name: "email not configured", err: model.NewEmailNotConfiguredError(), want: http.StatusServiceUnavailable},
		{name: "slack not configured", err: model.NewSlackNotConfiguredError(), want: http.StatusServiceUnavailable},
		{name: "email send failed", err: model.NewEmailSendFailedError("timeout"), want: http.StatusBadGateway},
		{name: "slack channel not found", err: model.NewSlackChannelNotFoundError("#ghost"), want: http.StatusBadGateway},
		{name: "slack not in channel", err: model.NewSlackNotInChannelError("#private"), want: http.StatusBadGateway},
		{name: "slack invalid auth", err: model.NewSlackInvalidAuthError(), want: http.StatusBadGateway},
		{name: "slack send failed", err: model.NewSlackSendFailedError("rate_limited"), want: http.StatusBadGateway},
		{name: "unknown code", err: &model.APIError{Code: "SOMETHING_ELSE"}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}
