package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/crmdesk/internal/model"
	"github.com/hitoshi/crmdesk/internal/slack"
)

// mockSlack はSlackInterfaceのモック実装。
type mockSlack struct {
	testConnectionFn         func(ctx context.Context) slack.ConnectionStatus
	sendMessageFn            func(ctx context.Context, text, channel string) (*slack.SendResult, error)
	sendClientNotificationFn func(ctx context.Context, client model.Client, action string) (*slack.SendResult, error)
	sendDealNotificationFn   func(ctx context.Context, deal model.Deal, client model.Client) (*slack.SendResult, error)
}

func (m *mockSlack) TestConnection(ctx context.Context) slack.ConnectionStatus {
	if m.testConnectionFn != nil {
		return m.testConnectionFn(ctx)
	}
	return slack.ConnectionStatus{Connected: true}
}

func (m *mockSlack) SendMessage(ctx context.Context, text, channel string) (*slack.SendResult, error) {
	if m.sendMessageFn != nil {
		return m.sendMessageFn(ctx, text, channel)
	}
	return &slack.SendResult{Success: true, TS: "123.456", Channel: "C123"}, nil
}

func (m *mockSlack) SendClientNotification(ctx context.Context, client model.Client, action string) (*slack.SendResult, error) {
	if m.sendClientNotificationFn != nil {
		return m.sendClientNotificationFn(ctx, client, action)
	}
	return &slack.SendResult{Success: true, TS: "123.456", Channel: "C123"}, nil
}

func (m *mockSlack) SendDealNotification(ctx context.Context, deal model.Deal, client model.Client) (*slack.SendResult, error) {
	if m.sendDealNotificationFn != nil {
		return m.sendDealNotificationFn(ctx, deal, client)
	}
	return &slack.SendResult{Success: true, TS: "123.456", Channel: "C123"}, nil
}

// --- GET /api/slack/test テスト ---

func TestSlackHandler_TestConnection_ReturnsStatus(t *testing.T) {
	client := &mockSlack{
		testConnectionFn: func(ctx context.Context) slack.ConnectionStatus {
			return slack.ConnectionStatus{Connected: true, Team: "Acme", User: "crmbot"}
		},
	}
	h := NewSlackHandler(client, newMockMetrics())

	req := httptest.NewRequest(http.MethodGet, "/api/slack/test", nil)
	w := httptest.NewRecorder()

	h.TestConnection(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var status slack.ConnectionStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Team != "Acme" || status.User != "crmbot" {
		t.Errorf("team/user = %q/%q, want Acme/crmbot", status.Team, status.User)
	}
}

// --- POST /api/slack/send-message テスト ---

func TestSlackHandler_SendMessage_Success(t *testing.T) {
	var gotText, gotChannel string
	client := &mockSlack{
		sendMessageFn: func(ctx context.Context, text, channel string) (*slack.SendResult, error) {
			gotText = text
			gotChannel = channel
			return &slack.SendResult{Success: true, TS: "111.222", Channel: "C999"}, nil
		},
	}
	metrics := newMockMetrics()
	h := NewSlackHandler(client, metrics)

	body := `{"text": "Deal closed!", "channel": "#sales"}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/send-message", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SendMessage(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotText != "Deal closed!" {
		t.Errorf("text = %q, want %q", gotText, "Deal closed!")
	}
	if gotChannel != "#sales" {
		t.Errorf("channel = %q, want %q", gotChannel, "#sales")
	}
	if metrics.slackSent != 1 {
		t.Errorf("slackSent = %d, want 1", metrics.slackSent)
	}
}

func TestSlackHandler_SendMessage_MissingText(t *testing.T) {
	sendCalled := false
	client := &mockSlack{
		sendMessageFn: func(ctx context.Context, text, channel string) (*slack.SendResult, error) {
			sendCalled = true
			return nil, nil
		},
	}
	h := NewSlackHandler(client, newMockMetrics())

	body := `{"channel": "#sales"}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/send-message", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SendMessage(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if sendCalled {
		t.Error("slack SendMessage was called for invalid input")
	}
}

func TestSlackHandler_SendMessage_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *model.APIError
		wantStatus int
		wantCode   string
	}{
		{
			name:       "channel not found",
			err:        model.NewSlackChannelNotFoundError("#ghost"),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeSlackChannelMissing,
		},
		{
			name:       "not in channel",
			err:        model.NewSlackNotInChannelError("#private"),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeSlackNotInChannel,
		},
		{
			name:       "invalid auth",
			err:        model.NewSlackInvalidAuthError(),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeSlackInvalidAuth,
		},
		{
			name:       "not configured",
			err:        model.NewSlackNotConfiguredError(),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   model.ErrCodeSlackNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockSlack{
				sendMessageFn: func(ctx context.Context, text, channel string) (*slack.SendResult, error) {
					return nil, tt.err
				},
			}
			metrics := newMockMetrics()
			h := NewSlackHandler(client, metrics)

			body := `{"text": "hello"}`
			req := httptest.NewRequest(http.MethodPost, "/api/slack/send-message", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			h.SendMessage(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			result := parseAPIErrorResponse(t, w)
			if result["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", result["code"], tt.wantCode)
			}
			if metrics.slackFailed != 1 {
				t.Errorf("slackFailed = %d, want 1", metrics.slackFailed)
			}
		})
	}
}

// --- POST /api/slack/client-notification テスト ---

func TestSlackHandler_SendClientNotification_Success(t *testing.T) {
	var gotClient model.Client
	var gotAction string
	client := &mockSlack{
		sendClientNotificationFn: func(ctx context.Context, c model.Client, action string) (*slack.SendResult, error) {
			gotClient = c
			gotAction = action
			return &slack.SendResult{Success: true}, nil
		},
	}
	h := NewSlackHandler(client, newMockMetrics())

	body := `{"client": {"name": "Ann", "email": "ann@example.com"}, "action": "updated"}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/client-notification", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SendClientNotification(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotClient.Name != "Ann" {
		t.Errorf("client name = %q, want %q", gotClient.Name, "Ann")
	}
	if gotAction != "updated" {
		t.Errorf("action = %q, want %q", gotAction, "updated")
	}
}

// アクション未指定時はcreatedになる
func TestSlackHandler_SendClientNotification_DefaultAction(t *testing.T) {
	var gotAction string
	client := &mockSlack{
		sendClientNotificationFn: func(ctx context.Context, c model.Client, action string) (*slack.SendResult, error) {
			gotAction = action
			return &slack.SendResult{Success: true}, nil
		},
	}
	h := NewSlackHandler(client, newMockMetrics())

	body := `{"client": {"name": "Ann", "email": "ann@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/client-notification", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SendClientNotification(w, req)

	if gotAction != "created" {
		t.Errorf("action = %q, want %q", gotAction, "created")
	}
}

func TestSlackHandler_SendClientNotification_MissingName(t *testing.T) {
	h := NewSlackHandler(&mockSlack{}, newMockMetrics())

	body := `{"client": {"email": "ann@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/client-notification", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SendClientNotification(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- POST /api/slack/deal-notification テスト ---

func TestSlackHandler_SendDealNotification_Success(t *testing.T) {
	var gotDeal model.Deal
	client := &mockSlack{
		sendDealNotificationFn: func(ctx context.Context, deal model.Deal, c model.Client) (*slack.SendResult, error) {
			gotDeal = deal
			return &slack.SendResult{Success: true}, nil
		},
	}
	h := NewSlackHandler(client, newMockMetrics())

	body := `{"deal": {"title": "Website Redesign", "value": 15000, "stage": "proposal"}, "client": {"name": "Ann"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/deal-notification", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SendDealNotification(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotDeal.Title != "Website Redesign" {
		t.Errorf("deal title = %q, want %q", gotDeal.Title, "Website Redesign")
	}
}

func TestSlackHandler_SendDealNotification_MissingTitle(t *testing.T) {
	h := NewSlackHandler(&mockSlack{}, newMockMetrics())

	body := `{"deal": {"value": 100}, "client": {"name": "Ann"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/deal-notification", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SendDealNotification(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
