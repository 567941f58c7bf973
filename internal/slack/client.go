// Package slack はSlack Web API連携機能を提供する。
// チャンネルへのメッセージ投稿、Block Kit形式の通知、および疎通確認を含む。
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/crmdesk/internal/model"
)

const (
	// defaultEndpoint はSlack Web APIのベースURL。
	defaultEndpoint = "https://slack.com/api"
	// DefaultChannel はチャンネル未指定時の投稿先。
	DefaultChannel = "#general"
)

// SendResult はメッセージ投稿の結果。
type SendResult struct {
	Success bool   `json:"success"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
}

// ConnectionStatus は疎通確認の結果。
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Team      string `json:"team,omitempty"`
	User      string `json:"user,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Client はSlack Web APIのクライアント。
// Botトークンが空の場合は未構成として扱い、投稿は常にエラーを返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	channel    string // 既定の投稿先チャンネル
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。
// defaultChannelが空の場合は #general を既定の投稿先とする。
func NewClient(httpClient *http.Client, logger *slog.Logger, token, defaultChannel string) *Client {
	if defaultChannel == "" {
		defaultChannel = DefaultChannel
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		token:      token,
		channel:    defaultChannel,
		endpoint:   defaultEndpoint,
	}
}

// configured はBotトークンが設定されているかを返す。
func (c *Client) configured() bool {
	return c.token != ""
}

// apiResponse はSlack Web APIの共通レスポンス。
type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
	Team    string `json:"team"`
	User    string `json:"user"`
}

// call はSlack Web APIのメソッドをJSONボディ付きで呼び出す。
func (c *Client) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+method, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("slack api call failed",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("slack api response parse failed",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return &result, nil
}

// translateError はSlack APIのエラーコードをAPIErrorに変換する。
func translateError(slackError, channel string) *model.APIError {
	switch slackError {
	case "channel_not_found":
		return model.NewSlackChannelNotFoundError(channel)
	case "not_in_channel":
		return model.NewSlackNotInChannelError(channel)
	case "invalid_auth":
		return model.NewSlackInvalidAuthError()
	default:
		return model.NewSlackSendFailedError(slackError)
	}
}

// TestConnection はauth.testを呼び出してBotトークンの有効性を確認する。
// 未構成の場合は接続失敗として理由を返す（エラーにはしない）。
func (c *Client) TestConnection(ctx context.Context) ConnectionStatus {
	if !c.configured() {
		return ConnectionStatus{Connected: false, Error: "Slackサービスが設定されていません"}
	}

	result, err := c.call(ctx, "auth.test", nil)
	if err != nil {
		return ConnectionStatus{Connected: false, Error: err.Error()}
	}
	if !result.OK {
		return ConnectionStatus{Connected: false, Error: result.Error}
	}
	return ConnectionStatus{Connected: true, Team: result.Team, User: result.User}
}

// postMessage はchat.postMessageを呼び出す。
func (c *Client) postMessage(ctx context.Context, payload map[string]any, channel string) (*SendResult, error) {
	if !c.configured() {
		return nil, model.NewSlackNotConfiguredError()
	}

	payload["channel"] = channel
	payload["username"] = "CRM System"
	payload["icon_emoji"] = ":robot_face:"

	result, err := c.call(ctx, "chat.postMessage", payload)
	if err != nil {
		return nil, model.NewSlackSendFailedError(err.Error())
	}
	if !result.OK {
		c.logger.Warn("slack message rejected",
			slog.String("channel", channel),
			slog.String("slack_error", result.Error),
		)
		return nil, translateError(result.Error, channel)
	}

	c.logger.Info("slack message sent",
		slog.String("channel", result.Channel),
		slog.String("ts", result.TS),
	)
	return &SendResult{Success: true, TS: result.TS, Channel: result.Channel}, nil
}

// SendMessage はテキストメッセージを投稿する。
// channelが空の場合は既定チャンネルに投稿する。
func (c *Client) SendMessage(ctx context.Context, text, channel string) (*SendResult, error) {
	if channel == "" {
		channel = c.channel
	}
	return c.postMessage(ctx, map[string]any{"text": text}, channel)
}

// block はBlock Kitの1ブロック。
type block struct {
	Type     string      `json:"type"`
	Text     *blockText  `json:"text,omitempty"`
	Fields   []blockText `json:"fields,omitempty"`
	Elements []blockText `json:"elements,omitempty"`
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// sendBlocks はBlock Kit形式のメッセージを既定チャンネルに投稿する。
func (c *Client) sendBlocks(ctx context.Context, blocks []block) (*SendResult, error) {
	return c.postMessage(ctx, map[string]any{"blocks": blocks}, c.channel)
}

// SendClientNotification は顧客の作成・更新などをチャンネルに通知する。
// actionには "added" や "updated" のような動詞を渡す。
func (c *Client) SendClientNotification(ctx context.Context, client model.Client, action string) (*SendResult, error) {
	company := client.Company
	if company == "" {
		company = "Not specified"
	}

	blocks := []block{
		{
			Type: "header",
			Text: &blockText{Type: "plain_text", Text: fmt.Sprintf("👤 Client %s", titleCase(action))},
		},
		{
			Type: "section",
			Fields: []blockText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Name:*\n%s", client.Name)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Email:*\n%s", client.Email)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Company:*\n%s", company)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Status:*\n%s", client.Status)},
			},
		},
		{
			Type: "context",
			Elements: []blockText{
				{Type: "mrkdwn", Text: fmt.Sprintf("🕒 %s", time.Now().UTC().Format(time.RFC3339))},
			},
		},
	}
	return c.sendBlocks(ctx, blocks)
}

// SendDealNotification は商談の作成をチャンネルに通知する。
func (c *Client) SendDealNotification(ctx context.Context, deal model.Deal, client model.Client) (*SendResult, error) {
	blocks := []block{
		{
			Type: "header",
			Text: &blockText{Type: "plain_text", Text: "🎯 New Deal Created"},
		},
		{
			Type: "section",
			Fields: []blockText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Deal:*\n%s", deal.Title)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Value:*\n$%.2f", deal.Value)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Client:*\n%s", client.Name)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Stage:*\n%s", deal.Stage)},
			},
		},
		{
			Type: "context",
			Elements: []blockText{
				{Type: "mrkdwn", Text: fmt.Sprintf("Expected close: %s", deal.ExpectedCloseDate)},
			},
		},
	}
	return c.sendBlocks(ctx, blocks)
}

// titleCase は先頭文字のみを大文字にする。
func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}
