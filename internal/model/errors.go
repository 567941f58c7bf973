// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeClientNotFound      = "CLIENT_NOT_FOUND"
	ErrCodeDealNotFound        = "DEAL_NOT_FOUND"
	ErrCodeEmailNotConfigured  = "EMAIL_NOT_CONFIGURED"
	ErrCodeEmailSendFailed     = "EMAIL_SEND_FAILED"
	ErrCodeSlackNotConfigured  = "SLACK_NOT_CONFIGURED"
	ErrCodeSlackChannelMissing = "SLACK_CHANNEL_NOT_FOUND"
	ErrCodeSlackNotInChannel   = "SLACK_NOT_IN_CHANNEL"
	ErrCodeSlackInvalidAuth    = "SLACK_INVALID_AUTH"
	ErrCodeSlackSendFailed     = "SLACK_SEND_FAILED"
)

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "APIキーまたはトークンを確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
// detailsにはフィールドごとのエラーメッセージを渡す。
func NewValidationError(details []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力の検証に失敗しました: %v", details),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewClientNotFoundError は顧客未検出エラーを生成する。
func NewClientNotFoundError(clientID string) *APIError {
	return &APIError{
		Code:     ErrCodeClientNotFound,
		Message:  fmt.Sprintf("指定された顧客が見つかりません: %s", clientID),
		Category: "validation",
		Action:   "顧客IDを確認してください。",
	}
}

// NewDealNotFoundError は商談未検出エラーを生成する。
func NewDealNotFoundError(dealID string) *APIError {
	return &APIError{
		Code:     ErrCodeDealNotFound,
		Message:  fmt.Sprintf("指定された商談が見つかりません: %s", dealID),
		Category: "validation",
		Action:   "商談IDを確認してください。",
	}
}

// NewEmailNotConfiguredError はメール送信設定の未構成エラーを生成する。
func NewEmailNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotConfigured,
		Message:  "メールサービスが設定されていません。",
		Category: "provider",
		Action:   "SMTP_USERとSMTP_PASSWORDの設定を確認してください。",
	}
}

// NewEmailSendFailedError はメール送信失敗エラーを生成する。
func NewEmailSendFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailSendFailed,
		Message:  fmt.Sprintf("メールの送信に失敗しました: %s", reason),
		Category: "provider",
		Action:   "SMTPの設定と宛先アドレスを確認してください。",
	}
}

// NewSlackNotConfiguredError はSlack連携の未構成エラーを生成する。
func NewSlackNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeSlackNotConfigured,
		Message:  "Slackサービスが設定されていません。",
		Category: "provider",
		Action:   "SLACK_BOT_TOKENの設定を確認してください。",
	}
}

// NewSlackChannelNotFoundError はチャンネル未検出エラーを生成する。
// Botがチャンネルに招待されていない場合にも発生する。
func NewSlackChannelNotFoundError(channel string) *APIError {
	return &APIError{
		Code:     ErrCodeSlackChannelMissing,
		Message:  fmt.Sprintf("Slackチャンネルが見つかりません: %s", channel),
		Category: "provider",
		Action:   "チャンネル名を確認し、Botをチャンネルに招待してください。",
	}
}

// NewSlackNotInChannelError はBot未参加エラーを生成する。
func NewSlackNotInChannelError(channel string) *APIError {
	return &APIError{
		Code:     ErrCodeSlackNotInChannel,
		Message:  fmt.Sprintf("Botがチャンネルに参加していません: %s", channel),
		Category: "provider",
		Action:   "先にBotをチャンネルに招待してください。",
	}
}

// NewSlackInvalidAuthError はSlackトークン不正エラーを生成する。
func NewSlackInvalidAuthError() *APIError {
	return &APIError{
		Code:     ErrCodeSlackInvalidAuth,
		Message:  "Slack Botトークンが無効です。",
		Category: "provider",
		Action:   "SLACK_BOT_TOKENの設定を確認してください。",
	}
}

// NewSlackSendFailedError はSlack送信失敗エラーを生成する。
func NewSlackSendFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSlackSendFailed,
		Message:  fmt.Sprintf("Slackメッセージの送信に失敗しました: %s", reason),
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
