package model

import (
	"fmt"
	"net/mail"
	"time"
)

// 入力検証はHTTP境界で行い、ストア内部では再検証しない。
// 検証結果はフィールド単位のメッセージのリストとして返す。

const (
	maxNameLength    = 100
	maxTitleLength   = 200
	maxSubjectLength = 200
)

// ValidateClientInput は顧客入力を検証し、フィールド単位のエラーメッセージを返す。
// 問題がない場合は空のスライスを返す。
func ValidateClientInput(in ClientInput) []string {
	var details []string

	if in.Name == "" {
		details = append(details, "name is required")
	} else if len(in.Name) > maxNameLength {
		details = append(details, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	if in.Email == "" {
		details = append(details, "email is required")
	} else if !isValidEmail(in.Email) {
		details = append(details, "email must be a valid email address")
	}

	// 空のステータスは未指定として扱い、呼び出し側でデフォルトを決める
	switch in.Status {
	case "", ClientStatusActive, ClientStatusInactive:
	default:
		details = append(details, "status must be one of [active inactive]")
	}

	// phoneとcompanyは任意（空文字列を許容）
	return details
}

// ValidateDealInput は商談入力を検証し、フィールド単位のエラーメッセージを返す。
func ValidateDealInput(in DealInput) []string {
	var details []string

	if in.Title == "" {
		details = append(details, "title is required")
	} else if len(in.Title) > maxTitleLength {
		details = append(details, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	if in.Value < 0 {
		details = append(details, "value must be greater than or equal to 0")
	}

	// 空のステージは未指定として扱い、呼び出し側でデフォルトを決める
	if in.Stage != "" && !isValidStage(in.Stage) {
		details = append(details, fmt.Sprintf("stage must be one of %v", DealStages))
	}

	if in.ClientID == "" {
		details = append(details, "clientId is required")
	}

	if in.ExpectedCloseDate == "" {
		details = append(details, "expectedCloseDate is required")
	} else if !isValidDate(in.ExpectedCloseDate) {
		details = append(details, "expectedCloseDate must be a valid date")
	}

	return details
}

// EmailSendInput はメール送信リクエストの入力。
type EmailSendInput struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

// ValidateEmailSendInput はメール送信入力を検証し、フィールド単位のエラーメッセージを返す。
func ValidateEmailSendInput(in EmailSendInput) []string {
	var details []string

	if in.To == "" {
		details = append(details, "to is required")
	} else if !isValidEmail(in.To) {
		details = append(details, "to must be a valid email address")
	}

	if in.Subject == "" {
		details = append(details, "subject is required")
	} else if len(in.Subject) > maxSubjectLength {
		details = append(details, fmt.Sprintf("subject must be at most %d characters", maxSubjectLength))
	}

	if in.HTML == "" {
		details = append(details, "html is required")
	}

	return details
}

func isValidEmail(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return false
	}
	// 表示名付きアドレス（"Name <a@b>"）は入力としては受け付けない
	return parsed.Address == addr
}

func isValidStage(stage DealStage) bool {
	for _, s := range DealStages {
		if s == stage {
			return true
		}
	}
	return false
}

// isValidDate は日付文字列を検証する。
// フロントエンドのdate inputが生成する YYYY-MM-DD 形式と、RFC 3339形式を受け付ける。
func isValidDate(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	return false
}
