// Package email はSMTP経由のメール送信機能を提供する。
// ウェルカムメールと商談通知のテンプレート、および疎通確認を含む。
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/crmdesk/internal/model"
	"github.com/hitoshi/crmdesk/internal/security"
)

// SendResult はメール送信の結果。
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// ConnectionStatus は疎通確認の結果。
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	User      string `json:"user,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Options はMailerのSMTP接続設定。
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Mailer はSMTP経由でメールを送信する。
// UserとPasswordが未設定の場合は未構成として扱い、送信は常にエラーを返す。
type Mailer struct {
	opts      Options
	sanitizer security.EmailSanitizerService
	logger    *slog.Logger

	// テスト用に差し替え可能な送信・疎通関数
	sendFn   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	verifyFn func(addr string) error
}

// NewMailer はMailerの新しいインスタンスを生成する。
func NewMailer(opts Options, sanitizer security.EmailSanitizerService, logger *slog.Logger) *Mailer {
	return &Mailer{
		opts:      opts,
		sanitizer: sanitizer,
		logger:    logger,
		sendFn:    smtp.SendMail,
		verifyFn:  verifySMTP,
	}
}

// configured はSMTP認証情報が揃っているかを返す。
func (m *Mailer) configured() bool {
	return m.opts.User != "" && m.opts.Password != ""
}

// addr はSMTPサーバーの接続先アドレスを返す。
func (m *Mailer) addr() string {
	return m.opts.Host + ":" + strconv.Itoa(m.opts.Port)
}

// TestConnection はSMTPサーバーへの疎通を確認する。
// 未構成の場合は接続失敗として理由を返す（エラーにはしない）。
func (m *Mailer) TestConnection(ctx context.Context) ConnectionStatus {
	if !m.configured() {
		return ConnectionStatus{Connected: false, Error: "メールサービスが設定されていません"}
	}
	if err := ctx.Err(); err != nil {
		return ConnectionStatus{Connected: false, Error: err.Error()}
	}

	if err := m.verifyFn(m.addr()); err != nil {
		m.logger.Warn("smtp connection check failed",
			slog.String("host", m.opts.Host),
			slog.String("error", err.Error()),
		)
		return ConnectionStatus{Connected: false, Error: err.Error()}
	}

	return ConnectionStatus{Connected: true, User: m.opts.User}
}

// Send はメールを1通送信する。
// HTML本文はサニタイズしてから送信し、テキストパートが空の場合は
// HTMLからタグを除去した本文で補完する。HTMLが空の場合はテキストを本文に使う。
func (m *Mailer) Send(ctx context.Context, input model.EmailSendInput) (*SendResult, error) {
	if !m.configured() {
		return nil, model.NewEmailNotConfiguredError()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	html := m.sanitizer.Sanitize(input.HTML)
	text := input.Text
	if html == "" {
		html = text
	}
	if text == "" {
		text = htmlToText(html)
	}

	messageID := fmt.Sprintf("<%s@crmdesk>", uuid.NewString())
	msg := buildMessage(m.fromHeader(), input.To, input.Subject, messageID, html, text)

	auth := smtp.PlainAuth("", m.opts.User, m.opts.Password, m.opts.Host)
	if err := m.sendFn(m.addr(), auth, m.fromAddress(), []string{input.To}, msg); err != nil {
		m.logger.Error("email send failed",
			slog.String("to", input.To),
			slog.String("error", err.Error()),
		)
		return nil, model.NewEmailSendFailedError(err.Error())
	}

	m.logger.Info("email sent",
		slog.String("to", input.To),
		slog.String("message_id", messageID),
	)
	return &SendResult{Success: true, MessageID: messageID}, nil
}

// SendWelcome は新規顧客へのウェルカムメールを送信する。
func (m *Mailer) SendWelcome(ctx context.Context, client model.Client) (*SendResult, error) {
	company := client.Company
	if company == "" {
		company = "Not specified"
	}

	subject := fmt.Sprintf("Welcome to Our CRM System, %s!", client.Name)
	html := fmt.Sprintf(`<h2>Welcome to Our CRM System!</h2>
<p>Dear %s,</p>
<p>Thank you for joining our CRM system. We're excited to help you manage your business relationships more effectively.</p>
<p>Here are your account details:</p>
<ul>
<li><strong>Name:</strong> %s</li>
<li><strong>Email:</strong> %s</li>
<li><strong>Company:</strong> %s</li>
</ul>
<p>If you have any questions, please don't hesitate to contact us.</p>
<br>
<p>Best regards,<br>CRM Team</p>`,
		client.Name, client.Name, client.Email, company)

	return m.Send(ctx, model.EmailSendInput{To: client.Email, Subject: subject, HTML: html})
}

// SendDealNotification は商談作成を顧客に通知するメールを送信する。
func (m *Mailer) SendDealNotification(ctx context.Context, client model.Client, deal model.Deal) (*SendResult, error) {
	subject := fmt.Sprintf("New Deal: %s", deal.Title)
	html := fmt.Sprintf(`<h2>New Deal Created</h2>
<p>Hello %s,</p>
<p>A new deal has been created in our system:</p>
<h3>%s</h3>
<ul>
<li><strong>Value:</strong> $%s</li>
<li><strong>Stage:</strong> %s</li>
<li><strong>Expected Close:</strong> %s</li>
</ul>
<br>
<p>Best regards,<br>CRM Team</p>`,
		client.Name, deal.Title, formatAmount(deal.Value), deal.Stage, deal.ExpectedCloseDate)

	return m.Send(ctx, model.EmailSendInput{To: client.Email, Subject: subject, HTML: html})
}

// fromAddress はエンベロープのFromアドレスを返す。
func (m *Mailer) fromAddress() string {
	if m.opts.From != "" {
		return m.opts.From
	}
	return m.opts.User
}

// fromHeader は表示名付きのFromヘッダ値を返す。
func (m *Mailer) fromHeader() string {
	return fmt.Sprintf("CRM System <%s>", m.fromAddress())
}

// buildMessage はmultipart/alternative形式のメッセージを組み立てる。
func buildMessage(from, to, subject, messageID, html, text string) []byte {
	boundary := "crmdesk-" + uuid.NewString()

	var b strings.Builder
	writeHeader := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	writeHeader("From", from)
	writeHeader("To", to)
	writeHeader("Subject", subject)
	writeHeader("Message-ID", messageID)
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
	b.WriteString("\r\n")

	writePart := func(contentType, body string) {
		b.WriteString("--" + boundary + "\r\n")
		writeHeader("Content-Type", contentType+"; charset=UTF-8")
		b.WriteString("\r\n")
		b.WriteString(body)
		b.WriteString("\r\n")
	}
	writePart("text/plain", text)
	writePart("text/html", html)
	b.WriteString("--" + boundary + "--\r\n")

	return []byte(b.String())
}

// verifySMTP はSMTPサーバーに接続してHELOを送る。
func verifySMTP(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("SMTPアドレスのパースに失敗しました: %w", err)
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("SMTPサーバーへの接続に失敗しました: %w", err)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTPセッションの開始に失敗しました: %w", err)
	}
	defer client.Close()

	if err := client.Hello("crmdesk"); err != nil {
		return fmt.Errorf("SMTPサーバーへのHELOに失敗しました: %w", err)
	}
	return client.Quit()
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// htmlToText はHTMLからタグを除去してプレーンテキストに変換する。
func htmlToText(html string) string {
	text := tagPattern.ReplaceAllString(html, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// formatAmount は金額を3桁区切りで整形する。小数部は切り捨てずに保持する。
func formatAmount(value float64) string {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var negative bool
	if strings.HasPrefix(intPart, "-") {
		negative = true
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	result := b.String() + fracPart
	if negative {
		result = "-" + result
	}
	return result
}
