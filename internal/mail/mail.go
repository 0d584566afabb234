// Package mail delivers rendered emails. Delivery never returns an error:
// failures are reported in the Result so callers can treat mail as best effort.
package mail

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

// Result reports the outcome of a send.
type Result struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `json:"sent_at,omitempty"`
}

// Mailer sends one message to many recipients in a single call.
type Mailer interface {
	Send(ctx context.Context, htmlBody, subject string, recipients []string) Result
}

// SMTPConfig holds SMTP server credentials.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer sends HTML mail through an SMTP relay with recipients in Bcc.
type SMTPMailer struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("SMTP_PORT not set")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM not set")
	}
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, htmlBody, subject string, recipients []string) Result {
	if len(recipients) == 0 {
		return Result{Error: "no recipients"}
	}
	if err := ctx.Err(); err != nil {
		return Result{Error: err.Error()}
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := m.cfg.Host + ":" + m.cfg.Port
	msg := buildMessage(m.cfg.From, subject, htmlBody)

	done := make(chan error, 1)
	go func() { done <- m.sendMail(addr, auth, m.cfg.From, recipients, msg) }()

	select {
	case err := <-done:
		if err != nil {
			return Result{Error: fmt.Sprintf("smtp send failed: %v", err)}
		}
	case <-ctx.Done():
		return Result{Error: ctx.Err().Error()}
	}

	now := time.Now()
	return Result{
		Success:   true,
		MessageID: fmt.Sprintf("smtp-%d", now.UnixNano()),
		SentAt:    now,
	}
}

// Recipients go in the envelope only, so subscribers never see each other.
func buildMessage(from, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + from + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(subject)) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Disabled is used when no SMTP relay is configured. Every send fails.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string, []string) Result {
	return Result{Error: "mailer not configured"}
}
