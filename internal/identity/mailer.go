package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"gopkg.in/gomail.v2"
)

// SMTPMailer sends account mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		sender: sender,
	}
}

// SendPasswordRecovery mails a recovery link.
func (m *SMTPMailer) SendPasswordRecovery(ctx context.Context, to, link string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your Wellnest password")
	msg.SetBody("text/plain", fmt.Sprintf(
		"You requested to reset your password.\n\nOpen this link to choose a new one:\n%s\n\nIf you didn't request this, ignore this email.\n", link))
	msg.AddAlternative("text/html", fmt.Sprintf(
		`<p>You requested to reset your password.</p><p><a href="%s">Reset password</a></p><p>If you didn't request this, ignore this email.</p>`, link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending recovery mail: %w", err)
	}
	return nil
}

// SentMail is a message captured by LogMailer.
type SentMail struct {
	To   string
	Link string
}

// LogMailer writes mail to the log instead of sending it. Used when no SMTP
// relay is configured.
type LogMailer struct {
	logger *slog.Logger
	mu     sync.Mutex
	sent   []SentMail
}

// NewLogMailer creates a mailer that logs at info level.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogMailer{logger: logger}
}

// SendPasswordRecovery logs the recovery link.
func (m *LogMailer) SendPasswordRecovery(ctx context.Context, to, link string) error {
	m.logger.Info("password recovery mail", "to", to, "link", link)
	m.mu.Lock()
	m.sent = append(m.sent, SentMail{To: to, Link: link})
	m.mu.Unlock()
	return nil
}

// Sent returns the captured messages.
func (m *LogMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}
