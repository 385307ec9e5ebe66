package integrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/your-org/visora/internal/config"
)

var (
	ErrNotConfigured = errors.New("email credentials not configured")
	ErrNoRecipient   = errors.New("recipient address is required")
)

// Email is one plain-text message.
type Email struct {
	To      string
	CC      string // optional
	Subject string
	Body    string
}

// Mailer sends plain-text mail through an SMTP relay with mandatory STARTTLS.
type Mailer struct {
	cfg  config.EmailConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

func (m *Mailer) Configured() bool {
	return m.cfg.Configured()
}

func (m *Mailer) Send(ctx context.Context, e Email) error {
	if !m.Configured() {
		slog.Error("email credentials not found")
		return ErrNotConfigured
	}
	msg, err := m.buildMessage(e)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		slog.Error("send email failed", "to", e.To, "error", err)
		return fmt.Errorf("send email: %w", err)
	}
	slog.Info("email sent", "to", e.To, "cc", e.CC)
	return nil
}

func (m *Mailer) buildMessage(e Email) (*mail.Msg, error) {
	to := strings.TrimSpace(e.To)
	if to == "" {
		return nil, ErrNoRecipient
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.User); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	if cc := strings.TrimSpace(e.CC); cc != "" {
		if err := msg.Cc(cc); err != nil {
			return nil, fmt.Errorf("set cc: %w", err)
		}
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.Body)
	return msg, nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
