package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers a rendered message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// SMTPConfig holds connection settings for the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail over plain SMTP with AUTH.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender validates the config and returns an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp sender: host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp sender: from address is required")
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("smtp sender: recipient is required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender records sends through the logger instead of delivering them.
// Used in development and as the fallback when SMTP is not configured.
type LogSender struct {
	Logger func(ctx context.Context, event string, fields map[string]any)
}

func (s *LogSender) Send(ctx context.Context, to string, msg Message) error {
	if s.Logger != nil {
		s.Logger(ctx, "mail.send", map[string]any{
			"to":      to,
			"subject": msg.Subject,
		})
	}
	return nil
}

// sanitizeHeader strips CR/LF to prevent header injection.
func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}
