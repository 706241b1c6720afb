// Package email implements outbound delivery and message assembly for
// lead replies and internal forwards.
package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers assembled messages over SMTP via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

var _ ports.EmailSender = (*SMTPSender)(nil)

func (s *SMTPSender) Enabled() bool { return true }

func (s *SMTPSender) Send(ctx context.Context, msg ports.OutboundMessage) error {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	for _, att := range msg.Attachments {
		m.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// NoopSender is used when delivery is disabled. Terminal transitions still
// complete; nothing leaves the system.
type NoopSender struct{}

var _ ports.EmailSender = NoopSender{}

func (NoopSender) Enabled() bool { return false }

func (NoopSender) Send(context.Context, ports.OutboundMessage) error { return nil }

// NewSender picks the SMTP sender when delivery is configured and the
// noop sender otherwise.
func NewSender(cfg config.EmailConfig) ports.EmailSender {
	if cfg.GetEmailEnabled() {
		return NewSMTPSender(cfg)
	}
	return NoopSender{}
}
