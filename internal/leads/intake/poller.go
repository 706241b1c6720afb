// Package intake polls a shared sales mailbox and turns unseen messages
// into lead submissions, so inquiries sent by email enter the same
// pipeline as the web form.
package intake

import (
	"context"
	"strings"
	"time"

	"leadintake_backend/internal/leads/service"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/logger"

	imap "github.com/BrianLeishman/go-imap"
)

type Poller struct {
	cfg   config.IntakeConfig
	leads *service.Service
	log   *logger.Logger
}

func NewPoller(cfg config.IntakeConfig, leads *service.Service, log *logger.Logger) *Poller {
	return &Poller{cfg: cfg, leads: leads, log: log}
}

// Run polls until the context is cancelled. Each cycle opens a fresh
// connection; mail servers drop idle IMAP sessions aggressively.
func (p *Poller) Run(ctx context.Context) {
	interval := p.cfg.GetIMAPPollInterval()
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				p.log.UpstreamError("imap", "poll", err)
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	conn, err := imap.New(p.cfg.GetIMAPUsername(), p.cfg.GetIMAPPassword(), p.cfg.GetIMAPHost(), p.cfg.GetIMAPPort())
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SelectFolder(p.cfg.GetIMAPFolder()); err != nil {
		return err
	}

	uids, err := conn.GetUIDs("UNSEEN")
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		return nil
	}

	emails, err := conn.GetEmails(uids...)
	if err != nil {
		return err
	}

	for uid, mail := range emails {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if mail == nil {
			continue
		}

		input, ok := submissionFromEmail(mail)
		if !ok {
			p.log.Warn("skipping unparsable inbox message", "uid", uid, "subject", mail.Subject)
			// Mark it seen anyway so the same message is not retried forever.
			if err := conn.MarkSeen(uid); err != nil {
				p.log.UpstreamError("imap", "mark_seen", err)
			}
			continue
		}

		if _, err := p.leads.Submit(ctx, input); err != nil {
			// Leave the message unseen; the next cycle retries it.
			p.log.Error("inbox submission failed", "uid", uid, "error", err)
			continue
		}

		if err := conn.MarkSeen(uid); err != nil {
			p.log.UpstreamError("imap", "mark_seen", err)
		}
	}

	return nil
}

func submissionFromEmail(mail *imap.Email) (service.SubmitInput, bool) {
	var address, name string
	for addr, displayName := range mail.From {
		address = addr
		name = displayName
		break
	}
	if address == "" {
		return service.SubmitInput{}, false
	}
	if name == "" {
		name = address
	}

	body := strings.TrimSpace(mail.Text)
	if body == "" {
		body = strings.TrimSpace(mail.HTML)
	}
	if body == "" {
		return service.SubmitInput{}, false
	}

	message := body
	if subject := strings.TrimSpace(mail.Subject); subject != "" {
		message = subject + "\n\n" + body
	}

	return service.SubmitInput{
		Name:    name,
		Email:   address,
		Message: message,
		Source:  "email",
	}, true
}
