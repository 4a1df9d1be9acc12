// Package notify emails operators about conditions that need a human:
// today that is a deletion sweep failing outright. Per-item failures are
// not emailed; those live in the audit ledger and metrics.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mailjet "github.com/mailjet/mailjet-apiv3-go"

	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

// Config carries the mailjet credentials and addressing for operator alerts.
// A zero Config yields a mailer that logs and drops every alert, so callers
// never branch on whether email is configured.
type Config struct {
	PublicKey  string
	PrivateKey string
	Sender     string
	SenderName string
	Recipient  string
}

func (c Config) enabled() bool {
	return c.PublicKey != "" && c.PrivateKey != "" && c.Sender != "" && c.Recipient != ""
}

// sender is the one mailjet call the mailer makes, behind an interface so
// tests can capture outgoing mail.
type sender interface {
	send(messages *mailjet.MessagesV31) error
}

type mailjetSender struct {
	client *mailjet.Client
}

func (s *mailjetSender) send(messages *mailjet.MessagesV31) error {
	_, err := s.client.SendMailV31(messages)
	return err
}

// Mailer sends operator alerts through mailjet.
type Mailer struct {
	cfg    Config
	client sender
	logger *slog.Logger
}

// Option configures optional Mailer dependencies.
type Option func(*Mailer)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func withSender(s sender) Option {
	return func(m *Mailer) {
		m.client = s
	}
}

// NewMailer builds the notifier. Without complete credentials the mailer is
// a no-op that logs dropped alerts.
func NewMailer(cfg Config, opts ...Option) *Mailer {
	m := &Mailer{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil && cfg.enabled() {
		m.client = &mailjetSender{client: mailjet.NewMailjetClient(cfg.PublicKey, cfg.PrivateKey)}
	}
	return m
}

// SweepFailure alerts operators that a scheduled deletion sweep failed
// before processing anything. Due deletions stay pending, so the alert notes
// that the next run retries them.
func (m *Mailer) SweepFailure(ctx context.Context, cause error) error {
	body := fmt.Sprintf(
		"The scheduled account deletion sweep failed at %s.\n\nError: %v\n\nDue deletions remain pending and the next scheduled run will pick them up.",
		requestcontext.Now(ctx).UTC().Format(time.RFC3339),
		cause,
	)
	return m.deliver(ctx, "Account deletion sweep failed", body)
}

func (m *Mailer) deliver(ctx context.Context, subject, body string) error {
	if m.client == nil {
		m.logger.InfoContext(ctx, "mail notifier not configured, dropping alert", "subject", subject)
		return nil
	}

	messages := &mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: m.cfg.Sender, Name: m.cfg.SenderName},
		To:       &mailjet.RecipientsV31{mailjet.RecipientV31{Email: m.cfg.Recipient}},
		Subject:  subject,
		TextPart: body,
	}}}
	if err := m.client.send(messages); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to send ops alert")
	}

	m.logger.InfoContext(ctx, "ops alert sent", "subject", subject, "recipient", m.cfg.Recipient)
	return nil
}
