// Package notify delivers booking confirmation messages.  Delivery is best
// effort: the Dispatcher logs failures and never reports them to callers.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/jampad-booking/internal/config"
)

// Sender delivers one message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dispatcher sends notifications through a Sender, swallowing errors.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
}

// NewDispatcher wraps sender.  A nil sender logs messages instead of
// sending them.
func NewDispatcher(sender Sender) *Dispatcher {
	if sender == nil {
		sender = LogSender{}
	}
	return &Dispatcher{sender: sender, timeout: 20 * time.Second}
}

// FromConfig picks an SMTP sender when credentials are configured and a
// log-only sender otherwise.
func FromConfig(cfg config.MailConfig) *Dispatcher {
	if !cfg.Enabled() {
		log.Warn().Msg("smtp credentials missing; notifications will only be logged")
		return NewDispatcher(LogSender{})
	}
	return NewDispatcher(NewMailSender(cfg))
}

// DeliveryError wraps a failure to deliver one message.  The Dispatcher
// logs it and never returns it to callers.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Notify sends one message.  Failures are logged and dropped.
func (d *Dispatcher) Notify(ctx context.Context, recipient, subject, body string) {
	if err := d.deliver(ctx, recipient, subject, body); err != nil {
		log.Error().Err(err).Str("recipient", recipient).Str("subject", subject).Msg("notification delivery failed")
	}
}

func (d *Dispatcher) deliver(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(ctx, recipient, subject, body); err != nil {
		return &DeliveryError{Recipient: recipient, Err: err}
	}
	return nil
}

// LogSender writes messages to the application log.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, body string) error {
	log.Info().Str("recipient", to).Str("subject", subject).Int("body_bytes", len(body)).Msg("notification (mail disabled)")
	return nil
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailSender delivers plain text mail over SMTP.
type MailSender struct {
	from   string
	dialer mailDialer
}

// NewMailSender builds a sender from the SMTP settings.
func NewMailSender(cfg config.MailConfig) *MailSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	return &MailSender{from: cfg.Sender(), dialer: d}
}

func (s *MailSender) Send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
