// Package notify delivers email notifications about spot moderation.
//
// Delivery is best-effort: Dispatcher.Dispatch returns immediately and a
// failed send is logged and counted, never reported to the caller.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pumpfoilmap/pfm-api/internal/logging"
)

var (
	// ErrNotConfigured is returned when a message has no destination
	// because the admin mailbox is not configured.
	ErrNotConfigured = errors.New("notify: admin mailbox not configured")

	// ErrInvalidMessage is returned for a message without recipient, subject or body.
	ErrInvalidMessage = errors.New("notify: message needs a recipient, subject and body")
)

// Message is one plain-text email.
type Message struct {
	// Kind labels the message in logs and metrics (see the Kind* constants).
	Kind    string
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.Body) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Result describes an accepted message.
type Result struct {
	MessageID string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg and returns a generated message ID.
func (m *LogMailer) Send(ctx context.Context, msg Message) (Result, error) {
	if err := msg.validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	id := "log-" + uuid.NewString()
	m.logger.Info("Email not sent, no SMTP relay configured",
		"kind", msg.Kind,
		"to", logging.MaskEmail(msg.To),
		"subject", msg.Subject,
		"message_id", id,
	)
	m.logger.Debug("Email body", "message_id", id, "body", msg.Body)
	return Result{MessageID: id}, nil
}
