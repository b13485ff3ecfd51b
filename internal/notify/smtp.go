package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// sender abstracts gomail.Dialer for tests.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	dialer   sender
	from     string
	fromName string
}

// NewSMTPMailer creates a mailer for the given relay. Messages are sent
// from the address from, displayed as fromName.
func NewSMTPMailer(host string, port int, username, password, from, fromName string) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

// Send delivers msg. gomail has no context support, so the dial runs in
// its own goroutine and Send returns early when ctx is done; the dial
// itself is bounded by gomail's connection timeout.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (Result, error) {
	if err := msg.validate(); err != nil {
		return Result{}, err
	}

	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(m.from))

	gm := gomail.NewMessage()
	gm.SetHeader("From", gm.FormatAddress(m.from, m.fromName))
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetHeader("Message-ID", id)
	gm.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(gm)
	}()

	select {
	case err := <-done:
		if err != nil {
			return Result{}, fmt.Errorf("smtp send failed: %w", err)
		}
		return Result{MessageID: id}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func domainOf(addr string) string {
	if _, domain, ok := strings.Cut(addr, "@"); ok && domain != "" {
		return domain
	}
	return "localhost"
}
