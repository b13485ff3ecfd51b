package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMailer records messages and can fail or block.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []Message
	err   error
	block chan struct{}
}

func (f *fakeMailer) Send(ctx context.Context, msg Message) (Result, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Result{}, f.err
	}
	f.sent = append(f.sent, msg)
	return Result{MessageID: "id-1"}, nil
}

func (f *fakeMailer) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func TestDispatcher_DeliversInBackground(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{block: make(chan struct{})}
	d := NewDispatcher(mailer, discardLogger(), time.Second)

	d.Dispatch(Message{Kind: KindAuthorApproved, To: "a@example.org", Subject: "s", Body: "b"})
	// Dispatch returned while the mailer is still blocked.
	assert.Empty(t, mailer.messages())

	close(mailer.block)
	d.Wait()
	require.Len(t, mailer.messages(), 1)
	assert.Equal(t, "a@example.org", mailer.messages()[0].To)
}

func TestDispatcher_SkipsEmptyRecipient(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, discardLogger(), 0)
	d.Dispatch(Message{Kind: KindAuthorApproved, Subject: "s", Body: "b"})
	d.Wait()
	assert.Empty(t, mailer.messages())
}

func TestDispatcher_FailureIsLoggedNotReturned(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	d := NewDispatcher(&fakeMailer{err: errors.New("relay down")}, logger, time.Second)

	d.Dispatch(Message{Kind: KindAuthorDeleted, To: "alice@example.org", Subject: "s", Body: "b"})
	d.Wait()

	out := buf.String()
	assert.Contains(t, out, "Notification failed")
	assert.Contains(t, out, "relay down")
	assert.Contains(t, out, "a***@example.org")
	assert.NotContains(t, out, "alice@example.org")
}

func TestDispatcher_TimeoutDetachedFromCaller(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{block: make(chan struct{})}
	d := NewDispatcher(mailer, discardLogger(), 20*time.Millisecond)

	d.Dispatch(Message{Kind: KindAuthorReceived, To: "a@example.org", Subject: "s", Body: "b"})

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not honour its timeout")
	}
	assert.Empty(t, mailer.messages())
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(panicMailer{}, discardLogger(), time.Second)
	d.Dispatch(Message{Kind: KindAdminSubmission, To: "admin@example.org", Subject: "s", Body: "b"})
	assert.NotPanics(t, d.Wait)
}

type panicMailer struct{}

func (panicMailer) Send(context.Context, Message) (Result, error) { panic("boom") }

func TestDispatcher_SendIsSynchronous(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, discardLogger(), time.Second)

	res, err := d.Send(context.Background(), Message{Kind: KindAdminCustom, To: "admin@example.org", Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", res.MessageID)
	assert.Len(t, mailer.messages(), 1)

	mailer.err = errors.New("nope")
	_, err = d.Send(context.Background(), Message{Kind: KindAdminCustom, To: "admin@example.org", Subject: "s", Body: "b"})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewJSONHandler(&buf, nil)))

	res, err := m.Send(context.Background(), Message{Kind: KindAuthorReceived, To: "bob@example.org", Subject: "Hello", Body: "secret body"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.MessageID, "log-"))
	assert.Contains(t, buf.String(), "b***@example.org")
	assert.NotContains(t, buf.String(), "secret body", "body is only logged at debug")

	_, err = m.Send(context.Background(), Message{To: "bob@example.org"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Send(ctx, Message{To: "bob@example.org", Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

// fakeSender captures gomail messages instead of dialing.
type fakeSender struct {
	got   []*gomail.Message
	err   error
	delay time.Duration
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	time.Sleep(f.delay)
	f.got = append(f.got, m...)
	return f.err
}

func TestSMTPMailer_Send(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	m := NewSMTPMailer("smtp.example.org", 587, "user", "pass", "no-reply@pumpfoilmap.org", "PumpFoilMap")
	m.dialer = fs

	res, err := m.Send(context.Background(), Message{To: "alice@example.org", Subject: "Sujet", Body: "Corps"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.MessageID, "@pumpfoilmap.org>"))

	require.Len(t, fs.got, 1)
	gm := fs.got[0]
	assert.Equal(t, []string{"alice@example.org"}, gm.GetHeader("To"))
	assert.Equal(t, []string{"Sujet"}, gm.GetHeader("Subject"))
	assert.Equal(t, []string{res.MessageID}, gm.GetHeader("Message-ID"))
	assert.Contains(t, gm.GetHeader("From")[0], "no-reply@pumpfoilmap.org")

	var body bytes.Buffer
	_, err = gm.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "Corps")
}

func TestSMTPMailer_Errors(t *testing.T) {
	t.Parallel()

	m := NewSMTPMailer("smtp.example.org", 587, "", "", "no-reply@pumpfoilmap.org", "PumpFoilMap")

	_, err := m.Send(context.Background(), Message{Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	m.dialer = &fakeSender{err: errors.New("535 auth failed")}
	_, err = m.Send(context.Background(), Message{To: "a@example.org", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")

	m.dialer = &fakeSender{delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Send(ctx, Message{To: "a@example.org", Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDomainOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pumpfoilmap.org", domainOf("no-reply@pumpfoilmap.org"))
	assert.Equal(t, "localhost", domainOf("no-domain"))
}
