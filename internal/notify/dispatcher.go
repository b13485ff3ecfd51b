package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pumpfoilmap/pfm-api/internal/logging"
	"github.com/pumpfoilmap/pfm-api/internal/metrics"
)

// DefaultTimeout bounds a single background delivery.
const DefaultTimeout = 30 * time.Second

// Dispatcher runs deliveries for a Mailer.
type Dispatcher struct {
	mailer  Mailer
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A non-positive timeout uses DefaultTimeout.
func NewDispatcher(mailer Mailer, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{mailer: mailer, logger: logger, timeout: timeout}
}

// Dispatch sends msg in the background and returns immediately. The
// delivery gets its own timeout and does not inherit any request context.
// A message without recipient is skipped.
func (d *Dispatcher) Dispatch(msg Message) {
	if msg.To == "" {
		metrics.RecordNotification(msg.Kind, "skipped", 0)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Notification panicked", "kind", msg.Kind, "panic", r)
				metrics.RecordNotification(msg.Kind, "failed", 0)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		_, _ = d.Send(ctx, msg)
	}()
}

// Send delivers msg synchronously, recording its outcome.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (Result, error) {
	start := time.Now()
	res, err := d.mailer.Send(ctx, msg)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordNotification(msg.Kind, "failed", elapsed.Seconds())
		d.logger.Warn("Notification failed",
			"kind", msg.Kind,
			"to", logging.MaskEmail(msg.To),
			"error", err,
		)
		return Result{}, err
	}

	metrics.RecordNotification(msg.Kind, "sent", elapsed.Seconds())
	d.logger.Info("Notification sent",
		"kind", msg.Kind,
		"to", logging.MaskEmail(msg.To),
		"message_id", res.MessageID,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

// Wait blocks until every dispatched message has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
