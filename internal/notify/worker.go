package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"event-ticketing-core/internal/monitoring"
)

// retryStore is the part of RetryQueue the worker needs
type retryStore interface {
	Enqueue(ctx context.Context, d *Delivery) error
	Due(ctx context.Context, limit int) ([]*Delivery, error)
}

// RetryWorker re-attempts parked deliveries on a schedule
type RetryWorker struct {
	queue       retryStore
	notifier    Notifier
	renderer    Renderer
	maxAttempts int
	batchSize   int
	timeout     time.Duration
}

// NewRetryWorker creates a retry worker
func NewRetryWorker(queue retryStore, notifier Notifier, renderer Renderer, maxAttempts, batchSize int) *RetryWorker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &RetryWorker{
		queue:       queue,
		notifier:    notifier,
		renderer:    renderer,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		timeout:     30 * time.Second,
	}
}

// Schedule registers the worker on s to run every interval. Overlapping runs
// are skipped.
func (w *RetryWorker) Schedule(s gocron.Scheduler, interval time.Duration) (gocron.Job, error) {
	return s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			defer cancel()

			if _, err := w.RunOnce(ctx); err != nil {
				slog.Error("delivery retry run failed", "error", err)
			}
		}),
		gocron.WithName("delivery-retry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
}

// RunOnce attempts one batch of due deliveries and returns how many were sent
func (w *RetryWorker) RunOnce(ctx context.Context) (int, error) {
	due, err := w.queue.Due(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, d := range due {
		if w.attempt(ctx, d) {
			sent++
		}
	}
	return sent, nil
}

func (w *RetryWorker) attempt(ctx context.Context, d *Delivery) bool {
	w.renderMissing(d)
	d.Attempts++

	err := w.notifier.Deliver(ctx, d)
	if err == nil {
		slog.Info("delivered tickets on retry", "order", d.OrderNumber, "attempts", d.Attempts)
		monitoring.TrackDelivery(StatusSent)
		return true
	}

	if d.Attempts >= w.maxAttempts {
		slog.Error("abandoning ticket delivery", "order", d.OrderNumber, "attempts", d.Attempts, "error", err)
		monitoring.TrackDelivery(StatusFailed)
		return false
	}

	if qerr := w.queue.Enqueue(ctx, d); qerr != nil {
		slog.Error("failed to requeue delivery", "order", d.OrderNumber, "error", qerr)
		monitoring.TrackDelivery(StatusFailed)
		return false
	}

	slog.Warn("ticket delivery failed, requeued", "order", d.OrderNumber, "attempts", d.Attempts, "error", err)
	monitoring.TrackDelivery(StatusQueued)
	return false
}

// renderMissing restores images dropped when the delivery was serialized
func (w *RetryWorker) renderMissing(d *Delivery) {
	if w.renderer == nil {
		return
	}
	for i := range d.Tickets {
		if len(d.Tickets[i].PNG) > 0 {
			continue
		}
		img, err := w.renderer.Render(d.Tickets[i].Payload)
		if err != nil {
			slog.Warn("failed to render ticket image for retry", "order", d.OrderNumber, "ticket", d.Tickets[i].TicketID, "error", err)
			continue
		}
		d.Tickets[i].PNG = img
	}
}
