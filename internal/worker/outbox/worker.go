package outbox

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/storefront/internal/metrics"
	"github.com/corray333/backend-labs/storefront/internal/service/models/outbox"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type publisher interface {
	Publish(ctx context.Context, msg outbox.OutboxMessage) error
}

// Worker processes messages from the outbox table.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRepository
	publisher     publisher
	pollInterval  time.Duration
	batchSize     int
	parallelism   int
	retryInterval time.Duration
	now           func() time.Time
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	parallelism := viper.GetInt("rabbitmq.outbox.parallelism")
	if parallelism == 0 {
		parallelism = 4
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	return &Worker{
		outboxRepo:    outboxRepo,
		publisher:     publisher,
		pollInterval:  time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:     batchSize,
		parallelism:   parallelism,
		retryInterval: time.Duration(retryIntervalSeconds) * time.Second,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.ProcessMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// ProcessMessages publishes one batch of pending messages.
func (w *Worker) ProcessMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Debug("Processing outbox messages", "count", len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, msg := range messages {
		g.Go(func() error {
			w.process(gctx, msg)

			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) process(ctx context.Context, msg outbox.OutboxMessage) {
	if err := w.publisher.Publish(ctx, msg); err != nil {
		metrics.OutboxPublished.WithLabelValues("failed").Inc()

		// Exponential backoff: retryInterval, 2x, 4x, ...
		newRetryCount := msg.RetryCount + 1
		backoff := time.Duration(math.Pow(2, float64(newRetryCount-1))) * w.retryInterval
		nextRetryAt := w.now().Add(backoff)

		slog.Warn("Failed to publish message from outbox, will retry",
			"outbox_id", msg.ID,
			"routing_key", msg.RoutingKey,
			"retry_count", newRetryCount,
			"next_retry", nextRetryAt,
			"error", err,
		)

		if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
			slog.Error("Failed to update retry information", "outbox_id", msg.ID, "error", err)
		}

		return
	}

	metrics.OutboxPublished.WithLabelValues("published").Inc()

	if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
		slog.Error("Failed to delete message from outbox after successful publish",
			"outbox_id", msg.ID,
			"error", err,
		)

		return
	}

	slog.Debug("Message published and removed from outbox", "outbox_id", msg.ID, "routing_key", msg.RoutingKey)
}
