package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"github.com/tableside/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/tableside/order/internal/dal/rabbitmq"
	"github.com/tableside/order/internal/service/models/outbox"
)

// publisher sends one message to the broker.
type publisher interface {
	Publish(exchange string, routingKey string, msg amqp.Publishing) error
}

type channelPublisher struct {
	client *rabbitmq.Client
}

func (p channelPublisher) Publish(exchange string, routingKey string, msg amqp.Publishing) error {
	return p.client.Channel().Publish(exchange, routingKey, false, false, msg)
}

// Worker drains the outbox table into RabbitMQ. A message stays queued
// until a publish succeeds; each failed attempt doubles its retry delay.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	pub          publisher
	pollInterval time.Duration
	retryBase    time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates an outbox worker publishing through the RabbitMQ client.
func NewWorker(outboxRepo ioutboxrepo.IOutboxRepository, rabbitClient *rabbitmq.Client) *Worker {
	pollSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollSeconds == 0 {
		pollSeconds = 10
	}

	retrySeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retrySeconds == 0 {
		retrySeconds = 30
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		pub:          channelPublisher{client: rabbitClient},
		pollInterval: time.Duration(pollSeconds) * time.Second,
		retryBase:    time.Duration(retrySeconds) * time.Second,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start drains the outbox until the context is cancelled or Stop is called.
// The first drain runs immediately so events enqueued before startup are
// not delayed by a full poll interval.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)

		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// drain publishes one batch of due messages.
func (w *Worker) drain(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to load pending outbox messages", "error", err)

		return
	}
	if len(messages) == 0 {
		return
	}

	slog.Info("Publishing outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := w.publish(msg); err != nil {
			w.scheduleRetry(ctx, msg, err)

			continue
		}

		if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to remove published outbox message", "outbox_id", msg.ID, "error", err)
		}
	}
}

func (w *Worker) publish(msg outbox.OutboxMessage) error {
	return w.pub.Publish(msg.ExchangeName, msg.RoutingKey, amqp.Publishing{
		ContentType: msg.ContentType,
		Body:        msg.Payload,
	})
}

// scheduleRetry records the failed attempt and pushes the message's next
// try out by retryBase doubled per attempt: base, 2x, 4x, ...
func (w *Worker) scheduleRetry(ctx context.Context, msg outbox.OutboxMessage, cause error) {
	attempt := msg.RetryCount + 1
	nextRetryAt := time.Now().Add(w.retryBase << (attempt - 1))

	slog.Warn("Publish failed, rescheduling outbox message",
		"outbox_id", msg.ID,
		"attempt", attempt,
		"next_retry", nextRetryAt,
		"error", cause,
	)

	if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, attempt, cause.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to record outbox retry", "outbox_id", msg.ID, "error", err)
	}
}
