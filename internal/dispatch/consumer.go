package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// postingEvent is the wire message published by the ingestion side for every
// newly discovered posting.
type postingEvent struct {
	PostingID int64 `json:"posting_id"`
}

// Deduper is the duplicate-suppression surface the consumer needs. The Redis
// client in shared/redis implements it.
type Deduper interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// setupConsumer configures QoS on the RabbitMQ channel and starts consuming
// posting events.
func (e *Engine) setupConsumer() (<-chan amqp.Delivery, error) {
	channel := e.rabbitClient.GetChannel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	if err := channel.Qos(e.prefetchCount, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := e.rabbitClient.Consume(e.consumerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return deliveries, nil
}

// consumeLoop drains posting events until ctx is canceled or the delivery
// channel closes. Producers only ever reach the queue through Enqueue, which
// is safe under concurrency; the dispatcher drains alone.
func (e *Engine) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Posting consumer stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				e.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			requeue, err := e.handlePosting(ctx, delivery.Body)
			if err != nil {
				e.logger.Error("Failed to handle posting event",
					slog.String("body", string(delivery.Body)),
					slog.Bool("requeue", requeue),
					slog.Any("error", err),
				)
				if nackErr := delivery.Nack(false, requeue); nackErr != nil {
					e.logger.Error("Failed to NACK posting event",
						slog.Any("error", nackErr),
					)
				}
				continue
			}

			if ackErr := delivery.Ack(false); ackErr != nil {
				e.logger.Error("Failed to ACK posting event",
					slog.Any("error", ackErr),
				)
			}
		}
	}
}

// handlePosting matches one posting against all schedules and enqueues a
// work item per eligible user. The returned bool is the requeue decision for
// a NACK when err is non-nil.
func (e *Engine) handlePosting(ctx context.Context, body []byte) (bool, error) {
	var event postingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Malformed events go to the DLQ, not back on the queue.
		return false, fmt.Errorf("malformed posting event: %w", err)
	}
	if event.PostingID <= 0 {
		return false, fmt.Errorf("posting event with invalid posting_id %d", event.PostingID)
	}

	if e.alreadySeen(ctx, event.PostingID) {
		e.logger.Debug("Posting already processed, skipping",
			slog.Int64("posting_id", event.PostingID),
		)
		return false, nil
	}

	posting, err := e.store.GetPosting(ctx, event.PostingID)
	if err != nil {
		if errors.Is(err, domain.ErrPostingNotFound) {
			// Invariant violation for this event only; drop it.
			return false, fmt.Errorf("posting %d not found: %w", event.PostingID, err)
		}
		return true, fmt.Errorf("failed to load posting %d: %w", event.PostingID, err)
	}

	schedules, err := e.store.ListSchedules(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to list schedules: %w", err)
	}

	credentials, err := e.store.ListCredentials(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to list credentials: %w", err)
	}

	credByUser := make(map[int64]domain.Credential, len(credentials))
	for _, c := range credentials {
		credByUser[c.UserID] = c
	}

	eligible := Match(posting, schedules, credByUser, time.Now())

	e.logger.Info("Posting matched",
		slog.Int64("posting_id", posting.ID),
		slog.Int64("category_id", posting.CategoryID),
		slog.Int("eligible_users", len(eligible)),
	)

	for _, userID := range eligible {
		e.queue.Enqueue(userID, posting.ID)
	}

	// Mark only now. A requeued delivery that failed above must not find the
	// posting marked as seen, or the retry would be acked and lost.
	e.markSeen(ctx, posting.ID)

	return false, nil
}

func dedupeKey(postingID int64) string {
	return fmt.Sprintf("dispatch:seen:%d", postingID)
}

// alreadySeen reports whether the posting was fully processed before. The
// guard is best effort: on redis failure the posting is processed anyway, the
// orchestrator's already-bid check keeps duplicates harmless.
func (e *Engine) alreadySeen(ctx context.Context, postingID int64) bool {
	if e.deduper == nil {
		return false
	}

	seen, err := e.deduper.Exists(ctx, dedupeKey(postingID))
	if err != nil {
		e.logger.Warn("Posting dedupe check failed, proceeding without it",
			slog.Int64("posting_id", postingID),
			slog.Any("error", err),
		)
		return false
	}
	return seen
}

// markSeen records a fully processed posting so redeliveries are dropped.
func (e *Engine) markSeen(ctx context.Context, postingID int64) {
	if e.deduper == nil {
		return
	}

	if _, err := e.deduper.SetNX(ctx, dedupeKey(postingID), "1", e.dedupeTTL); err != nil {
		e.logger.Warn("Failed to mark posting as processed",
			slog.Int64("posting_id", postingID),
			slog.Any("error", err),
		)
	}
}
