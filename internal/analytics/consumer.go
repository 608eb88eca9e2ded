package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/impify/impify/internal/metrics"
	inats "github.com/impify/impify/internal/nats"
)

const (
	consumerName = "analytics-persister"
	maxDeliver   = 5
)

// Consumer persists every domain event from the events stream.
type Consumer struct {
	repo        Repository
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo Repository, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start runs the fetch loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectAllEvents,
		inats.WithMaxDeliver(maxDeliver), inats.WithAckWait(30*time.Second))
	if err != nil {
		return err
	}

	slog.Info("analytics consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("analytics consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	row, err := toRow(msg.Data())
	if err != nil {
		// A malformed payload will never decode; drop it instead of
		// redelivering forever.
		slog.Error("analytics consumer: decoding event", "error", err)
		_ = msg.Term()
		return
	}

	if err := c.repo.Insert(ctx, row); err != nil {
		slog.Error("analytics consumer: persisting event", "error", err, "event_type", row.EventType)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	metrics.AnalyticsEventsStored.Inc()

	slog.Debug("analytics consumer: persisted event", "event_type", row.EventType, "user_id", row.UserID)
}

func toRow(payload []byte) (*Event, error) {
	var event inats.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("event %s has no type", event.ID)
	}

	row := &Event{
		ID:        event.ID,
		UserID:    event.UserID,
		EventType: event.Type,
		CreatedAt: event.Timestamp,
	}
	if len(event.Data) > 0 {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return nil, err
		}
		row.Data = data
	}
	return row, nil
}
