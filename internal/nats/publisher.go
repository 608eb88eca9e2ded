package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// EventPublisher is what the domain services depend on.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event Event) error
}

// Publisher publishes events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishEvent publishes event on impify.events.{type}. The event id doubles
// as the JetStream message id, so a retried publish is deduplicated.
func (p *Publisher) PublishEvent(ctx context.Context, event Event) error {
	return p.publish(ctx, Subject(event.Type), event, jetstream.WithMsgID(event.ID.String()))
}

func (p *Publisher) publish(ctx context.Context, subject string, data any, opts ...jetstream.PublishOpt) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload, opts...)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// NopPublisher drops events. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, Event) error { return nil }

// Emit publishes event and logs instead of failing. Events are analytics, so a
// broker outage never fails the operation that produced them.
func Emit(ctx context.Context, pub EventPublisher, event Event) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, event); err != nil {
		slog.Warn("publishing event", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}
