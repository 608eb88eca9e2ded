package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ConsumerManager creates durable pull consumers on the events stream.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// ConsumerOption adjusts the durable consumer config.
type ConsumerOption func(*jetstream.ConsumerConfig)

// WithMaxDeliver caps redeliveries of a message that keeps failing.
func WithMaxDeliver(n int) ConsumerOption {
	return func(c *jetstream.ConsumerConfig) { c.MaxDeliver = n }
}

// WithAckWait sets how long the server waits for an ack before redelivering.
func WithAckWait(d time.Duration) ConsumerOption {
	return func(c *jetstream.ConsumerConfig) { c.AckWait = d }
}

func consumerConfig(name, filterSubject string, opts ...ConsumerOption) jetstream.ConsumerConfig {
	cfg := jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// EnsureConsumer creates or updates a durable consumer on stream.
func (cm *ConsumerManager) EnsureConsumer(ctx context.Context, stream, name, filterSubject string, opts ...ConsumerOption) (jetstream.Consumer, error) {
	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, stream, consumerConfig(name, filterSubject, opts...))
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", name, stream, err)
	}
	return consumer, nil
}
