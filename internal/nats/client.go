package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/impify/impify/internal/config"
)

const defaultStreamMaxAge = 30 * 24 * time.Hour

// Client owns the NATS connection and the events stream.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewClient connects to NATS and creates or updates the events stream.
func NewClient(ctx context.Context, cfg config.NATSConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("impify-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	sc := eventStreamConfig(cfg.StreamMaxAge)
	if _, err := js.CreateOrUpdateStream(ctx, sc); err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating stream %s: %w", sc.Name, err)
	}

	slog.Info("connected to NATS", "url", cfg.URL, "stream", sc.Name, "max_age", sc.MaxAge)
	return &Client{conn: nc, js: js}, nil
}

// eventStreamConfig keeps every event subject for maxAge so the analytics
// consumer can replay after downtime.
func eventStreamConfig(maxAge time.Duration) jetstream.StreamConfig {
	if maxAge <= 0 {
		maxAge = defaultStreamMaxAge
	}
	return jetstream.StreamConfig{
		Name:       StreamEvents,
		Subjects:   []string{SubjectAllEvents},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     maxAge,
		Duplicates: 2 * time.Minute,
	}
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Healthy reports whether the connection is up. A nil client is unhealthy.
func (c *Client) Healthy() bool {
	return c != nil && c.conn.IsConnected()
}

// Close drains pending publishes before closing.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("draining NATS connection", "error", err)
	}
}
