// Package mq publishes lifecycle notifications to a message broker.
package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coachline/coaching-core/internal/pkg/config"
)

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

// Open selects a backend by name: "rabbitmq", "pubsub" or "log".
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Notify.Backend)) {
	case "rabbitmq":
		b, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return New(b), nil
	case "pubsub":
		b, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return New(b), nil
	case "", "log":
		return New(NewLogBackend(log)), nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.Notify.Backend)
	}
}
