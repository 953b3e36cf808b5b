// Package eventbus fans storefront notifications out to an external broker.
// The transport is chosen by configuration; the core only sees Publisher.
package eventbus

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

// Message is a broker-agnostic event envelope.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Publisher delivers a single message. Implementations must honor ctx
// cancellation.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// New builds the Publisher selected by cfg.EventBus.Kind.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EventBus.Kind)) {
	case config.EventBusNone, "":
		return Nop{}, nil
	case config.EventBusPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, logg)
		if err != nil {
			return nil, err
		}
		return NewPubSubPublisher(client), nil
	case config.EventBusKafka:
		return NewKafkaPublisher(cfg.Kafka), nil
	default:
		return nil, fmt.Errorf("unsupported event bus %q", cfg.EventBus.Kind)
	}
}

// Nop discards every message.
type Nop struct{}

func (Nop) Publish(context.Context, Message) error { return nil }

func (Nop) Close() error { return nil }
