package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

type publishResult interface {
	Get(context.Context) (string, error)
}

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Stop()
}

type publisherFactory func(topic string) topicPublisher

// PubSubPublisher publishes to Google Cloud Pub/Sub, caching one publisher
// handle per topic.
type PubSubPublisher struct {
	client  *pubsub.Client
	factory publisherFactory

	mu     sync.Mutex
	topics map[string]topicPublisher
}

func NewPubSubPublisher(client *pubsub.Client) *PubSubPublisher {
	p := &PubSubPublisher{client: client, topics: map[string]topicPublisher{}}
	p.factory = func(topic string) topicPublisher {
		handle := client.Publisher(topic)
		if handle == nil {
			return nil
		}
		return gcpPublisher{handle}
	}
	return p
}

func (p *PubSubPublisher) Publish(ctx context.Context, msg Message) error {
	if msg.Topic == "" {
		return errors.New("pubsub: topic is required")
	}
	pub := p.publisher(msg.Topic)
	if pub == nil {
		return fmt.Errorf("pubsub: topic %q could not be resolved", msg.Topic)
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: "",
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub: publish to %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *PubSubPublisher) publisher(topic string) topicPublisher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pub, ok := p.topics[topic]; ok {
		return pub
	}
	pub := p.factory(topic)
	if pub != nil {
		p.topics[topic] = pub
	}
	return pub
}

// Close flushes every topic publisher then closes the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for topic, pub := range p.topics {
		pub.Stop()
		delete(p.topics, topic)
	}
	p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}

func (g gcpPublisher) Stop() {
	g.p.Stop()
}
