package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/eventbus"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	defaultQueueSize       = 256
	defaultWorkers         = 2
	defaultDeliveryTimeout = 5 * time.Second
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// DispatcherParams wires a Dispatcher.
type DispatcherParams struct {
	Store           notificationStore
	Publisher       eventbus.Publisher
	Topic           string
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
	Metrics         *metrics.NotificationMetrics
	Logger          *logger.Logger
}

// Dispatcher is the production Sink. Events are queued and delivered by a
// fixed worker pool: each one is stored in the admin feed then published to
// the event bus. Delivery runs under its own timeout, detached from the
// request that raised the event.
type Dispatcher struct {
	store     notificationStore
	publisher eventbus.Publisher
	topic     string
	timeout   time.Duration
	metrics   *metrics.NotificationMetrics
	logg      *logger.Logger

	queue chan queued
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx   context.Context
	event Event
}

// BusMessage is the payload published for every notification.
type BusMessage struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Store == nil {
		return nil, errors.New("notification store required")
	}
	if params.Publisher == nil {
		params.Publisher = eventbus.Nop{}
	}
	if params.QueueSize <= 0 {
		params.QueueSize = defaultQueueSize
	}
	if params.Workers <= 0 {
		params.Workers = defaultWorkers
	}
	if params.DeliveryTimeout <= 0 {
		params.DeliveryTimeout = defaultDeliveryTimeout
	}

	d := &Dispatcher{
		store:     params.Store,
		publisher: params.Publisher,
		topic:     params.Topic,
		timeout:   params.DeliveryTimeout,
		metrics:   params.Metrics,
		logg:      params.Logger,
		queue:     make(chan queued, params.QueueSize),
	}
	for i := 0; i < params.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d, nil
}

// Notify enqueues the event and returns immediately. A full or closed queue
// drops the event.
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, event, "dispatcher closed")
		return
	}
	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		d.drop(ctx, event, "notification queue full")
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining notifications: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for item := range d.queue {
		d.deliver(item)
	}
}

func (d *Dispatcher) deliver(item queued) {
	ctx, cancel := context.WithTimeout(item.ctx, d.timeout)
	defer cancel()

	event := item.event
	if d.logg != nil {
		ctx = d.logg.WithField(ctx, "notification_type", event.Type.String())
	}

	record := &models.Notification{
		Type:    event.Type,
		Message: event.Message,
		Meta:    event.Meta,
	}
	ok := true
	if err := d.store.Create(ctx, record); err != nil {
		ok = false
		d.metrics.IncFailed("persist")
		if d.logg != nil {
			d.logg.WarnErr(ctx, "notification persist failed", err)
		}
	}

	if err := d.publish(ctx, record); err != nil {
		ok = false
		d.metrics.IncFailed("publish")
		if d.logg != nil {
			d.logg.WarnErr(ctx, "notification publish failed", err)
		}
	}

	if ok {
		d.metrics.IncDelivered(event.Type.String())
	}
}

func (d *Dispatcher) publish(ctx context.Context, record *models.Notification) error {
	if d.topic == "" {
		return nil
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	payload, err := json.Marshal(BusMessage{
		ID:        record.ID.String(),
		Type:      record.Type.String(),
		Message:   record.Message,
		Meta:      record.Meta,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return d.publisher.Publish(ctx, eventbus.Message{
		Topic:      d.topic,
		Key:        partitionKey(record.Meta),
		Data:       payload,
		Attributes: map[string]string{"type": record.Type.String()},
	})
}

func (d *Dispatcher) drop(ctx context.Context, event Event, reason string) {
	d.metrics.IncDropped()
	if d.logg != nil {
		d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
			"notification_type": event.Type.String(),
			"reason":            reason,
		}), "notification dropped")
	}
}

// partitionKey keeps events for the same order, then product, on one partition.
func partitionKey(meta map[string]any) string {
	for _, key := range []string{"orderId", "productId"} {
		if v, ok := meta[key]; ok {
			return fmt.Sprint(v)
		}
	}
	return ""
}
