package notifications

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Event is a notification about to be delivered. Meta carries references such
// as orderId, productId, and userId.
type Event struct {
	Type    enums.NotificationType
	Message string
	Meta    map[string]any
}

// Sink accepts notifications without blocking the caller. Delivery failures
// are handled by the sink and never surface to the caller.
type Sink interface {
	Notify(ctx context.Context, event Event)
}

// Discard is a Sink that drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
