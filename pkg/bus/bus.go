// Package bus delivers host events to subscribed handlers. Transports differ
// (in-process, NATS, websocket feed) but dispatch is uniform: handlers for a
// subject run on the relay's event loop in arrival order, and a handler error
// is logged at the boundary, never propagated back to the transport.
package bus

import (
	"context"

	"github.com/promptkit/textbatch/pkg/event"
)

// Bus publishes events and dispatches them to subscribed handlers.
type Bus interface {
	// Publish delivers an event to all handlers subscribed to its subject.
	Publish(ctx context.Context, ev *event.Event) error

	// Subscribe registers a handler for a subject. Multiple handlers per
	// subject are allowed; they run in registration order.
	Subscribe(subject string, handler event.Handler) error
}
