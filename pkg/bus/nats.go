package bus

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/sched"
)

// NATS is a bus over a NATS connection, for deployments where the host and
// the relay are separate processes. Events are published as JSON envelopes;
// incoming messages may be envelopes or bare host payloads keyed by subject.
type NATS struct {
	conn   *nats.Conn
	sch    *sched.Scheduler
	logger *zap.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATS creates a NATS-backed bus over an established connection.
func NewNATS(conn *nats.Conn, sch *sched.Scheduler, logger *zap.Logger) (*NATS, error) {
	if conn == nil {
		return nil, sdkerrors.ErrNotConnected
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &NATS{
		conn:   conn,
		sch:    sch,
		logger: logger,
	}, nil
}

// Publish implements Bus.
func (b *NATS) Publish(ctx context.Context, ev *event.Event) error {
	if ev == nil || ev.Subject == "" {
		return sdkerrors.ErrInvalidEvent
	}
	data, err := ev.ToBytes()
	if err != nil {
		return err
	}
	return b.conn.Publish(ev.Subject, data)
}

// Subscribe implements Bus. The handler runs on the relay's event loop when
// a scheduler is attached, keeping node and widget access single-threaded.
func (b *NATS) Subscribe(subject string, handler event.Handler) error {
	if subject == "" {
		return sdkerrors.ErrInvalidSubject
	}
	if handler == nil {
		return sdkerrors.ErrInvalidEvent
	}

	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		ev := decode(msg.Subject, msg.Data)
		// Delivery originates on the wire, so there is no publisher context
		// to thread through; handlers get a fresh background context.
		dispatch := func() {
			if err := handler(context.Background(), ev); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("subject", ev.Subject),
					zap.String("correlation_id", ev.CorrelationID),
					zap.Error(err))
			}
		}
		if b.sch == nil {
			dispatch()
			return
		}
		if err := b.sch.Post(dispatch); err != nil {
			b.logger.Warn("Dropping event, scheduler stopped",
				zap.String("subject", ev.Subject))
		}
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return nil
}

// Request performs request-reply over the connection. Used by the queue
// adapter for graph serialization, which needs a response body.
func (b *NATS) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	if subject == "" {
		return nil, sdkerrors.ErrInvalidSubject
	}
	msg, err := b.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// Close drains all subscriptions.
func (b *NATS) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.subs = nil
	return firstErr
}

// decode accepts either a serialized envelope or a bare host payload.
func decode(subject string, data []byte) *event.Event {
	if ev, err := event.FromBytes(data); err == nil && ev.Subject != "" {
		return ev
	}
	return event.FromHostPayload(subject, data)
}
