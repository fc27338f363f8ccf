package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/sched"
)

// InProc is an in-process bus for embedded use and tests. When a scheduler
// is provided, handlers run on its loop goroutine; otherwise they run inline
// on the publisher's goroutine.
type InProc struct {
	mu       sync.Mutex
	handlers map[string][]event.Handler
	sch      *sched.Scheduler
	logger   *zap.Logger
}

// NewInProc creates an in-process bus. Both scheduler and logger are
// optional.
func NewInProc(sch *sched.Scheduler, logger *zap.Logger) *InProc {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &InProc{
		handlers: make(map[string][]event.Handler),
		sch:      sch,
		logger:   logger,
	}
}

// Subscribe implements Bus.
func (b *InProc) Subscribe(subject string, handler event.Handler) error {
	if subject == "" {
		return sdkerrors.ErrInvalidSubject
	}
	if handler == nil {
		return sdkerrors.ErrInvalidEvent
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = append(b.handlers[subject], handler)
	return nil
}

// Publish implements Bus. Dispatch never fails for handler errors; those are
// logged at the boundary. Publish itself fails only when the event is
// malformed or the scheduler has stopped.
func (b *InProc) Publish(ctx context.Context, ev *event.Event) error {
	if ev == nil || ev.Subject == "" {
		return sdkerrors.ErrInvalidEvent
	}

	b.mu.Lock()
	handlers := make([]event.Handler, len(b.handlers[ev.Subject]))
	copy(handlers, b.handlers[ev.Subject])
	b.mu.Unlock()

	// Handlers receive the publisher's context so cancellation and trace
	// context carry through. Loop-dispatched handlers may observe a context
	// that was cancelled after Publish returned; handlers treat that as a
	// skip, not a failure.
	dispatch := func() {
		for _, h := range handlers {
			if err := h(ctx, ev); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("subject", ev.Subject),
					zap.String("correlation_id", ev.CorrelationID),
					zap.Error(err))
			}
		}
	}

	if b.sch == nil {
		dispatch()
		return nil
	}
	return b.sch.Post(dispatch)
}
