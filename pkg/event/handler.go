package event

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Handler is a function that processes an incoming host event.
// It receives a context and the event, and returns an error if processing fails.
//
// Handlers sit at the error boundary of the relay: an error returned from a
// handler is logged by the dispatching bus and never propagated back to the
// host. Use middleware to attach recovery and logging uniformly.
type Handler func(ctx context.Context, ev *Event) error

// Middleware is a function that wraps a handler to add additional functionality
type Middleware func(Handler) Handler

// Chain chains multiple middlewares together
func Chain(middlewares ...Middleware) Middleware {
	return func(h Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// RecoveryMiddleware recovers from panics in event handlers
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(ctx, ev)
		}
	}
}

// LoggingMiddleware logs event processing with the given logger
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *Event) error {
			fields := []zap.Field{
				zap.String("subject", ev.Subject),
				zap.String("correlation_id", ev.CorrelationID),
			}
			logger.Debug("Processing event", fields...)
			err := next(ctx, ev)
			if err != nil {
				logger.Error("Error processing event", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("Successfully processed event", fields...)
			}
			return err
		}
	}
}

// ValidationMiddleware validates event envelopes before processing
func ValidationMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *Event) error {
			if ev == nil {
				return fmt.Errorf("event is nil")
			}
			if ev.Subject == "" {
				return fmt.Errorf("event subject is empty")
			}
			if ev.CreatedAt == "" {
				return fmt.Errorf("event CreatedAt is empty")
			}
			return next(ctx, ev)
		}
	}
}
