package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host"
)

// Requester performs request-reply over a transport. The NATS bus satisfies
// this; fire-and-forget transports do not.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Queue adapts a transport to host.Queue for out-of-process deployments: a
// host-side shim subscribes to the control subjects and performs the actual
// editor operations.
type Queue struct {
	bus       Bus
	requester Requester
	logger    *zap.Logger
}

// NewQueue creates a transport-backed host queue. The requester is optional;
// without it Serialize is unavailable and reports ErrQueueUnavailable.
func NewQueue(b Bus, requester Requester, logger *zap.Logger) *Queue {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Queue{
		bus:       b,
		requester: requester,
		logger:    logger,
	}
}

// Enqueue implements host.Queue.
func (q *Queue) Enqueue(ctx context.Context, index, priority int) error {
	payload, err := json.Marshal(&event.EnqueueRequest{Index: index, Priority: priority})
	if err != nil {
		return fmt.Errorf("marshal enqueue request: %w", err)
	}
	return q.bus.Publish(ctx, event.NewEvent(event.SubjectEnqueuePrompt, payload))
}

// Serialize implements host.Queue. It requires a request-reply transport.
func (q *Queue) Serialize(ctx context.Context) (*host.Prompt, error) {
	if q.requester == nil {
		return nil, sdkerrors.ErrQueueUnavailable
	}
	data, err := q.requester.Request(ctx, event.SubjectSerializeGraph, nil)
	if err != nil {
		return nil, fmt.Errorf("serialize graph: %w", err)
	}
	var prompt host.Prompt
	if err := json.Unmarshal(data, &prompt); err != nil {
		return nil, fmt.Errorf("decode serialized prompt: %w", err)
	}
	return &prompt, nil
}

// Submit implements host.Queue.
func (q *Queue) Submit(ctx context.Context, prompt *host.Prompt) error {
	if prompt == nil {
		return sdkerrors.ErrInvalidEvent
	}
	payload, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("marshal prompt: %w", err)
	}
	return q.bus.Publish(ctx, event.NewEvent(event.SubjectSubmitPrompt, payload))
}
