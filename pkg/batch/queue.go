package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/state"
)

// QueueRequest is one execution of the queue-driven line processor.
type QueueRequest struct {
	NodeID        event.NodeID
	Text          string
	SeparatorType SeparatorType
	Separator     string

	// StartIndex floors the cursor: iteration never serves a line before it.
	StartIndex int

	// TriggerNext emits a queue trigger event after serving a non-final
	// line, so the host immediately runs the next one.
	TriggerNext bool
}

// QueueResult mirrors the queue processor node's output slots.
type QueueResult struct {
	Text         string
	CurrentIndex int
	Total        int
	Completed    bool
	Status       string
}

// QueueProcessor serves one line per execution and asks the host to queue
// the next execution itself, chaining through a whole batch without manual
// re-queueing.
type QueueProcessor struct {
	store   state.Store
	emitter Emitter
	logger  *zap.Logger
}

// NewQueueProcessor creates a queue processor.
func NewQueueProcessor(store state.Store, emitter Emitter, logger *zap.Logger) *QueueProcessor {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &QueueProcessor{
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

func (p *QueueProcessor) stateKey(id event.NodeID) string {
	if id.Valid() {
		return "text_queue_" + id.String()
	}
	return "text_queue"
}

// Process serves the current line, advances the cursor, and emits the queue
// trigger for non-final lines when triggering is enabled. On completion the
// cursor rewinds to zero so the next execution starts over.
func (p *QueueProcessor) Process(ctx context.Context, req *QueueRequest) *QueueResult {
	key := p.stateKey(req.NodeID)
	rec, err := p.store.Load(ctx, key)
	if err != nil {
		p.logger.Error("Error loading queue state", zap.String("key", key), zap.Error(err))
		rec = state.NewRecord()
	}

	if rec.LastInput != req.Text || rec.Completed {
		rec = state.NewRecord()
		rec.LastInput = req.Text
	}

	lines := Split(req.Text, req.SeparatorType, req.Separator)
	total := len(lines)
	if total == 0 {
		return &QueueResult{
			CurrentIndex: -1,
			Completed:    true,
			Status:       "No valid text found",
		}
	}

	currentIndex := rec.CurrentIndex
	if req.StartIndex > currentIndex {
		currentIndex = req.StartIndex
	}
	if currentIndex > total-1 {
		currentIndex = total - 1
	}
	text := lines[currentIndex]

	isLast := currentIndex >= total-1
	completed := true
	if !isLast && req.TriggerNext {
		rec.CurrentIndex = currentIndex + 1
		completed = false
		p.emitAddQueue(ctx, req.NodeID)
	} else {
		rec.CurrentIndex = 0
	}
	rec.Completed = completed

	if err := p.store.Save(ctx, key, rec); err != nil {
		p.logger.Error("Error saving queue state", zap.String("key", key), zap.Error(err))
	}

	status := fmt.Sprintf("Processing %d/%d", currentIndex+1, total)
	if completed {
		status += " | Completed"
	}

	if !completed {
		p.emitStartIndex(ctx, req.NodeID, rec.CurrentIndex)
	}

	return &QueueResult{
		Text:         text,
		CurrentIndex: currentIndex,
		Total:        total,
		Completed:    completed,
		Status:       status,
	}
}

func (p *QueueProcessor) emitAddQueue(ctx context.Context, nodeID event.NodeID) {
	if p.emitter == nil {
		return
	}
	if err := p.emitter.Publish(ctx, event.NewAddQueue()); err != nil {
		p.logger.Error("Error publishing queue trigger",
			zap.Stringer("node_id", nodeID), zap.Error(err))
	}
}

func (p *QueueProcessor) emitStartIndex(ctx context.Context, nodeID event.NodeID, index int) {
	if p.emitter == nil || !nodeID.Valid() {
		return
	}
	ev, err := event.NewFeedback(nodeID, "start_index", event.TypeInt, index)
	if err != nil {
		p.logger.Error("Error building feedback event", zap.Error(err))
		return
	}
	if err := p.emitter.Publish(ctx, ev); err != nil {
		p.logger.Error("Error publishing feedback event",
			zap.Stringer("node_id", nodeID), zap.Error(err))
	}
}
