package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/state"
)

// Emitter publishes events back to the host. The event bus satisfies this.
type Emitter interface {
	Publish(ctx context.Context, ev *event.Event) error
}

// Request is one execution of the batch node.
type Request struct {
	// NodeID identifies the node so feedback can route back to its widgets.
	// May be Unassigned when the host executes a node it has not finished
	// initializing; feedback is skipped then.
	NodeID event.NodeID

	Source        Source
	SeparatorType SeparatorType
	Separator     string

	// StartIndex is the widget value at execution time. The cursor lives in
	// the persisted record; the widget value is recorded for reset display.
	StartIndex int

	// AutoStop advances the cursor until the final prompt is reached. When
	// false every execution re-serves the current prompt and reports
	// completion.
	AutoStop bool
}

// Result mirrors the node's output slots.
type Result struct {
	Prompt       string
	Status       string
	CurrentIndex int
	Total        int
	Completed    bool
}

func errorResult(err error) *Result {
	return &Result{
		Status:       fmt.Sprintf("Error: %v", err),
		CurrentIndex: -1,
		Completed:    true,
	}
}

// Processor is the batch text iterator. Progress persists in a state store
// between executions; a change to any input resets it.
type Processor struct {
	store   state.Store
	emitter Emitter
	logger  *zap.Logger
}

// NewProcessor creates a batch processor. The emitter may be nil when no
// host feed is attached; feedback events are skipped then.
func NewProcessor(store state.Store, emitter Emitter, logger *zap.Logger) *Processor {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Processor{
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

func (p *Processor) stateKey(id event.NodeID) string {
	if id.Valid() {
		return "text_batch_" + id.String()
	}
	return "text_batch"
}

// Process serves the current prompt and advances the cursor. Failures come
// back as error-shaped results, never as errors: the node always produces
// outputs the rest of the graph can consume.
func (p *Processor) Process(ctx context.Context, req *Request) *Result {
	key := p.stateKey(req.NodeID)
	rec, err := p.store.Load(ctx, key)
	if err != nil {
		p.logger.Error("Error loading batch state", zap.String("key", key), zap.Error(err))
		rec = state.NewRecord()
	}

	content, err := req.Source.Content()
	if err != nil {
		return errorResult(err)
	}

	sig := state.Signature{
		Input:         req.Source.Key(),
		InputMode:     string(req.Source.Mode),
		Separator:     req.Separator,
		SeparatorType: string(req.SeparatorType),
	}

	if !rec.Matches(sig) || rec.Completed {
		rec = state.NewRecord()
		rec.Prompts = Split(content, req.SeparatorType, req.Separator)
		if len(rec.Prompts) == 0 {
			return errorResult(fmt.Errorf("No valid prompts found"))
		}
		rec.SetSignature(sig)
		rec.CurrentIndex = 0
		p.logger.Info("Loaded prompts",
			zap.Int("count", len(rec.Prompts)),
			zap.String("mode", string(req.Source.Mode)))
	}

	total := len(rec.Prompts)
	if total == 0 {
		return &Result{Status: "No prompts loaded", Completed: true}
	}

	currentIndex := rec.CurrentIndex
	if currentIndex > total-1 {
		currentIndex = total - 1
	}
	prompt := rec.Prompts[currentIndex]

	isLast := currentIndex >= total-1
	completed := true
	if !isLast && req.AutoStop {
		rec.CurrentIndex = currentIndex + 1
		completed = false
	}
	rec.Completed = completed
	rec.LastStartIndex = req.StartIndex

	status := fmt.Sprintf("Processing %d/%d", currentIndex+1, total)
	if req.Source.Mode == ModeFile {
		status += " | File: " + filepath.Base(req.Source.File)
	}
	if completed {
		status += " | Completed"
	}

	if err := p.store.Save(ctx, key, rec); err != nil {
		p.logger.Error("Error saving batch state", zap.String("key", key), zap.Error(err))
	}

	if !completed {
		p.emitStartIndex(ctx, req.NodeID, rec.CurrentIndex)
	}

	return &Result{
		Prompt:       prompt,
		Status:       status,
		CurrentIndex: currentIndex,
		Total:        total,
		Completed:    completed,
	}
}

// emitStartIndex pushes the advanced cursor back to the node's start_index
// widget so the UI tracks iteration progress.
func (p *Processor) emitStartIndex(ctx context.Context, nodeID event.NodeID, index int) {
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
