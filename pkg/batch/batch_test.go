package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/state"
)

// memStore keeps records in a map, good enough for iterator tests.
type memStore struct {
	records map[string]*state.Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*state.Record)}
}

func (s *memStore) Load(ctx context.Context, key string) (*state.Record, error) {
	if rec, ok := s.records[key]; ok {
		copied := *rec
		copied.Prompts = append([]string(nil), rec.Prompts...)
		return &copied, nil
	}
	return state.NewRecord(), nil
}

func (s *memStore) Save(ctx context.Context, key string, rec *state.Record) error {
	s.records[key] = rec
	return nil
}

// captureEmitter records published events.
type captureEmitter struct {
	events []*event.Event
}

func (c *captureEmitter) Publish(ctx context.Context, ev *event.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *captureEmitter) bySubject(subject string) []*event.Event {
	var out []*event.Event
	for _, ev := range c.events {
		if ev.Subject == subject {
			out = append(out, ev)
		}
	}
	return out
}

func textRequest(id event.NodeID, text string) *Request {
	return &Request{
		NodeID:        id,
		Source:        Source{Mode: ModeText, Text: text},
		SeparatorType: SeparatorNewline,
		AutoStop:      true,
	}
}

func TestProcess_IteratesThroughPrompts(t *testing.T) {
	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	ctx := context.Background()
	req := textRequest(1, "alpha\nbeta\ngamma")

	r := p.Process(ctx, req)
	assert.Equal(t, "alpha", r.Prompt)
	assert.Equal(t, 0, r.CurrentIndex)
	assert.Equal(t, 3, r.Total)
	assert.False(t, r.Completed)
	assert.Equal(t, "Processing 1/3", r.Status)

	r = p.Process(ctx, req)
	assert.Equal(t, "beta", r.Prompt)
	assert.False(t, r.Completed)

	r = p.Process(ctx, req)
	assert.Equal(t, "gamma", r.Prompt)
	assert.True(t, r.Completed)
	assert.Equal(t, "Processing 3/3 | Completed", r.Status)
}

func TestProcess_RestartsAfterCompletion(t *testing.T) {
	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	ctx := context.Background()
	req := textRequest(1, "one\ntwo")

	p.Process(ctx, req)
	p.Process(ctx, req)
	r := p.Process(ctx, req)
	assert.Equal(t, "one", r.Prompt, "completed batch must restart from the first prompt")
}

func TestProcess_ResetsOnInputChange(t *testing.T) {
	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	ctx := context.Background()

	p.Process(ctx, textRequest(1, "a\nb\nc"))
	r := p.Process(ctx, textRequest(1, "x\ny"))
	assert.Equal(t, "x", r.Prompt)
	assert.Equal(t, 0, r.CurrentIndex)
	assert.Equal(t, 2, r.Total)
}

func TestProcess_ResetsOnSeparatorChange(t *testing.T) {
	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	ctx := context.Background()

	p.Process(ctx, textRequest(1, "a|b|c"))
	req := textRequest(1, "a|b|c")
	req.SeparatorType = SeparatorCustom
	req.Separator = "|"
	r := p.Process(ctx, req)
	assert.Equal(t, "a", r.Prompt)
	assert.Equal(t, 3, r.Total)
}

func TestProcess_NoAutoStopServesCurrentAndCompletes(t *testing.T) {
	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	ctx := context.Background()
	req := textRequest(1, "a\nb\nc")
	req.AutoStop = false

	r := p.Process(ctx, req)
	assert.Equal(t, "a", r.Prompt)
	assert.True(t, r.Completed)

	// Completed forces a reload, so the same prompt is served again.
	r = p.Process(ctx, req)
	assert.Equal(t, "a", r.Prompt)
}

func TestProcess_EmitsFeedbackWhileIterating(t *testing.T) {
	em := &captureEmitter{}
	p := NewProcessor(newMemStore(), em, zap.NewNop())
	ctx := context.Background()
	req := textRequest(3, "a\nb")

	p.Process(ctx, req)
	require.Len(t, em.events, 1)
	fb, err := em.events[0].Feedback()
	require.NoError(t, err)
	assert.Equal(t, event.NodeID(3), fb.NodeID)
	assert.Equal(t, "start_index", fb.WidgetName)
	v, err := fb.CoercedValue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Final execution completes, no feedback.
	p.Process(ctx, req)
	assert.Len(t, em.events, 1)
}

func TestProcess_UnassignedNodeSkipsFeedback(t *testing.T) {
	em := &captureEmitter{}
	p := NewProcessor(newMemStore(), em, zap.NewNop())
	p.Process(context.Background(), textRequest(event.Unassigned, "a\nb"))
	assert.Empty(t, em.events)
}

func TestProcess_EmptyTextIsErrorResult(t *testing.T) {
	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	r := p.Process(context.Background(), textRequest(1, "   "))
	assert.True(t, r.Completed)
	assert.Equal(t, -1, r.CurrentIndex)
	assert.Contains(t, r.Status, "Error:")
	assert.Contains(t, r.Status, "Please provide input text")
}

func TestProcess_MissingFileIsErrorResult(t *testing.T) {
	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	req := &Request{
		NodeID:        1,
		Source:        Source{Mode: ModeFile, File: "/no/such/file.txt"},
		SeparatorType: SeparatorNewline,
	}
	r := p.Process(context.Background(), req)
	assert.True(t, r.Completed)
	assert.Contains(t, r.Status, "File not found")
}

func TestProcess_FileModeStatusNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb"), 0o644))

	p := NewProcessor(newMemStore(), nil, zap.NewNop())
	req := &Request{
		NodeID:        1,
		Source:        Source{Mode: ModeFile, File: path},
		SeparatorType: SeparatorNewline,
		AutoStop:      true,
	}
	r := p.Process(context.Background(), req)
	assert.Equal(t, "a", r.Prompt)
	assert.Contains(t, r.Status, "File: prompts.txt")
}

func TestProcess_PerNodeStateIsIsolated(t *testing.T) {
	store := newMemStore()
	p := NewProcessor(store, nil, zap.NewNop())
	ctx := context.Background()

	p.Process(ctx, textRequest(1, "a\nb\nc"))
	r := p.Process(ctx, textRequest(2, "a\nb\nc"))
	assert.Equal(t, "a", r.Prompt, "a second node must start its own iteration")
}
