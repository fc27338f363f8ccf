package bus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host"
)

type fakeRequester struct {
	subject string
	reply   []byte
	err     error
}

func (f *fakeRequester) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	f.subject = subject
	return f.reply, f.err
}

func TestQueue_EnqueuePublishesControlEvent(t *testing.T) {
	b := NewInProc(nil, zap.NewNop())
	var got *event.Event
	require.NoError(t, b.Subscribe(event.SubjectEnqueuePrompt, func(ctx context.Context, ev *event.Event) error {
		got = ev
		return nil
	}))

	q := NewQueue(b, nil, zap.NewNop())
	require.NoError(t, q.Enqueue(context.Background(), 0, 1))

	require.NotNil(t, got)
	var req event.EnqueueRequest
	require.NoError(t, json.Unmarshal(got.Data, &req))
	assert.Equal(t, 0, req.Index)
	assert.Equal(t, 1, req.Priority)
}

func TestQueue_SerializeNeedsRequester(t *testing.T) {
	q := NewQueue(NewInProc(nil, zap.NewNop()), nil, zap.NewNop())
	_, err := q.Serialize(context.Background())
	assert.ErrorIs(t, err, sdkerrors.ErrQueueUnavailable)
}

func TestQueue_SerializeDecodesPrompt(t *testing.T) {
	req := &fakeRequester{reply: []byte(`{"output":{"3":{}},"workflow":{}}`)}
	q := NewQueue(NewInProc(nil, zap.NewNop()), req, zap.NewNop())

	prompt, err := q.Serialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, event.SubjectSerializeGraph, req.subject)
	assert.JSONEq(t, `{"3":{}}`, string(prompt.Output))
}

func TestQueue_SerializeGarbageReply(t *testing.T) {
	req := &fakeRequester{reply: []byte(`nope`)}
	q := NewQueue(NewInProc(nil, zap.NewNop()), req, zap.NewNop())
	_, err := q.Serialize(context.Background())
	assert.Error(t, err)
}

func TestQueue_SubmitPublishesPrompt(t *testing.T) {
	b := NewInProc(nil, zap.NewNop())
	var got *event.Event
	require.NoError(t, b.Subscribe(event.SubjectSubmitPrompt, func(ctx context.Context, ev *event.Event) error {
		got = ev
		return nil
	}))

	q := NewQueue(b, nil, zap.NewNop())
	require.NoError(t, q.Submit(context.Background(), &host.Prompt{Output: []byte(`{}`)}))
	assert.NotNil(t, got)
}

func TestQueue_SubmitNilPrompt(t *testing.T) {
	q := NewQueue(NewInProc(nil, zap.NewNop()), nil, zap.NewNop())
	assert.Error(t, q.Submit(context.Background(), nil))
}
