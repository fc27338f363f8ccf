package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host/hosttest"
	"github.com/promptkit/textbatch/pkg/sched"
)

func startLoop(t *testing.T) *sched.Scheduler {
	t.Helper()
	s := sched.New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func waitForEnqueues(t *testing.T, fake *hosttest.Fake, want int) []hosttest.EnqueueCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := fake.Enqueues(); len(calls) >= want {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d enqueue calls, got %d", want, len(fake.Enqueues()))
	return nil
}

func TestFire_EnqueuesExactlyOnceAfterDelay(t *testing.T) {
	fake := hosttest.New()
	s := startLoop(t)
	cfg := &Config{Delay: 50 * time.Millisecond, PromptIndex: 0, Priority: 1, EnqueueTimeout: time.Second}
	tr := New(fake, s, cfg, zap.NewNop())

	start := time.Now()
	require.NoError(t, tr.Fire(context.Background(), event.NewAddQueue()))

	// Nothing happens before the delay.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, fake.Enqueues())

	calls := waitForEnqueues(t, fake, 1)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Len(t, calls, 1)
	assert.Equal(t, 0, calls[0].Index)
	assert.Equal(t, 1, calls[0].Priority)
}

func TestFire_EachEventSchedulesItsOwnEnqueue(t *testing.T) {
	fake := hosttest.New()
	s := startLoop(t)
	cfg := &Config{Delay: 10 * time.Millisecond, Priority: 1, EnqueueTimeout: time.Second}
	tr := New(fake, s, cfg, zap.NewNop())

	require.NoError(t, tr.Fire(context.Background(), event.NewAddQueue()))
	require.NoError(t, tr.Fire(context.Background(), event.NewAddQueue()))

	waitForEnqueues(t, fake, 2)
}

func TestFire_PayloadIgnored(t *testing.T) {
	fake := hosttest.New()
	s := startLoop(t)
	cfg := &Config{Delay: 5 * time.Millisecond, Priority: 1, EnqueueTimeout: time.Second}
	tr := New(fake, s, cfg, zap.NewNop())

	ev := event.FromHostPayload(event.SubjectAddQueue, []byte(`{"anything":"goes"}`))
	require.NoError(t, tr.Fire(context.Background(), ev))
	waitForEnqueues(t, fake, 1)
}

func TestFire_NilQueueIsLoggedNoOp(t *testing.T) {
	s := startLoop(t)
	tr := New(nil, s, nil, zap.NewNop())
	assert.NoError(t, tr.Fire(context.Background(), event.NewAddQueue()))
}

func TestFire_EnqueueErrorDoesNotPropagate(t *testing.T) {
	fake := hosttest.New()
	fake.EnqueueErr = errors.New("host unavailable")
	s := startLoop(t)
	cfg := &Config{Delay: 5 * time.Millisecond, Priority: 1, EnqueueTimeout: time.Second}
	tr := New(fake, s, cfg, zap.NewNop())

	require.NoError(t, tr.Fire(context.Background(), event.NewAddQueue()))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, fake.Enqueues())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100*time.Millisecond, cfg.Delay)
	assert.Equal(t, 0, cfg.PromptIndex)
	assert.Equal(t, 1, cfg.Priority)
}
