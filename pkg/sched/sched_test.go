package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// runFor drains the scheduler on the current goroutine until the timeout.
func runFor(t *testing.T, s *Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_FIFOOrder(t *testing.T) {
	s := New(zap.NewNop())
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, s.Post(func() { order = append(order, i) }))
	}
	runFor(t, s, 50*time.Millisecond)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestScheduler_DeferRunsAfterQueued(t *testing.T) {
	s := New(zap.NewNop())
	var order []string
	require.NoError(t, s.Post(func() { order = append(order, "first") }))
	require.NoError(t, s.Defer(func() { order = append(order, "deferred") }))
	require.NoError(t, s.Post(func() { order = append(order, "second") }))
	runFor(t, s, 50*time.Millisecond)
	assert.Equal(t, []string{"first", "deferred", "second"}, order)
}

func TestScheduler_After(t *testing.T) {
	s := New(zap.NewNop())
	fired := make(chan time.Time, 1)
	start := time.Now()
	s.After(30*time.Millisecond, func() { fired <- time.Now() })

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), 30*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("delayed task never ran")
	}
	cancel()
	<-done
}

func TestScheduler_PostAfterStop(t *testing.T) {
	s := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = s.Run(ctx)

	err := s.Post(func() {})
	assert.ErrorIs(t, err, sdkerrors.ErrSchedulerStopped)
}

func TestScheduler_PanicDoesNotKillLoop(t *testing.T) {
	s := New(zap.NewNop())
	survived := false
	require.NoError(t, s.Post(func() { panic("boom") }))
	require.NoError(t, s.Post(func() { survived = true }))
	runFor(t, s, 50*time.Millisecond)
	assert.True(t, survived)
}

func TestScheduler_NilTaskIgnored(t *testing.T) {
	s := New(zap.NewNop())
	require.NoError(t, s.Post(nil))
	assert.Equal(t, 0, s.Pending())
}
