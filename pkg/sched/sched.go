// Package sched implements the relay's cooperative event loop. All node and
// widget mutations happen on a single goroutine, mirroring the host UI thread:
// tasks run in FIFO order, deferred tasks run on a later tick, and delayed
// tasks are posted back to the loop when their timer fires. Scheduled work
// cannot be cancelled once accepted.
package sched

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
)

// Task is a unit of work executed on the loop goroutine.
type Task func()

// Scheduler is a single-threaded task loop. Create one with New, start it
// with Run, and submit work from any goroutine with Post, Defer, or After.
type Scheduler struct {
	mu      sync.Mutex
	queue   []Task
	wake    chan struct{}
	stopped bool
	logger  *zap.Logger
}

// New creates a scheduler. A nil logger falls back to a production zap logger.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Scheduler{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Post enqueues a task at the back of the queue. Tasks run in submission
// order. Returns ErrSchedulerStopped once the loop has shut down.
func (s *Scheduler) Post(task Task) error {
	if task == nil {
		return nil
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return sdkerrors.ErrSchedulerStopped
	}
	s.queue = append(s.queue, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Defer enqueues a task to run on a later tick, after everything currently
// queued has finished. Lifecycle registration uses this to re-check node
// identifiers the host assigns late.
func (s *Scheduler) Defer(task Task) error {
	return s.Post(task)
}

// After posts the task to the loop once the delay has elapsed. The task runs
// on the loop goroutine like any other; there is no way to abort it once
// scheduled. A task whose timer fires after shutdown is dropped.
func (s *Scheduler) After(delay time.Duration, task Task) {
	if task == nil {
		return
	}
	time.AfterFunc(delay, func() {
		if err := s.Post(task); err != nil {
			s.logger.Warn("Dropping delayed task, scheduler stopped",
				zap.Duration("delay", delay))
		}
	})
}

// Run executes queued tasks until the context is cancelled. It blocks, so it
// is typically invoked on its own goroutine. A panic inside a task is
// recovered and logged; it never takes down the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		task, ok := s.next()
		if ok {
			s.run(task)
			continue
		}

		select {
		case <-ctx.Done():
			s.stop()
			s.logger.Info("Scheduler stopped due to context cancellation")
			return ctx.Err()
		case <-s.wake:
		}
	}
}

// next pops the head of the queue.
func (s *Scheduler) next() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	task := s.queue[0]
	s.queue = s.queue[1:]
	return task, true
}

func (s *Scheduler) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in scheduled task", zap.Any("panic", r))
		}
	}()
	task()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.mu.Unlock()
}

// Pending reports the number of queued tasks. Intended for tests and
// diagnostics only; the count is stale the moment it returns.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
