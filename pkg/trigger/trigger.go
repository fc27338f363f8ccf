// Package trigger re-enters the host's execution queue in response to queue
// trigger events. The enqueue call is delayed so the host can finish its own
// in-flight state transition before the relay re-enters its queueing path.
package trigger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host"
	"github.com/promptkit/textbatch/pkg/sched"
)

// Config holds configuration for the queue trigger.
type Config struct {
	// Delay is how long to wait before asking the host to enqueue.
	Delay time.Duration

	// PromptIndex is the queue slot passed to the host.
	PromptIndex int

	// Priority is the queue priority passed to the host.
	Priority int

	// EnqueueTimeout bounds the host enqueue call itself.
	EnqueueTimeout time.Duration
}

// DefaultConfig returns the trigger configuration the host protocol expects:
// a 100ms delay, prompt index 0, priority 1.
func DefaultConfig() *Config {
	return &Config{
		Delay:          100 * time.Millisecond,
		PromptIndex:    0,
		Priority:       1,
		EnqueueTimeout: 5 * time.Second,
	}
}

// Trigger schedules delayed enqueue requests on the relay's event loop.
type Trigger struct {
	queue  host.Queue
	sch    *sched.Scheduler
	config *Config
	logger *zap.Logger
}

// New creates a queue trigger. A nil config uses DefaultConfig.
func New(queue host.Queue, sch *sched.Scheduler, config *Config, logger *zap.Logger) *Trigger {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Trigger{
		queue:  queue,
		sch:    sch,
		config: config,
		logger: logger,
	}
}

// Handler returns the event handler to subscribe under event.SubjectAddQueue.
func (t *Trigger) Handler() event.Handler {
	return t.Fire
}

// Fire unconditionally schedules an enqueue after the configured delay. The
// event payload is ignored. A scheduled trigger cannot be aborted. Setup
// failures are logged here; failures of the delayed call are logged when it
// runs. Neither propagates.
func (t *Trigger) Fire(ctx context.Context, ev *event.Event) error {
	if t.queue == nil {
		t.logger.Error("Queue trigger fired without a host queue",
			zap.String("correlation_id", ev.CorrelationID))
		return nil
	}

	correlationID := ev.CorrelationID
	t.sch.After(t.config.Delay, func() {
		enqueueCtx, cancel := context.WithTimeout(context.Background(), t.config.EnqueueTimeout)
		defer cancel()

		if err := t.queue.Enqueue(enqueueCtx, t.config.PromptIndex, t.config.Priority); err != nil {
			t.logger.Error("Delayed enqueue failed",
				zap.String("correlation_id", correlationID),
				zap.Int("prompt_index", t.config.PromptIndex),
				zap.Int("priority", t.config.Priority),
				zap.Error(err))
			return
		}
		t.logger.Debug("Enqueued prompt",
			zap.String("correlation_id", correlationID),
			zap.Int("prompt_index", t.config.PromptIndex),
			zap.Int("priority", t.config.Priority))
	})
	return nil
}
