// Command textbatchd runs the batch-prompt relay as a sidecar: it consumes
// the editor host's event feed, routes widget feedback, and re-triggers the
// host's execution queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/promptkit/textbatch/internal/config"
	"github.com/promptkit/textbatch/internal/natsconn"
	"github.com/promptkit/textbatch/internal/tracing"
	"github.com/promptkit/textbatch/internal/ws"
	"github.com/promptkit/textbatch/pkg/bus"
	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host"
	"github.com/promptkit/textbatch/pkg/lifecycle"
	"github.com/promptkit/textbatch/pkg/registry"
	"github.com/promptkit/textbatch/pkg/router"
	"github.com/promptkit/textbatch/pkg/sched"
	"github.com/promptkit/textbatch/pkg/trigger"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "textbatchd",
	Short: "Batch-prompt relay for the node editor host",
	Long: `textbatchd attaches to a node editor host and relays batch events:
widget feedback is routed to the right node, and queue trigger events
re-enter the host's execution queue after the host settles.

The host event feed comes from the host's websocket push or from NATS;
configure either via TEXTBATCH_HOST_WS or TEXTBATCH_NATS_URL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tcfg := tracing.DefaultConfig("textbatchd")
		tcfg.Environment = cfg.Env
		tcfg.OTLPEndpoint = cfg.OTLPEndpoint
		shutdown, err := tracing.Setup(ctx, tcfg, logger)
		if err != nil {
			logger.Warn("Failed to setup tracing, continuing without tracing", zap.Error(err))
		} else {
			defer func() { _ = tracing.Shutdown(shutdown, logger) }()
		}
	}

	sch := sched.New(logger)

	// Pick the event transport. NATS gives the relay a path back to the
	// host queue; the websocket feed is receive-only, so queue operations
	// degrade to logged no-ops without it.
	var (
		b     bus.Bus
		queue host.Queue
		feed  *ws.Feed
	)
	switch {
	case cfg.NATSURL != "":
		conn, err := natsconn.Connect(ctx, natsconn.DefaultConfig(cfg.NATSURL), logger)
		if err != nil {
			return err
		}
		defer func() { _ = natsconn.Close(conn) }()

		nb, err := bus.NewNATS(conn, sch, logger)
		if err != nil {
			return err
		}
		defer func() { _ = nb.Close() }()
		b = nb
		queue = bus.NewQueue(nb, nb, logger)
		logger.Info("Using NATS event transport", zap.String("url", cfg.NATSURL))

	case cfg.HostWSURL != "":
		inproc := bus.NewInProc(sch, logger)
		feed, err = ws.Dial(ctx, cfg.HostWSURL, inproc, []string{
			event.SubjectNodeFeedback,
			event.SubjectAddQueue,
			event.SubjectNodeCreated,
			event.SubjectNodeRemoved,
		}, logger)
		if err != nil {
			return err
		}
		b = inproc
		queue = bus.NewQueue(inproc, nil, logger)
		logger.Info("Using host websocket feed", zap.String("url", cfg.HostWSURL))

	default:
		return fmt.Errorf("no event transport configured: set TEXTBATCH_HOST_WS or TEXTBATCH_NATS_URL")
	}

	reg := registry.New(nil, logger)
	lc := lifecycle.New(reg, queue, sch, logger)
	rt := router.New(reg, logger)

	tcfg := trigger.DefaultConfig()
	tcfg.Delay = cfg.TriggerDelay
	tr := trigger.New(queue, sch, tcfg, logger)

	mw := event.Chain(
		event.RecoveryMiddleware(),
		event.ValidationMiddleware(),
		event.LoggingMiddleware(logger),
	)
	subscriptions := map[string]event.Handler{
		event.SubjectNodeFeedback: rt.Handler(),
		event.SubjectAddQueue:     tr.Handler(),
		event.SubjectNodeCreated:  lc.CreatedHandler(),
		event.SubjectNodeRemoved:  lc.RemovedHandler(),
	}
	for subject, handler := range subscriptions {
		if err := b.Subscribe(subject, mw(handler)); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}

	errCh := make(chan error, 2)
	go func() { errCh <- sch.Run(ctx) }()
	if feed != nil {
		go func() { errCh <- feed.Run(ctx) }()
	}

	logger.Info("Relay started")
	err = <-errCh
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Relay stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
