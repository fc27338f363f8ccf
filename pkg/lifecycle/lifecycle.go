// Package lifecycle manages node registration with the identifier registry
// and attaches the batch control UI to nodes as they are created.
//
// Registration is two-phase: Create prepares the node and Activate(id)
// completes registration once the host has assigned a stable identifier.
// Hosts that assign identifiers late are handled by a single deferred
// re-check on the next event loop tick; a node whose identifier never becomes
// valid is left unregistered, with no controls attached.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
	"github.com/promptkit/textbatch/pkg/host"
	"github.com/promptkit/textbatch/pkg/registry"
	"github.com/promptkit/textbatch/pkg/sched"
)

const (
	// StartIndexWidget is the widget the batch controls mutate.
	StartIndexWidget = "start_index"

	// StatusWidget is the read-only status line attached to batch nodes.
	StatusWidget = "status"

	// totalOutputSlot is the output slot batch nodes publish their split
	// total on.
	totalOutputSlot = 3

	// controlsProperty marks a node whose controls are already attached.
	controlsProperty = "textbatch_controls"

	submitTimeout = 5 * time.Second
)

// Manager wires nodes into the registry and attaches their controls.
type Manager struct {
	registry *registry.Registry
	queue    host.Queue
	sch      *sched.Scheduler
	logger   *zap.Logger
}

// New creates a lifecycle manager. The queue is used by the reset control to
// resubmit the graph; it may be nil, in which case reset only rewinds the
// start index.
func New(reg *registry.Registry, queue host.Queue, sch *sched.Scheduler, logger *zap.Logger) *Manager {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Manager{
		registry: reg,
		queue:    queue,
		sch:      sch,
		logger:   logger,
	}
}

// Create prepares a newly constructed node: it ensures the properties
// container exists and installs the removal hook. If the host has already
// assigned an identifier the node is activated immediately; otherwise
// activation is retried once on the next tick, observing the host's
// Unassigned -> Assigned transition. A node still unassigned at the deferred
// check stays unregistered.
func (m *Manager) Create(node *host.Node) {
	if node == nil {
		return
	}
	node.EnsureProperties()
	m.installRemovalHook(node)

	if node.ID.Valid() {
		if err := m.Activate(node); err != nil {
			m.logger.Warn("Activation failed", zap.Stringer("node_id", node.ID), zap.Error(err))
		}
		return
	}

	if err := m.sch.Defer(func() {
		if !node.ID.Valid() {
			m.logger.Warn("Node identifier still unassigned after deferred check, skipping registration",
				zap.String("title", node.Title))
			return
		}
		if err := m.Activate(node); err != nil {
			m.logger.Warn("Deferred activation failed", zap.Stringer("node_id", node.ID), zap.Error(err))
		}
	}); err != nil {
		m.logger.Warn("Could not defer activation", zap.String("title", node.Title), zap.Error(err))
	}
}

// Activate completes registration for a node with a valid identifier and
// attaches the batch controls. It is idempotent: re-activating an already
// registered node refreshes the registry entry and leaves the controls alone.
func (m *Manager) Activate(node *host.Node) error {
	if node == nil {
		return sdkerrors.ErrNodeNotFound
	}
	if !node.ID.Valid() {
		return sdkerrors.ErrNotActivated
	}
	if err := m.registry.Register(node.ID, node); err != nil {
		return err
	}
	m.attachControls(node)
	return nil
}

// Remove evicts the node from the registry. Safe to call for nodes that were
// never registered.
func (m *Manager) Remove(node *host.Node) {
	if node == nil {
		return
	}
	if node.ID.Valid() {
		m.registry.Evict(node.ID)
	}
}

// installRemovalHook chains the relay's eviction in front of any removal
// handler the host or another extension installed earlier.
func (m *Manager) installRemovalHook(node *host.Node) {
	prev := node.OnRemoved
	node.OnRemoved = func() {
		m.Remove(node)
		if prev != nil {
			prev()
		}
	}
}

// attachControls adds the status widget and the reset / jump-to-start /
// jump-to-end buttons. The buttons write the start_index widget value
// directly, without going through its change callback; the next execution
// reads the widget, not the callback.
func (m *Manager) attachControls(node *host.Node) {
	props := node.EnsureProperties()
	if _, done := props[controlsProperty]; done {
		return
	}
	props[controlsProperty] = true

	if node.Widget(StatusWidget) == nil {
		node.AddWidget(StatusWidget, "", nil)
	}

	node.AddButton("Reset", func() {
		m.setStartIndex(node, 0)
		m.resubmit(node)
	})
	node.AddButton("Jump to Start", func() {
		m.setStartIndex(node, 0)
	})
	node.AddButton("Jump to End", func() {
		m.setStartIndex(node, lastIndex(node))
	})
}

func (m *Manager) setStartIndex(node *host.Node, value int) {
	w := node.Widget(StartIndexWidget)
	if w == nil {
		m.logger.Warn("Node has no start_index widget", zap.Stringer("node_id", node.ID))
		return
	}
	w.Value = value
}

// lastIndex derives the final start index from the node's published total,
// defaulting to 0 when the output slot is absent.
func lastIndex(node *host.Node) int {
	total := 0
	switch v := node.OutputValue(totalOutputSlot, 0).(type) {
	case int:
		total = v
	case int64:
		total = int(v)
	case float64:
		total = int(v)
	}
	if total <= 0 {
		return 0
	}
	return total - 1
}

// resubmit asks the host to serialize the current graph into a prompt and
// submit it for execution. Failures are logged, never propagated; pressing
// reset on a disconnected host is a no-op.
func (m *Manager) resubmit(node *host.Node) {
	if m.queue == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	prompt, err := m.queue.Serialize(ctx)
	if err != nil {
		m.logger.Error("Graph serialization failed",
			zap.Stringer("node_id", node.ID), zap.Error(err))
		return
	}
	if err := m.queue.Submit(ctx, prompt); err != nil {
		m.logger.Error("Prompt submission failed",
			zap.Stringer("node_id", node.ID), zap.Error(err))
	}
}
