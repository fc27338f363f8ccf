package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host"
	"github.com/promptkit/textbatch/pkg/script"
)

// Event handlers for out-of-process relays. The host announces node creation
// and removal on the bus; the relay mirrors each announced node so feedback
// routing has something to mutate.

// CreatedHandler returns the handler to subscribe under
// event.SubjectNodeCreated.
func (m *Manager) CreatedHandler() event.Handler {
	return func(ctx context.Context, ev *event.Event) error {
		nc, err := ev.NodeCreated()
		if err != nil {
			m.logger.Warn("Dropping malformed node creation event", zap.Error(err))
			return nil
		}

		node := &host.Node{
			ID:      nc.NodeID,
			Title:   nc.Title,
			Outputs: nc.Outputs,
		}
		for _, w := range nc.Widgets {
			node.AddWidget(w.Name, w.Value, m.compileCallback(nc.NodeID, w))
		}
		m.Create(node)
		return nil
	}
}

// compileCallback builds the widget's change callback from announced script
// source. A script that fails to compile is logged and skipped; the widget
// still mirrors values, it just has no callback.
func (m *Manager) compileCallback(id event.NodeID, w event.WidgetState) host.WidgetCallback {
	if w.OnChange == "" {
		return nil
	}
	hook, err := script.Compile(w.Name, w.OnChange)
	if err != nil {
		m.logger.Warn("Dropping widget change script",
			zap.Stringer("node_id", id),
			zap.String("widget", w.Name),
			zap.Error(err))
		return nil
	}
	return hook.Callback(m.logger)
}

// RemovedHandler returns the handler to subscribe under
// event.SubjectNodeRemoved.
func (m *Manager) RemovedHandler() event.Handler {
	return func(ctx context.Context, ev *event.Event) error {
		nr, err := ev.NodeRemoved()
		if err != nil {
			m.logger.Warn("Dropping malformed node removal event", zap.Error(err))
			return nil
		}

		node, err := m.registry.Resolve(nr.NodeID)
		if err != nil {
			// Never registered; eviction is a no-op.
			return nil
		}
		if node.OnRemoved != nil {
			node.OnRemoved()
			return nil
		}
		m.Remove(node)
		return nil
	}
}
