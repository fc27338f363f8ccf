// Package registry maps host-assigned node identifiers to live node objects.
// The host's node objects carry no back-reference the relay controls, so the
// relay keeps an explicit registry with insert and evict operations, written
// by the lifecycle hooks and read by the feedback router. Entries are
// best-effort: the host assigns identifiers late and removal can race a
// deferred registration, so resolution falls back to the host's own lookup
// mechanisms when the registry misses.
package registry

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	sdkerrors "github.com/promptkit/textbatch/pkg/errors"
	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host"
)

// memoSize bounds the fallback memoization cache.
const memoSize = 256

// Registry is the node identifier registry.
type Registry struct {
	mu     sync.Mutex
	nodes  map[event.NodeID]*host.Node
	graph  host.Graph
	memo   *lru.Cache[event.NodeID, *host.Node]
	logger *zap.Logger
}

// New creates a registry backed by the given host graph for fallback lookups.
// The graph may be nil when no host is attached; resolution then only
// consults registered entries.
func New(graph host.Graph, logger *zap.Logger) *Registry {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	memo, _ := lru.New[event.NodeID, *host.Node](memoSize)
	return &Registry{
		nodes:  make(map[event.NodeID]*host.Node),
		graph:  graph,
		memo:   memo,
		logger: logger,
	}
}

// Register inserts a node under its identifier. Registering an unassigned
// identifier is rejected; the lifecycle hooks only call this after the host
// has handed out a stable id.
func (r *Registry) Register(id event.NodeID, node *host.Node) error {
	if !id.Valid() {
		return sdkerrors.ErrNotActivated
	}
	if node == nil {
		return sdkerrors.ErrNodeNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[id] = node
	r.memo.Remove(id)
	r.logger.Debug("Registered node", zap.Stringer("node_id", id))
	return nil
}

// Evict removes the entry for the identifier. Evicting an identifier that was
// never registered is a no-op; it reports whether an entry existed.
func (r *Registry) Evict(id event.NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo.Remove(id)
	if _, ok := r.nodes[id]; !ok {
		return false
	}
	delete(r.nodes, id)
	r.logger.Debug("Evicted node", zap.Stringer("node_id", id))
	return true
}

// Resolve returns the node for the identifier. Lookup order: the registry
// itself, then the host's id-indexed table, then its getter, then a linear
// scan. Each host mechanism is guarded against the host not providing it.
// Fallback hits are memoized so repeated feedback for an unregistered node
// does not rescan the graph.
func (r *Registry) Resolve(id event.NodeID) (*host.Node, error) {
	if !id.Valid() {
		return nil, sdkerrors.ErrMissingNodeID
	}

	r.mu.Lock()
	node, ok := r.nodes[id]
	if !ok {
		node, ok = r.memo.Get(id)
	}
	graph := r.graph
	r.mu.Unlock()
	if ok && node != nil {
		return node, nil
	}

	if graph == nil {
		return nil, sdkerrors.ErrNodeNotFound
	}

	if table := graph.NodeTable(); table != nil {
		if node := table[id]; node != nil {
			r.remember(id, node)
			return node, nil
		}
	}
	if node := graph.NodeByID(id); node != nil {
		r.remember(id, node)
		return node, nil
	}
	for _, node := range graph.Nodes() {
		if node != nil && node.ID == id {
			r.remember(id, node)
			return node, nil
		}
	}

	return nil, sdkerrors.ErrNodeNotFound
}

func (r *Registry) remember(id event.NodeID, node *host.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo.Add(id, node)
}

// Len returns the number of registered entries, not counting memoized
// fallback hits.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}
