// Package hosttest provides an in-memory Host implementation for unit tests.
package hosttest

import (
	"context"
	"sync"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/host"
)

// EnqueueCall records a single Enqueue invocation.
type EnqueueCall struct {
	Index    int
	Priority int
}

// Fake is an in-memory editor double. Individual lookup mechanisms can be
// switched off to exercise the relay's fallback chain.
type Fake struct {
	mu sync.Mutex

	nodes []*host.Node

	// DisableTable makes NodeTable return nil.
	DisableTable bool

	// DisableGetter makes NodeByID return nil.
	DisableGetter bool

	// DisableScan makes Nodes return nil.
	DisableScan bool

	// EnqueueErr, when set, is returned by Enqueue.
	EnqueueErr error

	// SerializeErr, when set, is returned by Serialize.
	SerializeErr error

	enqueues []EnqueueCall
	submits  []*host.Prompt
}

// New creates an empty fake host.
func New() *Fake {
	return &Fake{}
}

// AddNode registers a node with the fake graph.
func (f *Fake) AddNode(n *host.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes = append(f.nodes, n)
}

// RemoveNode drops a node from the fake graph.
func (f *Fake) RemoveNode(id event.NodeID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.nodes[:0]
	for _, n := range f.nodes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	f.nodes = kept
}

// NodeTable implements host.Graph.
func (f *Fake) NodeTable() map[event.NodeID]*host.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisableTable {
		return nil
	}
	table := make(map[event.NodeID]*host.Node, len(f.nodes))
	for _, n := range f.nodes {
		table[n.ID] = n
	}
	return table
}

// NodeByID implements host.Graph.
func (f *Fake) NodeByID(id event.NodeID) *host.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisableGetter {
		return nil
	}
	for _, n := range f.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Nodes implements host.Graph.
func (f *Fake) Nodes() []*host.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisableScan {
		return nil
	}
	out := make([]*host.Node, len(f.nodes))
	copy(out, f.nodes)
	return out
}

// Enqueue implements host.Queue.
func (f *Fake) Enqueue(ctx context.Context, index, priority int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnqueueErr != nil {
		return f.EnqueueErr
	}
	f.enqueues = append(f.enqueues, EnqueueCall{Index: index, Priority: priority})
	return nil
}

// Serialize implements host.Queue.
func (f *Fake) Serialize(ctx context.Context) (*host.Prompt, error) {
	if f.SerializeErr != nil {
		return nil, f.SerializeErr
	}
	return &host.Prompt{Output: []byte(`{}`)}, nil
}

// Submit implements host.Queue.
func (f *Fake) Submit(ctx context.Context, prompt *host.Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, prompt)
	return nil
}

// Enqueues returns a copy of the recorded Enqueue calls.
func (f *Fake) Enqueues() []EnqueueCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EnqueueCall, len(f.enqueues))
	copy(out, f.enqueues)
	return out
}

// Submits returns a copy of the recorded Submit calls.
func (f *Fake) Submits() []*host.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*host.Prompt, len(f.submits))
	copy(out, f.submits)
	return out
}
