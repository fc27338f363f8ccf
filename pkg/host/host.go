// Package host describes the surface of the node editor application that the
// relay depends on. The editor owns the graph, the nodes, and their widgets;
// this package models those objects and names the exact operations the relay
// is allowed to call, so the dependency can be satisfied by a live editor
// adapter or by a test double.
package host

import (
	"context"
	"encoding/json"

	"github.com/promptkit/textbatch/pkg/event"
)

// Prompt is the host's serialized, executable form of the current graph.
// The contents are owned by the host and treated as opaque here.
type Prompt struct {
	Output   json.RawMessage `json:"output"`
	Workflow json.RawMessage `json:"workflow,omitempty"`
}

// Graph exposes the host's node lookup mechanisms. The host is not obligated
// to populate all of them: any method may return nil and callers must fall
// back to the next mechanism.
type Graph interface {
	// NodeTable returns the host's id-indexed node table, or nil when the
	// host has not built one.
	NodeTable() map[event.NodeID]*Node

	// NodeByID returns the node with the given identifier, or nil.
	NodeByID(id event.NodeID) *Node

	// Nodes returns all live nodes for a linear scan, or nil.
	Nodes() []*Node
}

// Queue is the host's prompt execution queue.
type Queue interface {
	// Enqueue asks the host to enqueue the prompt at the given index with
	// the given priority.
	Enqueue(ctx context.Context, index, priority int) error

	// Serialize converts the current graph into an executable prompt.
	Serialize(ctx context.Context) (*Prompt, error)

	// Submit submits a serialized prompt for execution.
	Submit(ctx context.Context, prompt *Prompt) error
}

// Host is the full capability set the relay requires from the editor.
type Host interface {
	Graph
	Queue
}
