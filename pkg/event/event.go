// Package event defines the wire-level events exchanged with the node editor
// host: the node feedback event that routes widget updates, and the queue
// trigger event that asks the host to re-enqueue the current graph.
package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Subjects emitted and consumed by the host. The names are part of the host
// protocol and must not change.
const (
	// SubjectNodeFeedback carries a widget update for a single node.
	SubjectNodeFeedback = "textbatch-node-feedback"

	// SubjectAddQueue asks the relay to re-enqueue the current graph.
	// Its payload is unused.
	SubjectAddQueue = "textbatch-add-queue"

	// SubjectNodeCreated announces a node the host constructed. Out-of-process
	// relays mirror the node from this payload.
	SubjectNodeCreated = "textbatch-node-created"

	// SubjectNodeRemoved announces a node the host removed.
	SubjectNodeRemoved = "textbatch-node-removed"

	// SubjectEnqueuePrompt asks the host to enqueue a prompt slot.
	SubjectEnqueuePrompt = "textbatch-enqueue"

	// SubjectSerializeGraph asks the host to serialize the current graph.
	// Request-reply: the response body is the serialized prompt.
	SubjectSerializeGraph = "textbatch-serialize"

	// SubjectSubmitPrompt submits a serialized prompt for execution.
	SubjectSubmitPrompt = "textbatch-submit"
)

// NodeID is a host-assigned node identifier. The host assigns the placeholder
// Unassigned before a node is fully initialized; a valid identifier is
// non-negative and stable for the lifetime of the node.
type NodeID int64

// Unassigned is the placeholder identifier the host uses before assignment.
const Unassigned NodeID = -1

// Valid reports whether the identifier has been assigned by the host.
func (id NodeID) Valid() bool {
	return id >= 0
}

// String returns the decimal form of the identifier.
func (id NodeID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// MarshalJSON encodes the identifier as a JSON string. The host serializes
// node ids as strings on the wire.
func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number; the host is
// inconsistent about which it sends.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*id = Unassigned
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid node id %q: %w", s, err)
		}
		*id = NodeID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid node id %s", data)
	}
	*id = NodeID(n)
	return nil
}

// ValueType tags how a feedback value should be coerced before assignment.
type ValueType string

const (
	// TypeInt requests integer coercion of the value before assignment.
	TypeInt ValueType = "int"

	// TypeRaw assigns the value as received.
	TypeRaw ValueType = ""
)

// Feedback is the payload of a node feedback event. It addresses a single
// widget on a single node and carries the value to assign.
type Feedback struct {
	NodeID     NodeID      `json:"node_id"`
	WidgetName string      `json:"widget_name"`
	Type       ValueType   `json:"type,omitempty"`
	Value      interface{} `json:"value"`
}

// CoercedValue returns the value to assign to the widget. When Type is
// TypeInt the value is parsed to an int; any other type tag passes the value
// through unchanged.
func (f *Feedback) CoercedValue() (interface{}, error) {
	if f.Type != TypeInt {
		return f.Value, nil
	}
	switch v := f.Value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("coerce %q to int: %w", v.String(), err)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("coerce %q to int: %w", v, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to int", f.Value)
	}
}

// WidgetState is a widget snapshot within a node announcement. OnChange
// optionally carries JavaScript source for the widget's change callback; the
// relay compiles it into a sandboxed hook when mirroring the node.
type WidgetState struct {
	Name     string      `json:"name"`
	Value    interface{} `json:"value"`
	OnChange string      `json:"on_change,omitempty"`
}

// NodeCreated is the payload of a node creation announcement.
type NodeCreated struct {
	NodeID  NodeID        `json:"node_id"`
	Title   string        `json:"title,omitempty"`
	Widgets []WidgetState `json:"widgets,omitempty"`
	Outputs []interface{} `json:"outputs,omitempty"`
}

// NodeRemoved is the payload of a node removal announcement.
type NodeRemoved struct {
	NodeID NodeID `json:"node_id"`
}

// EnqueueRequest is the payload of an enqueue request to the host.
type EnqueueRequest struct {
	Index    int `json:"index"`
	Priority int `json:"priority"`
}

// Event is the envelope delivered to handlers. Subject identifies the host
// event; Data holds the raw payload bytes for that subject.
type Event struct {
	// CorrelationID is a unique identifier for tracking related events
	CorrelationID string `json:"correlationId,omitempty"`

	// Subject is the host event name the payload belongs to
	Subject string `json:"subject"`

	// Data is the raw JSON payload for the subject
	Data json.RawMessage `json:"data,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt string `json:"createdAt"`
}

// NewEvent creates an event envelope for the given subject and payload bytes.
func NewEvent(subject string, data []byte) *Event {
	return &Event{
		CorrelationID: uuid.NewString(),
		Subject:       subject,
		Data:          data,
		CreatedAt:     time.Now().Format(time.RFC3339),
	}
}

// NewFeedback creates a node feedback event for the given widget update.
func NewFeedback(nodeID NodeID, widgetName string, typ ValueType, value interface{}) (*Event, error) {
	payload, err := json.Marshal(&Feedback{
		NodeID:     nodeID,
		WidgetName: widgetName,
		Type:       typ,
		Value:      value,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal feedback payload: %w", err)
	}
	return NewEvent(SubjectNodeFeedback, payload), nil
}

// NewAddQueue creates a queue trigger event. The payload is intentionally
// empty; the host ignores it.
func NewAddQueue() *Event {
	return NewEvent(SubjectAddQueue, []byte("{}"))
}

// Feedback decodes the event payload as a Feedback. It fails when the event
// subject is not SubjectNodeFeedback or when the payload is malformed.
func (e *Event) Feedback() (*Feedback, error) {
	if e.Subject != SubjectNodeFeedback {
		return nil, fmt.Errorf("subject %q is not a feedback event", e.Subject)
	}
	var fb Feedback
	if len(e.Data) == 0 {
		return nil, fmt.Errorf("feedback event has no payload")
	}
	if err := json.Unmarshal(e.Data, &fb); err != nil {
		return nil, fmt.Errorf("decode feedback payload: %w", err)
	}
	return &fb, nil
}

// NodeCreated decodes the event payload as a node creation announcement.
func (e *Event) NodeCreated() (*NodeCreated, error) {
	if e.Subject != SubjectNodeCreated {
		return nil, fmt.Errorf("subject %q is not a node creation event", e.Subject)
	}
	var nc NodeCreated
	if err := json.Unmarshal(e.Data, &nc); err != nil {
		return nil, fmt.Errorf("decode node creation payload: %w", err)
	}
	return &nc, nil
}

// NodeRemoved decodes the event payload as a node removal announcement.
func (e *Event) NodeRemoved() (*NodeRemoved, error) {
	if e.Subject != SubjectNodeRemoved {
		return nil, fmt.Errorf("subject %q is not a node removal event", e.Subject)
	}
	var nr NodeRemoved
	if err := json.Unmarshal(e.Data, &nr); err != nil {
		return nil, fmt.Errorf("decode node removal payload: %w", err)
	}
	return &nr, nil
}

// ToBytes serializes the event envelope to JSON bytes.
func (e *Event) ToBytes() ([]byte, error) {
	return json.Marshal(e)
}

// FromBytes deserializes an event envelope from JSON bytes.
func FromBytes(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// FromHostPayload wraps a bare host payload in an envelope. The host's own
// event feed delivers naked payloads keyed by event name rather than
// envelopes, so transports use this to normalize incoming events.
func FromHostPayload(subject string, payload []byte) *Event {
	return NewEvent(subject, payload)
}
