package host

import (
	"sync"

	"github.com/promptkit/textbatch/pkg/event"
)

// WidgetCallback is a widget's change callback, invoked with the newly
// assigned value.
type WidgetCallback func(value interface{})

// Widget is a UI-bound data field attached to a node. The host owns the
// widget; the relay only mutates it by reference.
type Widget struct {
	Name     string
	Value    interface{}
	Callback WidgetCallback
}

// Assign sets the widget value and invokes the change callback, if any,
// exactly once with the new value.
func (w *Widget) Assign(value interface{}) {
	w.Value = value
	if w.Callback != nil {
		w.Callback(value)
	}
}

// Button is an auxiliary control attached to a node.
type Button struct {
	Label   string
	OnPress func()
}

// Node models a host-owned graph node: an identifier that becomes stable only
// after host-side initialization, a widget list, optional buttons, a
// properties container, and output slots.
type Node struct {
	mu sync.Mutex

	// ID is the host-assigned identifier. It holds event.Unassigned until
	// the host finishes initializing the node.
	ID event.NodeID

	// Title is the display name of the node.
	Title string

	// Properties is the node's properties container. May start nil; use
	// EnsureProperties before writing to it.
	Properties map[string]interface{}

	// Widgets are the node's UI fields in host order.
	Widgets []*Widget

	// Buttons are auxiliary controls attached by extensions.
	Buttons []*Button

	// Outputs holds the node's output slot values. The batch nodes publish
	// their total split count on a fixed slot.
	Outputs []interface{}

	// OnRemoved is invoked by the host when the node is removed from the
	// graph. Extensions that replace it must delegate to the previous value.
	OnRemoved func()
}

// Widget returns the widget with the given name, or nil. Lookup is a linear
// scan; hosts keep widget lists short.
func (n *Node) Widget(name string) *Widget {
	for _, w := range n.Widgets {
		if w != nil && w.Name == name {
			return w
		}
	}
	return nil
}

// AddWidget attaches a widget to the node and returns it.
func (n *Node) AddWidget(name string, value interface{}, callback WidgetCallback) *Widget {
	w := &Widget{Name: name, Value: value, Callback: callback}
	n.Widgets = append(n.Widgets, w)
	return w
}

// AddButton attaches a button control to the node and returns it.
func (n *Node) AddButton(label string, onPress func()) *Button {
	b := &Button{Label: label, OnPress: onPress}
	n.Buttons = append(n.Buttons, b)
	return b
}

// EnsureProperties initializes the properties container if the host has not.
func (n *Node) EnsureProperties() map[string]interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Properties == nil {
		n.Properties = make(map[string]interface{})
	}
	return n.Properties
}

// OutputValue returns the value of the output slot at the given index, or
// the provided default when the slot is absent or empty.
func (n *Node) OutputValue(slot int, def interface{}) interface{} {
	if slot < 0 || slot >= len(n.Outputs) {
		return def
	}
	if n.Outputs[slot] == nil {
		return def
	}
	return n.Outputs[slot]
}
