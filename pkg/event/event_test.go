package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeID_UnmarshalString(t *testing.T) {
	var fb Feedback
	err := json.Unmarshal([]byte(`{"node_id":"12","widget_name":"start_index","type":"int","value":"3"}`), &fb)
	require.NoError(t, err)
	assert.Equal(t, NodeID(12), fb.NodeID)
}

func TestNodeID_UnmarshalNumber(t *testing.T) {
	var fb Feedback
	err := json.Unmarshal([]byte(`{"node_id":12,"widget_name":"start_index","value":3}`), &fb)
	require.NoError(t, err)
	assert.Equal(t, NodeID(12), fb.NodeID)
}

func TestNodeID_UnmarshalEmptyString(t *testing.T) {
	var fb Feedback
	err := json.Unmarshal([]byte(`{"node_id":"","widget_name":"w","value":1}`), &fb)
	require.NoError(t, err)
	assert.Equal(t, Unassigned, fb.NodeID)
	assert.False(t, fb.NodeID.Valid())
}

func TestNodeID_UnmarshalGarbage(t *testing.T) {
	var fb Feedback
	err := json.Unmarshal([]byte(`{"node_id":"twelve","widget_name":"w","value":1}`), &fb)
	assert.Error(t, err)
}

func TestCoercedValue_IntFromString(t *testing.T) {
	fb := &Feedback{Type: TypeInt, Value: "42"}
	v, err := fb.CoercedValue()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCoercedValue_IntFromFloat(t *testing.T) {
	// JSON numbers decode as float64.
	fb := &Feedback{Type: TypeInt, Value: float64(7)}
	v, err := fb.CoercedValue()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCoercedValue_RawPassthrough(t *testing.T) {
	fb := &Feedback{Type: TypeRaw, Value: "hello"}
	v, err := fb.CoercedValue()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestCoercedValue_Uncoercible(t *testing.T) {
	fb := &Feedback{Type: TypeInt, Value: "not a number"}
	_, err := fb.CoercedValue()
	assert.Error(t, err)
}

func TestNewFeedback_RoundTrip(t *testing.T) {
	ev, err := NewFeedback(5, "start_index", TypeInt, 3)
	require.NoError(t, err)
	assert.Equal(t, SubjectNodeFeedback, ev.Subject)
	assert.NotEmpty(t, ev.CorrelationID)
	assert.NotEmpty(t, ev.CreatedAt)

	data, err := ev.ToBytes()
	require.NoError(t, err)
	decoded, err := FromBytes(data)
	require.NoError(t, err)

	fb, err := decoded.Feedback()
	require.NoError(t, err)
	assert.Equal(t, NodeID(5), fb.NodeID)
	assert.Equal(t, "start_index", fb.WidgetName)

	v, err := fb.CoercedValue()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestFeedback_WrongSubject(t *testing.T) {
	ev := NewAddQueue()
	_, err := ev.Feedback()
	assert.Error(t, err)
}

func TestFromHostPayload(t *testing.T) {
	ev := FromHostPayload(SubjectNodeFeedback, []byte(`{"node_id":"1","widget_name":"w","value":0}`))
	assert.Equal(t, SubjectNodeFeedback, ev.Subject)
	fb, err := ev.Feedback()
	require.NoError(t, err)
	assert.Equal(t, NodeID(1), fb.NodeID)
}

func TestNodeCreated_Decode(t *testing.T) {
	ev := FromHostPayload(SubjectNodeCreated, []byte(`{"node_id":"9","title":"Text Batch","widgets":[{"name":"start_index","value":0}]}`))
	nc, err := ev.NodeCreated()
	require.NoError(t, err)
	assert.Equal(t, NodeID(9), nc.NodeID)
	require.Len(t, nc.Widgets, 1)
	assert.Equal(t, "start_index", nc.Widgets[0].Name)
}
