package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ClassifyPriority(TypeCapabilityResponse))
	assert.Equal(t, PriorityHigh, ClassifyPriority(TypeError))
	assert.Equal(t, PriorityNormal, ClassifyPriority(TypeCapabilityRequest))
	assert.Equal(t, PriorityLow, ClassifyPriority(Type("freeform")))
}

func TestNewGeneratesID(t *testing.T) {
	m := New("Lights", "", TypeCapabilityRequest, map[string]interface{}{"capability": "set_color"})
	require.NotEmpty(t, m.ID)
	assert.True(t, m.IsBroadcast())
}

func TestWithCorrelationDoesNotMutateOriginal(t *testing.T) {
	m := New("Lights", "Jarvis", TypeCapabilityResponse, nil)
	stamped := m.WithCorrelation("req-1", "msg-0")

	assert.Empty(t, m.RequestID)
	assert.Equal(t, "req-1", stamped.RequestID)
	assert.Equal(t, "msg-0", stamped.ReplyTo)
}

func TestErrorExtraction(t *testing.T) {
	m := New("Lights", "Jarvis", TypeError, map[string]interface{}{"error": "boom"})
	msg, ok := m.Error()
	require.True(t, ok)
	assert.Equal(t, "boom", msg)

	clean := New("Lights", "Jarvis", TypeCapabilityResponse, map[string]interface{}{"ok": true})
	_, ok = clean.Error()
	assert.False(t, ok)
}
