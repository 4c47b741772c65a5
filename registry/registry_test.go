package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostepan8/agentbus/protocol"
)

func newProtocol(id, name string, triggers ...string) *protocol.Protocol {
	return &protocol.Protocol{ID: id, Name: name, TriggerPhrases: triggers}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := New()
	ctx := context.Background()

	result, err := r.Register(ctx, newProtocol("p1", "blue_lights_on", "blue lights"), false)
	require.NoError(t, err)
	assert.Equal(t, RegisterCreated, result)

	result, err = r.Register(ctx, newProtocol("p2", "Blue_Lights_On", "totally different phrase"), false)
	assert.Equal(t, RegisterDuplicate, result)
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateTriggerSet(t *testing.T) {
	r := New()
	ctx := context.Background()

	_, err := r.Register(ctx, newProtocol("p1", "blue_lights_on", "blue lights", "make it blue"), false)
	require.NoError(t, err)

	result, err := r.Register(ctx, newProtocol("p2", "different_name", "Make It Blue!", "Blue   Lights"), false)
	assert.Equal(t, RegisterDuplicate, result)
	assert.Error(t, err)
}

func TestRegisterSameIDTwiceIsIdempotent(t *testing.T) {
	r := New()
	ctx := context.Background()
	p := newProtocol("p1", "blue_lights_on", "blue lights")

	result, err := r.Register(ctx, p, false)
	require.NoError(t, err)
	assert.Equal(t, RegisterCreated, result)

	result, err = r.Register(ctx, p, false)
	require.NoError(t, err)
	assert.Equal(t, RegisterDuplicate, result)
}

func TestFindMatchingProtocol(t *testing.T) {
	r := New()
	ctx := context.Background()
	_, err := r.Register(ctx, newProtocol("p1", "blue_lights_on", "blue lights"), false)
	require.NoError(t, err)

	p, ok := r.FindMatchingProtocol("  Blue Lights  ")
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	_, ok = r.FindMatchingProtocol("green lights")
	assert.False(t, ok)
}

func TestGetByIDOrName(t *testing.T) {
	r := New()
	ctx := context.Background()
	_, err := r.Register(ctx, newProtocol("p1", "Blue_Lights_On", "blue lights"), false)
	require.NoError(t, err)

	_, ok := r.Get("p1")
	assert.True(t, ok)
	_, ok = r.Get("blue_lights_on")
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestReplaceDuplicatesOverwritesConflictingEntry(t *testing.T) {
	r := New()
	ctx := context.Background()
	_, err := r.Register(ctx, newProtocol("p1", "blue_lights_on", "blue lights"), false)
	require.NoError(t, err)

	result, err := r.Register(ctx, newProtocol("p2", "blue_lights_on", "new phrase"), true)
	require.NoError(t, err)
	assert.Equal(t, RegisterCreated, result)

	_, ok := r.Get("p1")
	assert.False(t, ok)
	p, ok := r.Get("p2")
	require.True(t, ok)
	assert.Equal(t, "blue_lights_on", p.Name)
}

func TestPersistsThroughStore(t *testing.T) {
	store := NewInMemoryStore()
	r := New(WithStore(store))
	ctx := context.Background()

	_, err := r.Register(ctx, newProtocol("p1", "blue_lights_on", "blue lights"), false)
	require.NoError(t, err)

	reloaded := New(WithStore(store))
	require.NoError(t, reloaded.LoadFromStore(ctx))
	_, ok := reloaded.Get("p1")
	assert.True(t, ok)
}
