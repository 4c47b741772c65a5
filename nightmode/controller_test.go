package nightmode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostepan8/agentbus/message"
)

type fakeToggler struct {
	activated, deactivated []string
}

func (f *fakeToggler) ActivateCapabilities(name string)   { f.activated = append(f.activated, name) }
func (f *fakeToggler) DeactivateCapabilities(name string) { f.deactivated = append(f.deactivated, name) }

type fakeSender struct {
	to      string
	content map[string]interface{}
}

func (f *fakeSender) SendCapabilityResponse(ctx context.Context, to string, content map[string]interface{}, requestID, replyTo string) {
	f.to = to
	f.content = content
}
func (f *fakeSender) SendError(ctx context.Context, to string, errText string, requestID string) {}

func TestGateBlocksEverythingButWakeUpWhileEnabled(t *testing.T) {
	c := New(&fakeToggler{}, true, "LogCleanupAgent")

	assert.True(t, c.Gate("wake_up", true))
	assert.False(t, c.Gate("goodnight", true))
	assert.False(t, c.Gate("", false))
}

func TestGateAllowsEverythingWhenDisabled(t *testing.T) {
	c := New(&fakeToggler{}, false)
	assert.True(t, c.Gate("goodnight", true))
	assert.True(t, c.Gate("", false))
}

func TestEnterActivatesTrackedNightAgents(t *testing.T) {
	toggler := &fakeToggler{}
	c := New(toggler, false, "LogCleanupAgent")

	c.Enter()
	assert.True(t, c.Enabled())
	assert.Equal(t, []string{"LogCleanupAgent"}, toggler.activated)

	c.Exit()
	assert.False(t, c.Enabled())
	assert.Equal(t, []string{"LogCleanupAgent"}, toggler.deactivated)
}

func TestReceiveMessageStartNightModeRespondsAndActivates(t *testing.T) {
	toggler := &fakeToggler{}
	c := New(toggler, false, "LogCleanupAgent")
	sender := &fakeSender{}
	c.SetSender(sender)

	msg := message.New("Jarvis", "NightModeControllerAgent", message.TypeCapabilityRequest, map[string]interface{}{"capability": "start_night_mode"})
	c.ReceiveMessage(context.Background(), msg)

	require.True(t, c.Enabled())
	assert.Equal(t, "Jarvis", sender.to)
	assert.Equal(t, "night_mode_enabled", sender.content["status"])
}

func TestReceiveMessageIgnoresUnrelatedCapability(t *testing.T) {
	c := New(&fakeToggler{}, false)
	msg := message.New("Jarvis", "NightModeControllerAgent", message.TypeCapabilityRequest, map[string]interface{}{"capability": "something_else"})
	c.ReceiveMessage(context.Background(), msg)
	assert.False(t, c.Enabled())
}
