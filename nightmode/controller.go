// Package nightmode implements the maintenance-mode gate (reject all
// but the reserved wake_up protocol while active) and the
// start_night_mode/stop_night_mode capability surface that toggles it.
package nightmode

import (
	"context"
	"sync/atomic"

	"github.com/ostepan8/agentbus/message"
	"github.com/ostepan8/agentbus/provider"
)

// WakeUpProtocolName is the one protocol name the night-mode gate always
// lets through.
const WakeUpProtocolName = "wake_up"

// Toggler exposes the capability activation side effects a night-mode
// transition drives (handing off to every registered night agent).
type Toggler interface {
	ActivateCapabilities(providerName string)
	DeactivateCapabilities(providerName string)
}

// Controller tracks whether night mode is active and exposes it as a
// broker-facing capability provider (start_night_mode/stop_night_mode).
type Controller struct {
	enabled atomic.Bool
	agents  []string
	toggler Toggler
	sender  provider.Sender
}

var _ provider.Provider = (*Controller)(nil)

// New builds a Controller. agents are the provider names whose
// capabilities should activate on night-mode entry and deactivate on
// exit (the registered NightAgents).
func New(toggler Toggler, startEnabled bool, agents ...string) *Controller {
	c := &Controller{toggler: toggler, agents: agents}
	c.enabled.Store(startEnabled)
	return c
}

func (c *Controller) Name() string { return "NightModeControllerAgent" }

func (c *Controller) Capabilities() []string {
	return []string{"start_night_mode", "stop_night_mode"}
}

// SetSender stores the broker back-reference handed over at registration.
func (c *Controller) SetSender(sender provider.Sender) { c.sender = sender }

// Enabled reports whether night mode is currently active.
func (c *Controller) Enabled() bool { return c.enabled.Load() }

// Enter activates night mode and, for every tracked night agent,
// activates its (otherwise dormant) capabilities.
func (c *Controller) Enter() {
	c.enabled.Store(true)
	for _, name := range c.agents {
		c.toggler.ActivateCapabilities(name)
	}
}

// Exit deactivates night mode and hides every tracked night agent's
// capabilities again.
func (c *Controller) Exit() {
	c.enabled.Store(false)
	for _, name := range c.agents {
		c.toggler.DeactivateCapabilities(name)
	}
}

// ReceiveMessage handles start_night_mode/stop_night_mode
// capability_request messages.
func (c *Controller) ReceiveMessage(ctx context.Context, msg *message.Message) {
	capability, _ := msg.Content["capability"].(string)
	switch capability {
	case "start_night_mode":
		c.Enter()
		if c.sender != nil {
			c.sender.SendCapabilityResponse(ctx, msg.FromAgent, map[string]interface{}{"status": "night_mode_enabled"}, msg.RequestID, msg.ID)
		}
	case "stop_night_mode":
		c.Exit()
		if c.sender != nil {
			c.sender.SendCapabilityResponse(ctx, msg.FromAgent, map[string]interface{}{"status": "night_mode_disabled"}, msg.RequestID, msg.ID)
		}
	}
}

// Gate applies the maintenance gate: while night mode is active, only a
// match against WakeUpProtocolName passes through; every other utterance
// (matched or not) is rejected.
func (c *Controller) Gate(matchedProtocolName string, hadMatch bool) (allowed bool) {
	if !c.Enabled() {
		return true
	}
	return hadMatch && matchedProtocolName == WakeUpProtocolName
}
