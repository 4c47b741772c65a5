// Package nightagent provides the base shape for providers that run
// background work only while night mode is active:
// start/stop background tasks plus activate/deactivate of their
// capability table entries. Background work runs on goroutines, each with
// its own context.CancelFunc, so stopping is signal-cancel-then-drain.
package nightagent

import (
	"context"
	"sync"

	"github.com/ostepan8/agentbus/message"
)

// CapabilityToggler is the broker subset a night agent uses to expose or
// hide its capabilities on a night-mode transition.
type CapabilityToggler interface {
	ActivateCapabilities(providerName string)
	DeactivateCapabilities(providerName string)
}

// BaseAgent is embedded by night-only agents. It tracks background
// goroutines so StopBackgroundTasks can cancel and drain all of them.
type BaseAgent struct {
	name string

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewBaseAgent builds a BaseAgent with the given provider name.
func NewBaseAgent(name string) *BaseAgent {
	return &BaseAgent{name: name}
}

func (a *BaseAgent) Name() string { return a.name }

// Spawn starts fn as a tracked background goroutine; fn must return when
// its ctx is cancelled.
func (a *BaseAgent) Spawn(parent context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)
	a.mu.Lock()
	a.cancels = append(a.cancels, cancel)
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn(ctx)
	}()
}

// StopBackgroundTasks cancels every tracked goroutine and waits for all of
// them to return.
func (a *BaseAgent) StopBackgroundTasks() {
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	a.wg.Wait()
}

// ActivateCapabilities exposes name's capabilities on toggler.
func (a *BaseAgent) ActivateCapabilities(toggler CapabilityToggler) {
	toggler.ActivateCapabilities(a.name)
}

// DeactivateCapabilities hides name's capabilities on toggler.
func (a *BaseAgent) DeactivateCapabilities(toggler CapabilityToggler) {
	toggler.DeactivateCapabilities(a.name)
}

// ReceiveMessage is a default no-op ReceiveMessage. BaseAgent has no
// Capabilities method, so an embedder must add one to satisfy
// provider.Provider; embedders override ReceiveMessage when they need to
// handle capability_request messages.
func (a *BaseAgent) ReceiveMessage(context.Context, *message.Message) {}
