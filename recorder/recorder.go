// Package recorder reifies a sequence of dispatched capability calls
// into a replayable protocol definition: start, record or replace steps,
// stop, clear. On stop the finalized protocol is persisted through an
// abstract sink; registry.Store already satisfies the sink's shape, so a
// recorded protocol lands in the same store a registry loads from.
package recorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/ostepan8/agentbus/executor"
	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/protocol"
)

// Sink persists a finalized protocol. registry.Store (and therefore
// registry.FileStore/registry.InMemoryStore) already implements it
// through the Save method of its three-method interface.
type Sink interface {
	Save(ctx context.Context, p *protocol.Protocol) error
}

// Runner re-executes a protocol without persisting, implemented by
// *executor.Executor.
type Runner interface {
	Run(ctx context.Context, p *protocol.Protocol, fromAgent string, allowed []string) executor.Result
}

// Recorder is single-writer (the broker's or executor's dispatch path,
// via RecordStep), single-reader (whoever calls Stop).
type Recorder struct {
	mu     sync.Mutex
	active bool
	name   string
	desc   string
	steps  []protocol.ProtocolStep
	sink   Sink
	logger corekit.Logger
}

// New builds a Recorder that persists through sink on Stop.
func New(sink Sink, logger corekit.Logger) *Recorder {
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}
	return &Recorder{sink: sink, logger: logger}
}

// Active reports whether a recording is currently in flight. Implements
// both broker.RecordSink and executor.RecordSink.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start begins a new in-flight recording, discarding any prior unfinished
// one.
func (r *Recorder) Start(name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	r.name = name
	r.desc = description
	r.steps = nil
}

// RecordStep appends a step to the in-flight protocol. A no-op when no
// recording is active, so callers (the broker's broadcast path, the
// executor's dispatch path) never need to guard on Active() themselves.
func (r *Recorder) RecordStep(agent, function string, params map[string]interface{}, mappings map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.steps = append(r.steps, protocol.ProtocolStep{
		Agent:             agent,
		Function:          function,
		Parameters:        params,
		ParameterMappings: mappings,
	})
}

// ReplaceStep overwrites the step at index with a corrected one.
func (r *Recorder) ReplaceStep(index int, agent, function string, params map[string]interface{}, mappings map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return corekit.NewFrameworkError("Recorder.ReplaceStep", "recorder", corekit.ErrNotStarted)
	}
	if index < 0 || index >= len(r.steps) {
		return corekit.NewFrameworkError("Recorder.ReplaceStep", "recorder", fmt.Errorf("%w: step index %d out of range", corekit.ErrInvalidConfiguration, index))
	}
	r.steps[index] = protocol.ProtocolStep{
		Agent:             agent,
		Function:          function,
		Parameters:        params,
		ParameterMappings: mappings,
	}
	return nil
}

// Stop finalizes the in-flight recording into a Protocol, persists it via
// the configured sink, clears recording state, and returns it.
func (r *Recorder) Stop(ctx context.Context) (*protocol.Protocol, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, corekit.NewFrameworkError("Recorder.Stop", "recorder", corekit.ErrNotStarted)
	}
	p := protocol.New(r.name, r.desc)
	p.Steps = append([]protocol.ProtocolStep(nil), r.steps...)
	r.active = false
	r.name = ""
	r.desc = ""
	r.steps = nil
	r.mu.Unlock()

	if r.sink != nil {
		if err := r.sink.Save(ctx, p); err != nil {
			r.logger.Error("failed to persist recorded protocol", map[string]interface{}{"protocol_id": p.ID, "error": err.Error()})
			return nil, corekit.NewFrameworkErrorWithID("Recorder.Stop", "recorder", p.ID, err)
		}
	}
	return p, nil
}

// Clear drops any in-flight recording state without persisting.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.name = ""
	r.desc = ""
	r.steps = nil
}

// Replay re-runs a just-recorded protocol through runner without
// persisting it again.
func (r *Recorder) Replay(ctx context.Context, runner Runner, p *protocol.Protocol, fromAgent string, allowed []string) executor.Result {
	return runner.Run(ctx, p, fromAgent, allowed)
}
