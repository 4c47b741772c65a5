// Package runtime composes the Registry, Matcher, Executor, and Formatter
// into the single ProtocolRuntime facade the orchestrator's fast path
// calls through. The facade is constructed from its collaborating
// components rather than owning their logic itself.
package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ostepan8/agentbus/executor"
	"github.com/ostepan8/agentbus/formatter"
	"github.com/ostepan8/agentbus/matcher"
	"github.com/ostepan8/agentbus/protocol"
	"github.com/ostepan8/agentbus/registry"
)

// Outcome is the result of one fast-path protocol execution attempt.
type Outcome struct {
	Matched       bool
	Protocol      *protocol.Protocol
	MatchedPhrase string
	Arguments     map[string]interface{}
	Execution     executor.Result
	Response      string
}

// ProtocolRuntime is the facade composing registry lookup, trigger
// matching, step execution, and response formatting.
type ProtocolRuntime struct {
	registry *registry.Registry
	exec     *executor.Executor
	format   *formatter.Formatter

	matcherPtr atomic.Pointer[matcher.TriggerMatcher]
	refreshMu  sync.Mutex
}

// New builds a ProtocolRuntime over reg, exec, and format, and builds the
// initial trigger-matcher index from the registry's current contents.
func New(reg *registry.Registry, exec *executor.Executor, format *formatter.Formatter) *ProtocolRuntime {
	rt := &ProtocolRuntime{registry: reg, exec: exec, format: format}
	rt.Refresh()
	return rt
}

// Refresh rebuilds the trigger-matcher index from the registry's current
// protocol set. Call after any Register/Delete against the registry; the
// matcher otherwise only reflects protocols present at the last Refresh.
func (rt *ProtocolRuntime) Refresh() {
	rt.refreshMu.Lock()
	defer rt.refreshMu.Unlock()

	ids := rt.registry.ListIDs()
	protocols := make([]*protocol.Protocol, 0, len(ids))
	for _, id := range ids {
		if p, ok := rt.registry.Get(id); ok {
			protocols = append(protocols, p)
		}
	}
	rt.matcherPtr.Store(matcher.New(protocols))
}

// Match attempts a fast-path trigger match against utterance without
// executing anything.
func (rt *ProtocolRuntime) Match(utterance string) (*matcher.Match, bool) {
	return rt.matcherPtr.Load().Match(utterance)
}

// Execute matches utterance and, on a hit, runs its steps and formats the
// response.
func (rt *ProtocolRuntime) Execute(ctx context.Context, utterance, fromAgent string, allowed []string) Outcome {
	match, ok := rt.Match(utterance)
	if !ok {
		return Outcome{Matched: false}
	}

	result := rt.exec.RunMatched(ctx, match.Protocol, fromAgent, allowed, executor.MatchInfo{
		TriggerPhrase: match.MatchedPhrase,
		MatchedPhrase: utterance,
		Arguments:     match.Arguments,
	})
	response := rt.format.Format(ctx, match.Protocol, result, match.Arguments)

	return Outcome{
		Matched:       true,
		Protocol:      match.Protocol,
		MatchedPhrase: match.MatchedPhrase,
		Arguments:     match.Arguments,
		Execution:     result,
		Response:      response,
	}
}

// Registry exposes the underlying registry for callers that need direct
// registration access (e.g. loading protocol files at startup).
func (rt *ProtocolRuntime) Registry() *registry.Registry { return rt.registry }
