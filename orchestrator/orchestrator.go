// Package orchestrator implements the end-to-end request pipeline:
// latency timing, night-mode gate, fast-path protocol execution, and
// NLU fallback via the broker's reserved intent_matching capability.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/logging"
	"github.com/ostepan8/agentbus/nightmode"
	"github.com/ostepan8/agentbus/runtime"
)

// NLUBroker is the subset of *broker.Broker the NLU fallback step uses.
type NLUBroker interface {
	RequestCapability(fromAgent, capability string, data map[string]interface{}, requestID string, allowed []string) (string, []string, error)
	WaitForResponse(ctx context.Context, requestID string, timeout time.Duration) (map[string]interface{}, error)
}

// Response is the orchestrator's output for one request.
type Response struct {
	Response         string
	ProtocolExecuted string
	ExecutionTimeMS  int64
}

// historyEntry is one (utterance, response) pair in a user's conversation
// history.
type historyEntry struct {
	Utterance string
	Response  string
}

// Orchestrator composes the protocol runtime, the night-mode gate, and
// the broker's NLU fallback capability into one request pipeline.
type Orchestrator struct {
	runtime    *runtime.ProtocolRuntime
	nightMode  *nightmode.Controller
	broker     NLUBroker
	nluTimeout time.Duration

	defaultUserID     string
	conversationLimit int

	interactionLogger logging.InteractionLogger

	mu       sync.Mutex
	history  map[string][]historyEntry
	profiles map[string]*AgentProfile

	logger corekit.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithInteractionLogger(logger logging.InteractionLogger) Option {
	return func(o *Orchestrator) { o.interactionLogger = logger }
}

func WithLogger(logger corekit.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New builds an Orchestrator.
func New(rt *runtime.ProtocolRuntime, nightMode *nightmode.Controller, broker NLUBroker, cfg *corekit.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runtime:           rt,
		nightMode:         nightMode,
		broker:            broker,
		nluTimeout:        cfg.NLUTimeout,
		defaultUserID:     cfg.DefaultUserID,
		conversationLimit: cfg.ConversationLimit,
		history:           make(map[string][]historyEntry),
		profiles:          make(map[string]*AgentProfile),
		logger:            cfg.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = corekit.NoOpLogger{}
	}
	return o
}

// Handle runs the full pipeline for one utterance.
func (o *Orchestrator) Handle(ctx context.Context, utterance string, metadata map[string]interface{}) Response {
	start := time.Now()

	userID := o.defaultUserID
	if v, ok := metadata["user_id"].(string); ok && v != "" {
		userID = v
	}
	device, _ := metadata["device"].(string)
	location, _ := metadata["location"].(string)
	source, _ := metadata["source"].(string)

	if raw, ok := metadata["profile"].(map[string]interface{}); ok {
		if profile, ok := parseAgentProfile(raw); ok {
			o.setProfile(userID, profile)
		}
	}
	o.touchProfile(userID, start)

	// Night-mode gate.
	match, hadMatch := o.runtime.Match(utterance)
	matchedName := ""
	if hadMatch {
		matchedName = match.Protocol.Name
	}
	if !o.nightMode.Gate(matchedName, hadMatch) {
		resp := "Jarvis is in maintenance mode"
		o.logInteraction(utterance, resp, "", "", "", time.Since(start), false, userID, device, location, source)
		return Response{Response: resp, ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	// Fast-path protocol match.
	if hadMatch {
		outcome := o.runtime.Execute(ctx, utterance, userID, nil)
		o.logInteraction(utterance, outcome.Response, "protocol", "", outcome.Protocol.Name, time.Since(start), outcome.Execution.Success, userID, device, location, source)
		return Response{
			Response:         outcome.Response,
			ProtocolExecuted: outcome.Protocol.Name,
			ExecutionTimeMS:  time.Since(start).Milliseconds(),
		}
	}

	// NLU fallback.
	return o.nluFallback(ctx, utterance, userID, device, location, source, start)
}

func (o *Orchestrator) nluFallback(ctx context.Context, utterance, userID, device, location, source string, start time.Time) Response {
	history := o.historySnapshot(userID)

	requestID, _, err := o.broker.RequestCapability(userID, "intent_matching", map[string]interface{}{
		"input":                utterance,
		"conversation_history": history,
	}, "", nil)
	if err != nil {
		resp := fmt.Sprintf("Sorry, I encountered an error: %s", err.Error())
		o.logInteraction(utterance, resp, "", "", "", time.Since(start), false, userID, device, location, source)
		return Response{Response: resp, ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.nluTimeout)
	defer cancel()
	result, err := o.broker.WaitForResponse(waitCtx, requestID, o.nluTimeout)
	if err != nil {
		var resp string
		if corekit.IsRetryable(err) {
			resp = "The request took too long to complete. Please try again."
		} else {
			resp = fmt.Sprintf("Sorry, I encountered an error: %s", err.Error())
		}
		o.logInteraction(utterance, resp, "", "", "", time.Since(start), false, userID, device, location, source)
		return Response{Response: resp, ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	response, _ := result["response"].(string)
	if response == "" {
		resp := "Sorry, I didn't understand that."
		o.logInteraction(utterance, resp, "", "", "", time.Since(start), false, userID, device, location, source)
		return Response{Response: resp, ExecutionTimeMS: time.Since(start).Milliseconds()}
	}
	intent, capability := extractIntentCapability(result)

	o.appendHistory(userID, utterance, response)
	o.logInteraction(utterance, response, intent, capability, "", time.Since(start), true, userID, device, location, source)

	return Response{Response: response, ExecutionTimeMS: time.Since(start).Milliseconds()}
}

func extractIntentCapability(result map[string]interface{}) (intent, capability string) {
	meta, ok := result["metadata"].(map[string]interface{})
	if !ok {
		return "", ""
	}
	intent, _ = meta["intent"].(string)
	capability, _ = meta["capability"].(string)
	return intent, capability
}

func (o *Orchestrator) setProfile(userID string, profile *AgentProfile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.profiles[userID] = profile
}

// touchProfile bumps the interaction count and last-seen stamp for a
// user that already has a stored profile.
func (o *Orchestrator) touchProfile(userID string, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.profiles[userID]; ok {
		p.touch(now)
	}
}

// Profile returns the stored profile for userID, if any.
func (o *Orchestrator) Profile(userID string) (*AgentProfile, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.profiles[userID]
	return p, ok
}

func (o *Orchestrator) appendHistory(userID, utterance, response string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entries := append(o.history[userID], historyEntry{Utterance: utterance, Response: response})
	if len(entries) > o.conversationLimit {
		entries = entries[len(entries)-o.conversationLimit:]
	}
	o.history[userID] = entries
}

func (o *Orchestrator) historySnapshot(userID string) []map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	entries := o.history[userID]
	out := make([]map[string]string, len(entries))
	for i, e := range entries {
		out[i] = map[string]string{"utterance": e.Utterance, "response": e.Response}
	}
	return out
}

func (o *Orchestrator) logInteraction(utterance, response, intent, capability, protocolExecuted string, latency time.Duration, success bool, userID, device, location, source string) {
	if o.interactionLogger == nil {
		return
	}
	o.interactionLogger.LogInteraction(logging.InteractionEntry{
		Utterance:        utterance,
		Response:         response,
		Intent:           intent,
		Capability:       capability,
		ProtocolExecuted: protocolExecuted,
		LatencyMS:        latency.Milliseconds(),
		Success:          success,
		UserID:           userID,
		Device:           device,
		Location:         location,
		Source:           source,
	})
}
