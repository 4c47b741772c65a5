// Package executor runs the ordered steps of a matched protocol,
// threading results from one step into the next via parameter bindings
// and reference-expression resolution.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/protocol"
	"github.com/ostepan8/agentbus/provider"
)

// Broker is the subset of *broker.Broker the executor depends on. Declared
// as an interface so the executor package never imports broker directly,
// avoiding the cycle broker (may one day want executor-triggered replay)
// would otherwise create.
type Broker interface {
	FunctionTable(agent string) (map[string]provider.Function, bool)
	RequestCapability(fromAgent, capability string, data map[string]interface{}, requestID string, allowed []string) (string, []string, error)
	WaitForResponse(ctx context.Context, requestID string, timeout time.Duration) (map[string]interface{}, error)
}

// RecordSink mirrors broker.RecordSink so the executor can append each step
// it dispatches to an in-flight recording, before dispatch and whichever
// path (function table or broker) carries it. Steps blocked by the
// allowed-agents check are not recorded.
type RecordSink interface {
	Active() bool
	RecordStep(agent, function string, params map[string]interface{}, mappings map[string]string)
}

// UsageLogger receives one structured entry per completed protocol run
// (success flag, latency, trigger phrase, extracted arguments).
type UsageLogger interface {
	LogUsage(entry UsageEntry)
}

// UsageEntry is the structured record emitted after a protocol finishes.
type UsageEntry struct {
	ProtocolName  string
	ProtocolID    string
	Arguments     map[string]interface{}
	TriggerPhrase string
	MatchedPhrase string
	Success       bool
	LatencyMS     int64
	Metadata      map[string]interface{}
}

// StepOutcome is the per-step record stored in Result.Steps.
type StepOutcome struct {
	Agent    string
	Function string
	Params   map[string]interface{}
	Result   map[string]interface{}
	Error    string
}

// Result is the executor's overall output: the per-step outcomes keyed by
// step_<i>_<function>, in execution order, plus whether every step
// succeeded.
type Result struct {
	Order   []string
	Steps   map[string]StepOutcome
	Success bool
}

// Executor runs protocol steps. Construct with New and attach a
// recorder/usage logger as needed.
type Executor struct {
	broker      Broker
	logger      corekit.Logger
	tel         corekit.Telemetry
	usageLogger UsageLogger
	recordSink  RecordSink
	stepTimeout time.Duration
}

// Option configures an Executor at construction time.
type Option func(*Executor)

func WithLogger(logger corekit.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

func WithTelemetry(tel corekit.Telemetry) Option {
	return func(e *Executor) { e.tel = tel }
}

func WithUsageLogger(logger UsageLogger) Option {
	return func(e *Executor) { e.usageLogger = logger }
}

func WithRecordSink(sink RecordSink) Option {
	return func(e *Executor) { e.recordSink = sink }
}

func WithStepTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		if timeout > 0 {
			e.stepTimeout = timeout
		}
	}
}

// New builds an Executor bound to broker b.
func New(b Broker, stepTimeout time.Duration, opts ...Option) *Executor {
	e := &Executor{
		broker:      b,
		logger:      corekit.NoOpLogger{},
		tel:         corekit.NoOpTelemetry{},
		stepTimeout: stepTimeout,
	}
	if e.stepTimeout <= 0 {
		e.stepTimeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MatchInfo carries the trigger-match context a caller already holds, so
// the usage log entry can record how the protocol was invoked. The zero
// value is valid for replay and other unmatched invocations.
type MatchInfo struct {
	TriggerPhrase string
	MatchedPhrase string
	Arguments     map[string]interface{}
	Metadata      map[string]interface{}
}

// Run executes p's steps in order, resolving parameter bindings against
// prior step results and p.Arguments, for a request originating from
// fromAgent. allowed, if non-nil, restricts which agents a step may
// dispatch to.
func (e *Executor) Run(ctx context.Context, p *protocol.Protocol, fromAgent string, allowed []string) Result {
	return e.RunMatched(ctx, p, fromAgent, allowed, MatchInfo{})
}

// RunMatched is Run plus the trigger-match context recorded in the usage
// log entry.
func (e *Executor) RunMatched(ctx context.Context, p *protocol.Protocol, fromAgent string, allowed []string, match MatchInfo) Result {
	start := time.Now()
	ctx, span := e.tel.StartSpan(ctx, "executor.run."+p.Name)
	defer span.End()

	result := Result{
		Order: make([]string, 0, len(p.Steps)),
		Steps: make(map[string]StepOutcome, len(p.Steps)),
	}
	success := true

	for i, step := range p.Steps {
		key := stepResultKey(i, step.Function)
		result.Order = append(result.Order, key)

		if allowed != nil && !containsString(allowed, step.Agent) {
			outcome := StepOutcome{Agent: step.Agent, Function: step.Function, Error: "agent_disallowed"}
			result.Steps[key] = outcome
			success = false
			e.logger.Warn("step dispatch blocked: agent not in allowed set", map[string]interface{}{
				"agent": step.Agent, "function": step.Function,
			})
			continue
		}

		params := e.buildParams(step, result.Steps, p.Arguments)

		if e.recordSink != nil && e.recordSink.Active() {
			e.recordSink.RecordStep(step.Agent, step.Function, params, step.ParameterMappings)
		}

		stepResult, stepErr := e.dispatch(ctx, fromAgent, step, params, allowed)
		outcome := StepOutcome{Agent: step.Agent, Function: step.Function, Params: params}
		if stepErr != nil {
			outcome.Error = stepErr.Error()
			success = false
		} else if errText, hasErr := errorField(stepResult); hasErr {
			outcome.Error = errText
			outcome.Result = stepResult
			success = false
		} else {
			outcome.Result = stepResult
		}
		result.Steps[key] = outcome
	}

	result.Success = success

	if e.usageLogger != nil {
		arguments := match.Arguments
		if arguments == nil {
			arguments = p.Arguments
		}
		e.usageLogger.LogUsage(UsageEntry{
			ProtocolName:  p.Name,
			ProtocolID:    p.ID,
			Arguments:     arguments,
			TriggerPhrase: match.TriggerPhrase,
			MatchedPhrase: match.MatchedPhrase,
			Success:       success,
			LatencyMS:     time.Since(start).Milliseconds(),
			Metadata:      match.Metadata,
		})
	}

	return result
}

func (e *Executor) buildParams(step protocol.ProtocolStep, stepResults map[string]StepOutcome, arguments map[string]interface{}) map[string]interface{} {
	resultMap := make(map[string]map[string]interface{}, len(stepResults))
	for key, outcome := range stepResults {
		if outcome.Result != nil {
			resultMap[key] = outcome.Result
		}
	}
	resolved := resolveMappings(step.ParameterMappings, resultMap, arguments)
	return mergeParameters(step.Parameters, resolved, nil)
}

// dispatch calls step.Function on step.Agent: directly via the in-process
// function table if exposed, else through a broker capability_request/
// wait_for_response round trip.
func (e *Executor) dispatch(ctx context.Context, fromAgent string, step protocol.ProtocolStep, params map[string]interface{}, allowed []string) (map[string]interface{}, error) {
	if table, ok := e.broker.FunctionTable(step.Agent); ok {
		if fn, ok := table[step.Function]; ok {
			res, err := safeCall(fn, ctx, params)
			if err != nil {
				e.logger.Warn("function-table step failed", map[string]interface{}{
					"agent": step.Agent, "function": step.Function, "error": err.Error(),
				})
				return nil, err
			}
			return res, nil
		}
	}

	requestID, providers, err := e.broker.RequestCapability(fromAgent, step.Function, params, "", allowed)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, corekit.ErrNoProvider
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	return e.broker.WaitForResponse(waitCtx, requestID, e.stepTimeout)
}

// safeCall invokes fn and converts a panic into an error, so one
// misbehaving in-process function cannot crash the executor (mirrors
// broker.scheduleDelivery's panic containment for the queued path).
func safeCall(fn provider.Function, ctx context.Context, params map[string]interface{}) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = corekit.NewFrameworkError("Executor.dispatch", "executor", fmt.Errorf("%w: %v", corekit.ErrProviderPanic, r))
		}
	}()
	return fn(ctx, params)
}

func errorField(result map[string]interface{}) (string, bool) {
	if result == nil {
		return "", false
	}
	if v, ok := result["error"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
