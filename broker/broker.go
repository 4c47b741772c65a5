// Package broker implements the priority-aware in-process message broker:
// queueing, worker pool, correlation/TTL, backpressure, and capability
// fan-out.
package broker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/message"
	"github.com/ostepan8/agentbus/provider"
)

// ReservedIntentMatching is the capability name reserved for intent
// routing. Broadcasts of it are never captured by an attached recorder.
const ReservedIntentMatching = "intent_matching"

// RecordSink receives a notification for every broadcast
// capability_request while recording is active, used by the recorder
// package without broker depending on it.
type RecordSink interface {
	Active() bool
	RecordStep(agent, function string, params map[string]interface{}, mappings map[string]string)
}

// SenderAware is implemented by providers that want the broker's Sender
// back-reference handed to them at registration time, without the broker
// owning the provider.
type SenderAware interface {
	SetSender(provider.Sender)
}

// Broker is the message broker. Construct with New; call Start before
// sending messages and Stop to drain workers and cancel in-flight
// correlation entries.
type Broker struct {
	cfg    *corekit.Config
	logger corekit.Logger
	tel    corekit.Telemetry

	high, normal, low *boundedQueue

	providersMu sync.RWMutex
	providers   map[string]provider.Provider

	capabilities *capabilityRegistry
	correlation  *correlationTable
	metrics      metrics

	recordSinkMu sync.RWMutex
	recordSink   RecordSink

	deliverResponsesToRecipient bool

	wg       sync.WaitGroup
	stopCh   chan struct{}
	started  bool
	startMu  sync.Mutex
}

// New builds a Broker from cfg. The broker is not started until Start is
// called.
func New(cfg *corekit.Config) *Broker {
	if cfg == nil {
		cfg, _ = corekit.NewConfig()
	}
	return &Broker{
		cfg:                         cfg,
		logger:                      cfg.Logger,
		tel:                         corekit.NoOpTelemetry{},
		high:                        newBoundedQueue(cfg.QueueCapacity),
		normal:                      newBoundedQueue(cfg.QueueCapacity),
		low:                         newBoundedQueue(cfg.QueueCapacity),
		providers:                   make(map[string]provider.Provider),
		capabilities:                newCapabilityRegistry(),
		correlation:                 newCorrelationTable(cfg.CorrelationTTL),
		deliverResponsesToRecipient: true,
		stopCh:                      make(chan struct{}),
	}
}

// WithTelemetry installs a Telemetry implementation (otel-backed or
// no-op) for span-per-dispatch tracing.
func (b *Broker) WithTelemetry(tel corekit.Telemetry) *Broker {
	b.tel = tel
	return b
}

// SetDeliverResponsesToRecipient configures whether a capability_response
// is, in addition to resolving its correlation entry, also delivered to
// its to_agent recipient, for observability. Defaults to true.
func (b *Broker) SetDeliverResponsesToRecipient(enabled bool) {
	b.deliverResponsesToRecipient = enabled
}

// SetRecordSink attaches (or clears, with nil) the recorder hook invoked
// on every broadcast capability_request.
func (b *Broker) SetRecordSink(sink RecordSink) {
	b.recordSinkMu.Lock()
	defer b.recordSinkMu.Unlock()
	b.recordSink = sink
}

// RegisterProvider adds p to the broker's name-indexed map. If
// includeCapabilities is true, p's advertised capabilities are indexed
// in the active table (or the dormant table if dormant is true). If p
// implements SenderAware, the broker hands it a Sender back-reference.
func (b *Broker) RegisterProvider(p provider.Provider, includeCapabilities, dormant bool) error {
	b.providersMu.Lock()
	if _, exists := b.providers[p.Name()]; exists {
		b.providersMu.Unlock()
		return fmt.Errorf("%w: provider %q", corekit.ErrAlreadyRegistered, p.Name())
	}
	b.providers[p.Name()] = p
	b.providersMu.Unlock()

	if includeCapabilities {
		b.capabilities.register(p.Name(), p.Capabilities(), dormant)
	}
	if aware, ok := p.(SenderAware); ok {
		aware.SetSender(b)
	}
	return nil
}

// FunctionTable returns the in-process function table for agent, if it is
// registered and implements provider.FunctionTableProvider. Used by the
// executor to bypass the queue for deterministic one-party calls.
func (b *Broker) FunctionTable(agent string) (map[string]provider.Function, bool) {
	b.providersMu.RLock()
	p, ok := b.providers[agent]
	b.providersMu.RUnlock()
	if !ok {
		return nil, false
	}
	ft, ok := p.(provider.FunctionTableProvider)
	if !ok {
		return nil, false
	}
	return ft.FunctionTable(), true
}

// HasProvider reports whether agent is a registered provider name.
func (b *Broker) HasProvider(agent string) bool {
	b.providersMu.RLock()
	defer b.providersMu.RUnlock()
	_, ok := b.providers[agent]
	return ok
}

// ActivateCapabilities moves providerName's capabilities from the dormant
// table to the active table.
func (b *Broker) ActivateCapabilities(providerName string) {
	b.capabilities.activate(providerName)
}

// DeactivateCapabilities moves providerName's capabilities from the
// active table to the dormant table.
func (b *Broker) DeactivateCapabilities(providerName string) {
	b.capabilities.deactivate(providerName)
}

// Start launches the worker pool and the correlation GC loop.
func (b *Broker) Start(ctx context.Context) error {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.started {
		return corekit.ErrAlreadyStarted
	}
	b.started = true
	b.stopCh = make(chan struct{})

	for i := 0; i < b.cfg.WorkerCount; i++ {
		b.wg.Add(1)
		go b.workerLoop(ctx)
	}
	b.wg.Add(1)
	go b.gcLoop()
	return nil
}

// Stop cancels the GC loop and every outstanding correlation entry, then
// waits for workers to drain their current iteration and exit.
func (b *Broker) Stop() {
	b.startMu.Lock()
	if !b.started {
		b.startMu.Unlock()
		return
	}
	b.started = false
	close(b.stopCh)
	b.startMu.Unlock()

	b.correlation.cancelAll(corekit.ErrCancelled)
	b.wg.Wait()
}

// Metrics returns a point-in-time snapshot of broker counters and queue
// depths.
func (b *Broker) Metrics() Snapshot {
	return Snapshot{
		DirectMessages:       b.metrics.directMessages.Load(),
		QueuedMessages:       b.metrics.queuedMessages.Load(),
		BroadcastMessages:    b.metrics.broadcastMessages.Load(),
		DroppedMessages:      b.metrics.droppedMessages.Load(),
		BackpressureEvents:   b.metrics.backpressureEvents.Load(),
		FutureCleanups:       b.metrics.futureCleanups.Load(),
		HighQueueDepth:       b.high.Len(),
		NormalQueueDepth:     b.normal.Len(),
		LowQueueDepth:        b.low.Len(),
		ActiveCorrelations:   b.correlation.count(),
		CircuitBreakerActive: b.metrics.circuitBreakerActive.Load(),
	}
}

// Send routes msg: fast-path direct delivery when to_agent names a known
// provider, otherwise enqueued for worker processing under priority
// (defaulted from the message type, or the explicit override).
func (b *Broker) Send(msg *message.Message, priority ...message.Priority) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", corekit.ErrInvalidConfiguration)
	}
	p := message.ClassifyPriority(msg.MessageType)
	if len(priority) > 0 {
		p = priority[0]
	}

	if msg.ToAgent != "" {
		b.providersMu.RLock()
		recipient, ok := b.providers[msg.ToAgent]
		b.providersMu.RUnlock()
		if ok {
			b.metrics.directMessages.Add(1)
			b.scheduleDelivery(recipient, msg)
			return nil
		}
	}

	b.metrics.queuedMessages.Add(1)
	b.enqueue(p, msg)
	return nil
}

// RequestCapability creates a correlation entry keyed by requestID
// (generated if empty), broadcasts a capability_request, and returns the
// providers that would receive it (intersected with allowed, if given).
func (b *Broker) RequestCapability(fromAgent, capability string, data map[string]interface{}, requestID string, allowed []string) (string, []string, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	b.correlation.create(requestID)

	content := map[string]interface{}{"capability": capability, "data": data}
	if allowed != nil {
		content["allowed_agents"] = allowed
	}
	msg := message.New(fromAgent, "", message.TypeCapabilityRequest, content)
	msg.RequestID = requestID

	if err := b.Send(msg); err != nil {
		return requestID, nil, err
	}

	providers := b.capabilities.providers(capability)
	if allowed != nil {
		providers = intersect(providers, allowed)
	}
	return requestID, providers, nil
}

// WaitForResponse awaits fulfillment of the correlation entry for
// requestID, up to timeout. timeout=0 returns promptly with ErrTimeout
// rather than blocking.
func (b *Broker) WaitForResponse(ctx context.Context, requestID string, timeout time.Duration) (map[string]interface{}, error) {
	entry, ok := b.correlation.get(requestID)
	if !ok {
		return nil, corekit.NewFrameworkErrorWithID("Broker.WaitForResponse", "broker", requestID, corekit.ErrUnknownRequest)
	}

	if timeout <= 0 {
		select {
		case result := <-entry.ch:
			return result.value, result.err
		default:
			b.correlation.remove(requestID)
			return nil, corekit.NewFrameworkErrorWithID("Broker.WaitForResponse", "broker", requestID, corekit.ErrTimeout)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-entry.ch:
		return result.value, result.err
	case <-timer.C:
		b.correlation.remove(requestID)
		return nil, corekit.NewFrameworkErrorWithID("Broker.WaitForResponse", "broker", requestID, corekit.ErrTimeout)
	case <-ctx.Done():
		b.correlation.remove(requestID)
		return nil, corekit.NewFrameworkErrorWithID("Broker.WaitForResponse", "broker", requestID, corekit.ErrCancelled)
	}
}

// SendCapabilityResponse implements provider.Sender.
func (b *Broker) SendCapabilityResponse(ctx context.Context, to string, content map[string]interface{}, requestID, replyTo string) {
	msg := message.New(to, to, message.TypeCapabilityResponse, content)
	msg.RequestID = requestID
	msg.ReplyTo = replyTo
	if err := b.Send(msg); err != nil {
		b.logger.Warn("failed to send capability response", map[string]interface{}{"to": to, "error": err.Error()})
	}
}

// SendError implements provider.Sender.
func (b *Broker) SendError(ctx context.Context, to string, errText string, requestID string) {
	msg := message.New(to, to, message.TypeError, map[string]interface{}{"error": errText})
	msg.RequestID = requestID
	if err := b.Send(msg); err != nil {
		b.logger.Warn("failed to send error message", map[string]interface{}{"to": to, "error": err.Error()})
	}
}

func intersect(providers, allowed []string) []string {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowSet[a] = struct{}{}
	}
	out := make([]string, 0, len(providers))
	for _, p := range providers {
		if _, ok := allowSet[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// scheduleDelivery dispatches msg to p as a fire-and-forget goroutine. A
// handler panic is caught and logged; it never unwinds the worker.
// ReceiveMessage returns no error, so a panic is the only delivery failure
// the broker observes.
func (b *Broker) scheduleDelivery(p provider.Provider, msg *message.Message) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("provider message handler panicked", map[string]interface{}{
					"provider": p.Name(),
					"panic":    fmt.Sprint(r),
					"stack":    string(debug.Stack()),
				})
			}
		}()
		ctx, span := b.tel.StartSpan(context.Background(), "broker.deliver."+p.Name())
		defer span.End()
		p.ReceiveMessage(ctx, msg)
	}()
}
