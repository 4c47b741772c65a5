package broker

import (
	"context"
	"time"

	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/message"
)

func (b *Broker) queueFor(p message.Priority) *boundedQueue {
	switch p {
	case message.PriorityHigh:
		return b.high
	case message.PriorityNormal:
		return b.normal
	default:
		return b.low
	}
}

// enqueue applies the backpressure policy before pushing msg onto the
// priority queue.
func (b *Broker) enqueue(priority message.Priority, msg *message.Message) {
	target := b.queueFor(priority)
	capacity := float64(target.capacity)
	thresholdB := capacity * b.cfg.BackpressureHighB
	thresholdC := capacity * b.cfg.BackpressureHighC

	size := float64(target.Len())

	// Rule 1: non-high priority at or above the hard threshold is dropped.
	if size >= thresholdC && priority != message.PriorityHigh {
		b.dropMessage("backpressure: queue at hard threshold")
		return
	}

	// Rule 2: high priority at or above the soft threshold frees space by
	// evicting up to three low-priority messages.
	if size >= thresholdB && priority == message.PriorityHigh {
		dropped := b.low.dropOldest(3)
		for i := 0; i < dropped; i++ {
			b.metrics.droppedMessages.Add(1)
		}
		if dropped > 0 {
			b.metrics.backpressureEvents.Add(1)
			b.metrics.circuitBreakerActive.Store(true)
		}
	}

	if target.tryPush(msg) {
		b.clearCircuitBreakerIfBelowThreshold(target, thresholdB)
		return
	}

	// Rule 3: queue still full for a high-priority message — evict one
	// more low-priority message and retry once.
	if priority == message.PriorityHigh {
		if _, ok := b.low.popFront(); ok {
			b.metrics.droppedMessages.Add(1)
			b.metrics.backpressureEvents.Add(1)
			b.metrics.circuitBreakerActive.Store(true)
		}
		if target.tryPush(msg) {
			b.clearCircuitBreakerIfBelowThreshold(target, thresholdB)
			return
		}
		b.logger.Error("dropping high-priority message: queue still full after eviction", map[string]interface{}{"message_id": msg.ID})
		b.dropMessage("backpressure: high-priority queue full after eviction")
		return
	}

	b.dropMessage("backpressure: queue full")
}

func (b *Broker) dropMessage(reason string) {
	b.metrics.droppedMessages.Add(1)
	b.metrics.backpressureEvents.Add(1)
	b.metrics.circuitBreakerActive.Store(true)
	b.logger.Warn(reason, nil)
}

func (b *Broker) clearCircuitBreakerIfBelowThreshold(target *boundedQueue, thresholdB float64) {
	if float64(target.Len()) < thresholdB {
		b.metrics.circuitBreakerActive.Store(false)
	}
}

// workerLoop pops the highest-priority available message across the three
// queues (high, then normal, then low), falling back to a bounded wait
// when all three are empty, and dispatches it. Sustained high-priority
// load may starve lower queues indefinitely; that is the documented
// fairness policy.
func (b *Broker) workerLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		msg, ok := b.dequeueNext()
		if ok {
			b.dispatch(msg)
			continue
		}

		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			continue
		}
	}
}

func (b *Broker) dequeueNext() (*message.Message, bool) {
	if msg, ok := b.high.popFront(); ok {
		b.clearCircuitBreakerIfBelowThreshold(b.high, float64(b.high.capacity)*b.cfg.BackpressureHighB)
		return msg, true
	}
	if msg, ok := b.normal.popFront(); ok {
		b.clearCircuitBreakerIfBelowThreshold(b.normal, float64(b.normal.capacity)*b.cfg.BackpressureHighB)
		return msg, true
	}
	if msg, ok := b.low.popFront(); ok {
		b.clearCircuitBreakerIfBelowThreshold(b.low, float64(b.low.capacity)*b.cfg.BackpressureHighB)
		return msg, true
	}
	return nil, false
}

func (b *Broker) dispatch(msg *message.Message) {
	switch msg.MessageType {
	case message.TypeCapabilityResponse:
		b.handleResponse(msg)
	case message.TypeError:
		b.handleError(msg)
	default:
		if msg.ToAgent != "" {
			b.deliverToKnownProvider(msg)
			return
		}
		if msg.MessageType == message.TypeCapabilityRequest {
			b.handleBroadcastCapabilityRequest(msg)
		}
	}
}

func (b *Broker) deliverToKnownProvider(msg *message.Message) {
	b.providersMu.RLock()
	p, ok := b.providers[msg.ToAgent]
	b.providersMu.RUnlock()
	if ok {
		b.scheduleDelivery(p, msg)
	}
}

func (b *Broker) handleResponse(msg *message.Message) {
	resolved := b.correlation.fulfill(msg.RequestID, correlationResult{value: msg.Content})
	if !resolved {
		b.logger.Warn("capability_response for missing or already-fulfilled correlation entry", map[string]interface{}{"request_id": msg.RequestID})
	}
	if msg.ToAgent != "" && b.deliverResponsesToRecipient {
		b.deliverToKnownProvider(msg)
	}
}

func (b *Broker) handleError(msg *message.Message) {
	errText, _ := msg.Error()
	resolved := b.correlation.fulfill(msg.RequestID, correlationResult{value: map[string]interface{}{"error": errText}})
	if !resolved {
		b.logger.Warn("error message for missing or already-fulfilled correlation entry", map[string]interface{}{"request_id": msg.RequestID})
	}
	if msg.ToAgent != "" {
		b.deliverToKnownProvider(msg)
	}
}

func (b *Broker) handleBroadcastCapabilityRequest(msg *message.Message) {
	capability, _ := msg.Content["capability"].(string)
	data, _ := msg.Content["data"].(map[string]interface{})

	var allowed []string
	if raw, ok := msg.Content["allowed_agents"]; ok {
		allowed = toStringSlice(raw)
	}

	eligible := b.capabilities.providers(capability)
	if allowed != nil {
		eligible = intersect(eligible, allowed)
	}
	if len(eligible) == 0 {
		return
	}

	b.metrics.broadcastMessages.Add(1)
	b.providersMu.RLock()
	for _, name := range eligible {
		p, ok := b.providers[name]
		if !ok {
			continue
		}
		delivery := msg.WithCorrelation(msg.RequestID, msg.ID)
		delivery.ToAgent = name
		b.scheduleDelivery(p, delivery)
	}
	b.providersMu.RUnlock()

	b.recordSinkMu.RLock()
	sink := b.recordSink
	b.recordSinkMu.RUnlock()
	if sink != nil && sink.Active() && capability != ReservedIntentMatching {
		sink.RecordStep(eligible[0], capability, data, nil)
	}
}

func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// gcLoop sweeps the correlation table every cleanup_interval, cancelling
// and removing entries older than ttl.
func (b *Broker) gcLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			cleaned := b.correlation.sweep(time.Now(), corekit.NewFrameworkError("Broker.gcLoop", "broker", corekit.ErrTimeout))
			if cleaned > 0 {
				b.metrics.futureCleanups.Add(int64(cleaned))
			}
		}
	}
}
