package broker

import "sync/atomic"

// metrics holds the broker's monotonic counters, exposed through
// Broker.Metrics, plus the circuit-breaker flag.
type metrics struct {
	directMessages       atomic.Int64
	queuedMessages       atomic.Int64
	broadcastMessages    atomic.Int64
	droppedMessages      atomic.Int64
	backpressureEvents   atomic.Int64
	futureCleanups       atomic.Int64
	circuitBreakerActive atomic.Bool
}

// Snapshot is the point-in-time rendering returned by Broker.Metrics().
type Snapshot struct {
	DirectMessages       int64
	QueuedMessages       int64
	BroadcastMessages    int64
	DroppedMessages      int64
	BackpressureEvents   int64
	FutureCleanups       int64
	HighQueueDepth       int
	NormalQueueDepth     int
	LowQueueDepth        int
	ActiveCorrelations   int
	CircuitBreakerActive bool
}
