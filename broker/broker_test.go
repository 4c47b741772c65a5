package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostepan8/agentbus/executor"
	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/message"
	"github.com/ostepan8/agentbus/provider"
	"github.com/ostepan8/agentbus/recorder"
)

// recordingLogger captures log calls so tests can assert that delivery
// failures are logged rather than silently dropped.
type recordingLogger struct {
	corekit.NoOpLogger
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func newTestBroker(t *testing.T, opts ...corekit.Option) *Broker {
	t.Helper()
	cfg, err := corekit.NewConfig(opts...)
	require.NoError(t, err)
	b := New(cfg)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(b.Stop)
	return b
}

func TestFastPathDeliversExactlyOnce(t *testing.T) {
	b := newTestBroker(t)
	lights := provider.NewMockProvider("Lights", "set_color_name")
	require.NoError(t, b.RegisterProvider(lights, true, false))

	delivered := make(chan struct{}, 1)
	lights.OnReceive(func(ctx context.Context, msg *message.Message) { delivered <- struct{}{} })

	require.NoError(t, b.Send(message.New("Jarvis", "Lights", message.TypeCapabilityRequest, map[string]interface{}{"capability": "set_color_name"})))

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
	assert.Len(t, lights.Received(), 1)
}

func TestAllowedAgentsExcludesOthers(t *testing.T) {
	b := newTestBroker(t)
	lights := provider.NewMockProvider("Lights", "set_color_name")
	thermostat := provider.NewMockProvider("Thermostat", "set_color_name")
	require.NoError(t, b.RegisterProvider(lights, true, false))
	require.NoError(t, b.RegisterProvider(thermostat, true, false))

	_, eligible, err := b.RequestCapability("Jarvis", "set_color_name", nil, "", []string{"Lights"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lights"}, eligible)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, lights.Received(), 1)
	assert.Empty(t, thermostat.Received())
}

func TestWaitForResponseZeroTimeoutReturnsPromptly(t *testing.T) {
	b := newTestBroker(t)
	requestID, _, err := b.RequestCapability("Jarvis", "intent_matching", nil, "", nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = b.WaitForResponse(context.Background(), requestID, 0)
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.ErrorIs(t, err, corekit.ErrTimeout)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestWaitForResponseUnknownRequest(t *testing.T) {
	b := newTestBroker(t)
	_, err := b.WaitForResponse(context.Background(), "does-not-exist", time.Second)
	assert.ErrorIs(t, err, corekit.ErrUnknownRequest)
}

func TestCapabilityResponseResolvesCorrelation(t *testing.T) {
	b := newTestBroker(t)
	requestID, _, err := b.RequestCapability("Jarvis", "intent_matching", nil, "", nil)
	require.NoError(t, err)

	resp := message.New("NLU", "", message.TypeCapabilityResponse, map[string]interface{}{"response": "done"})
	resp.RequestID = requestID
	require.NoError(t, b.Send(resp))

	value, err := b.WaitForResponse(context.Background(), requestID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "done", value["response"])
}

func TestBackpressureDropsLowPriorityAtHardThreshold(t *testing.T) {
	cfg, err := corekit.NewConfig(corekit.WithQueueCapacity(10))
	require.NoError(t, err)
	b := New(cfg)

	// Fill the low queue directly to capacity (10), which is at or above the
	// hard threshold (95% of cap=10 -> 9.5).
	for i := 0; i < 10; i++ {
		b.low.tryPush(message.New("x", "", message.Type("freeform"), nil))
	}

	before := b.Metrics()
	b.enqueue(message.PriorityLow, message.New("x", "", message.Type("freeform"), nil))
	after := b.Metrics()

	assert.Equal(t, before.DroppedMessages+1, after.DroppedMessages)
	assert.True(t, after.CircuitBreakerActive)
}

func TestTTLCleanupCancelsWaiter(t *testing.T) {
	cfg, err := corekit.NewConfig(corekit.WithCorrelationTTL(30*time.Millisecond), corekit.WithCleanupInterval(10*time.Millisecond))
	require.NoError(t, err)
	b := New(cfg)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	requestID, _, err := b.RequestCapability("Jarvis", "never_answered", nil, "", nil)
	require.NoError(t, err)

	_, err = b.WaitForResponse(context.Background(), requestID, 500*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, int64(1), b.Metrics().FutureCleanups)
}

func TestDisallowedProviderNeverReceivesMessage(t *testing.T) {
	b := newTestBroker(t)
	x := provider.NewMockProvider("X", "do_thing")
	require.NoError(t, b.RegisterProvider(x, true, false))

	_, eligible, err := b.RequestCapability("Jarvis", "do_thing", nil, "", []string{"Y"})
	require.NoError(t, err)
	assert.Empty(t, eligible)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, x.Received())
}

func TestPanicInProviderHandlerDoesNotCrashWorker(t *testing.T) {
	b := newTestBroker(t)
	flaky := provider.NewMockProvider("Flaky", "panics")
	flaky.OnReceive(func(ctx context.Context, msg *message.Message) { panic("boom") })
	require.NoError(t, b.RegisterProvider(flaky, true, false))

	require.NoError(t, b.Send(message.New("Jarvis", "Flaky", message.TypeCapabilityRequest, nil)))
	time.Sleep(50 * time.Millisecond)

	stable := provider.NewMockProvider("Stable", "ok")
	delivered := make(chan struct{}, 1)
	stable.OnReceive(func(ctx context.Context, msg *message.Message) { delivered <- struct{}{} })
	require.NoError(t, b.RegisterProvider(stable, true, false))
	require.NoError(t, b.Send(message.New("Jarvis", "Stable", message.TypeCapabilityRequest, nil)))

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("worker did not recover from panic")
	}
}

func TestPanicInFastPathDeliveryIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	b := newTestBroker(t, corekit.WithLogger(logger))
	flaky := provider.NewMockProvider("Flaky", "panics")
	flaky.OnReceive(func(ctx context.Context, msg *message.Message) { panic("boom") })
	require.NoError(t, b.RegisterProvider(flaky, true, false))

	require.NoError(t, b.Send(message.New("Jarvis", "Flaky", message.TypeCapabilityRequest, nil)))

	require.Eventually(t, func() bool {
		return len(logger.Errors()) > 0
	}, time.Second, 10*time.Millisecond, "fast-path handler panic was not logged")
	assert.Contains(t, logger.Errors()[0], "panicked")
}

func TestRecordingCapturesBroadcastsInOrderAndReplays(t *testing.T) {
	b := newTestBroker(t)
	lights := provider.NewMockProvider("Lights", "turn_off")
	locks := provider.NewMockProvider("Locks", "lock_all")
	require.NoError(t, b.RegisterProvider(lights, true, false))
	require.NoError(t, b.RegisterProvider(locks, true, false))

	rec := recorder.New(nil, nil)
	b.SetRecordSink(rec)
	rec.Start("goodnight", "recorded while driving the bus")

	_, _, err := b.RequestCapability("Jarvis", "turn_off", map[string]interface{}{"room": "all"}, "", nil)
	require.NoError(t, err)
	_, _, err = b.RequestCapability("Jarvis", "lock_all", nil, "", nil)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	p, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, "Lights", p.Steps[0].Agent)
	assert.Equal(t, "turn_off", p.Steps[0].Function)
	assert.Equal(t, "all", p.Steps[0].Parameters["room"])
	assert.Equal(t, "Locks", p.Steps[1].Agent)
	assert.Equal(t, "lock_all", p.Steps[1].Function)

	var turnedOff, lockedAll bool
	lights.SetFunction("turn_off", func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		turnedOff = params["room"] == "all"
		return map[string]interface{}{}, nil
	})
	locks.SetFunction("lock_all", func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		lockedAll = true
		return map[string]interface{}{}, nil
	})

	result := rec.Replay(context.Background(), executor.New(b, time.Second), p, "Jarvis", nil)
	assert.True(t, result.Success)
	assert.True(t, turnedOff)
	assert.True(t, lockedAll)
}

func TestIntentMatchingBroadcastIsNeverRecorded(t *testing.T) {
	b := newTestBroker(t)
	nlu := provider.NewMockProvider("NLU", ReservedIntentMatching)
	require.NoError(t, b.RegisterProvider(nlu, true, false))

	rec := recorder.New(nil, nil)
	b.SetRecordSink(rec)
	rec.Start("should_stay_empty", "")

	_, _, err := b.RequestCapability("Jarvis", ReservedIntentMatching, nil, "", nil)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	p, err := rec.Stop(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
}
