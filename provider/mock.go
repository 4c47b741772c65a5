package provider

import (
	"context"
	"sync"

	"github.com/ostepan8/agentbus/message"
)

// MockProvider is an in-memory test double: it records every message it
// receives and lets a test install canned function-table behavior.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	caps      []string
	functions map[string]Function
	received  []*message.Message
	onReceive func(ctx context.Context, msg *message.Message)
}

func NewMockProvider(name string, capabilities ...string) *MockProvider {
	return &MockProvider{name: name, caps: capabilities, functions: make(map[string]Function)}
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Capabilities() []string { return m.caps }

func (m *MockProvider) ReceiveMessage(ctx context.Context, msg *message.Message) {
	m.mu.Lock()
	m.received = append(m.received, msg)
	handler := m.onReceive
	m.mu.Unlock()

	if handler != nil {
		handler(ctx, msg)
	}
}

// OnReceive installs a callback invoked for every message delivered to
// this provider, in addition to recording it.
func (m *MockProvider) OnReceive(fn func(ctx context.Context, msg *message.Message)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReceive = fn
}

// SetFunction installs an in-process function-table entry.
func (m *MockProvider) SetFunction(name string, fn Function) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.functions[name] = fn
}

func (m *MockProvider) FunctionTable() map[string]Function {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Function, len(m.functions))
	for k, v := range m.functions {
		out[k] = v
	}
	return out
}

// Received returns a snapshot of every message this provider has seen, in
// delivery order.
func (m *MockProvider) Received() []*message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*message.Message, len(m.received))
	copy(out, m.received)
	return out
}
