package registry

import (
	"context"
	"sync"

	"github.com/ostepan8/agentbus/protocol"
)

// InMemoryStore is a Store backed by a process-local map; nothing outlives
// the process. A Registry uses it only when attached with WithStore.
type InMemoryStore struct {
	mu        sync.Mutex
	protocols map[string]*protocol.Protocol
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{protocols: make(map[string]*protocol.Protocol)}
}

func (s *InMemoryStore) Save(_ context.Context, p *protocol.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocols[p.ID] = p
	return nil
}

func (s *InMemoryStore) Load(_ context.Context) ([]*protocol.Protocol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.Protocol, 0, len(s.protocols))
	for _, p := range s.protocols {
		out = append(out, p)
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.protocols, id)
	return nil
}
