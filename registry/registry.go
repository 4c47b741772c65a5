// Package registry is the persistent store of named protocols: duplicate
// detection by normalized name and by normalized trigger-phrase set, with
// pluggable storage backends.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/protocol"
)

// Store persists protocols. The logical schema (id, name, description,
// arguments-JSON, steps-JSON, trigger_phrases-JSON,
// argument_definitions-JSON, response-JSON) is satisfied by any Store
// implementation that can round-trip a *protocol.Protocol; InMemoryStore
// and the JSON-file-backed Store in store_file.go both do.
type Store interface {
	Save(ctx context.Context, p *protocol.Protocol) error
	Load(ctx context.Context) ([]*protocol.Protocol, error)
	Delete(ctx context.Context, id string) error
}

// RegisterResult reports whether Register created a new entry or found a
// duplicate.
type RegisterResult int

const (
	RegisterCreated RegisterResult = iota
	RegisterDuplicate
	RegisterReplaced
)

// Registry is the in-memory index of protocols, optionally backed by a
// Store for persistence.
type Registry struct {
	mu          sync.RWMutex
	byID        map[string]*protocol.Protocol
	byName      map[string]string // normalized name -> id
	triggerSets map[string]string // joined normalized trigger set -> id
	store       Store
	logger      corekit.Logger
}

// Option configures a Registry at construction.
type Option func(*Registry)

func WithStore(store Store) Option {
	return func(r *Registry) { r.store = store }
}

func WithLogger(logger corekit.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New builds an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byID:        make(map[string]*protocol.Protocol),
		byName:      make(map[string]string),
		triggerSets: make(map[string]string),
		logger:      corekit.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadFromStore populates the registry from the configured Store, if any.
// Protocols are registered in the order Store.Load returns them; a
// duplicate found while loading is logged and skipped rather than rejected
// outright, since persisted state is assumed trustworthy.
func (r *Registry) LoadFromStore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	protocols, err := r.store.Load(ctx)
	if err != nil {
		return corekit.NewFrameworkError("Registry.LoadFromStore", "registry", err)
	}
	for _, p := range protocols {
		result, err := r.register(p, false)
		if result == RegisterDuplicate {
			r.logger.Warn("skipping duplicate protocol on load", map[string]interface{}{"id": p.ID, "name": p.Name})
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func triggerSetKey(p *protocol.Protocol) string {
	return strings.Join(p.NormalizedTriggerSet(), "\x1f")
}

// Register adds a protocol. The name must be unique after
// normalization, and the normalized trigger set must be unique across
// all registered protocols. Registering an id that is already registered
// under the same normalized name is a no-op, returning RegisterDuplicate
// rather than an error; the same id under a different name replaces the
// stored entry and returns RegisterReplaced.
func (r *Registry) Register(ctx context.Context, p *protocol.Protocol, replaceDuplicates bool) (RegisterResult, error) {
	result, err := r.register(p, replaceDuplicates)
	if err != nil {
		return result, err
	}
	if r.store != nil && result != RegisterDuplicate {
		if err := r.store.Save(ctx, p); err != nil {
			return result, corekit.NewFrameworkError("Registry.Register", "registry", err)
		}
	}
	return result, nil
}

func (r *Registry) register(p *protocol.Protocol, replaceDuplicates bool) (RegisterResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[p.ID]; ok && existing.NormalizedName() == p.NormalizedName() {
		return RegisterDuplicate, nil
	}

	normalizedName := p.NormalizedName()
	triggerKey := triggerSetKey(p)

	if conflictID, ok := r.byName[normalizedName]; ok && conflictID != p.ID {
		if !replaceDuplicates {
			return RegisterDuplicate, fmt.Errorf("%w: protocol name %q already registered", corekit.ErrAlreadyRegistered, p.Name)
		}
		r.removeLocked(conflictID)
	}
	if conflictID, ok := r.triggerSets[triggerKey]; ok && conflictID != p.ID {
		if !replaceDuplicates {
			return RegisterDuplicate, fmt.Errorf("%w: trigger phrase set already registered to protocol %q", corekit.ErrAlreadyRegistered, conflictID)
		}
		r.removeLocked(conflictID)
	}

	_, existed := r.byID[p.ID]
	r.byID[p.ID] = p
	r.byName[normalizedName] = p.ID
	r.triggerSets[triggerKey] = p.ID

	if existed {
		return RegisterReplaced, nil
	}
	return RegisterCreated, nil
}

func (r *Registry) removeLocked(id string) {
	p, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byName, p.NormalizedName())
	delete(r.triggerSets, triggerSetKey(p))
}

// Get resolves a protocol by id or by normalized name.
func (r *Registry) Get(idOrName string) (*protocol.Protocol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.byID[idOrName]; ok {
		return p, true
	}
	if id, ok := r.byName[strings.TrimSpace(strings.ToLower(idOrName))]; ok {
		return r.byID[id], true
	}
	return nil, false
}

// ListIDs returns every registered protocol id, sorted for deterministic
// iteration in tests and logs.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindMatchingProtocol returns the first protocol with a trigger phrase
// equal to utterance under normalization. Implementations may parallelize
// and short-circuit; this one scans a read-locked snapshot sequentially,
// which already short-circuits on first match and is fast enough at the
// expected protocol-set sizes.
func (r *Registry) FindMatchingProtocol(utterance string) (*protocol.Protocol, bool) {
	normalized := protocol.Normalize(utterance)

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := r.byID[id]
		for _, phrase := range p.TriggerPhrases {
			if protocol.Normalize(phrase) == normalized {
				return p, true
			}
		}
	}
	return nil, false
}

// Delete removes a protocol by id, including from the backing store.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	r.removeLocked(id)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Delete(ctx, id); err != nil {
			return corekit.NewFrameworkError("Registry.Delete", "registry", err)
		}
	}
	return nil
}
