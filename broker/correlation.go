package broker

import (
	"sync"
	"time"
)

// correlationResult is the one-shot value slot a correlation entry
// fulfills with.
type correlationResult struct {
	value map[string]interface{}
	err   error
}

type correlationEntry struct {
	ch        chan correlationResult
	createdAt time.Time
	mu        sync.Mutex
	done      bool
}

// fulfill resolves the entry exactly once; subsequent calls are a no-op
// and report false; resolving twice is a warning upstream, not an error.
func (e *correlationEntry) fulfill(result correlationResult) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return false
	}
	e.done = true
	e.ch <- result
	close(e.ch)
	return true
}

// correlationTable is the broker's request_id -> waiting-caller bookkeeping
// table.
type correlationTable struct {
	mu      sync.Mutex
	entries map[string]*correlationEntry
	ttl     time.Duration
}

func newCorrelationTable(ttl time.Duration) *correlationTable {
	return &correlationTable{entries: make(map[string]*correlationEntry), ttl: ttl}
}

// create registers a new correlation entry for requestID, overwriting any
// prior entry under the same id (callers are expected to generate fresh
// ids; a collision means the caller reused one deliberately).
func (t *correlationTable) create(requestID string) *correlationEntry {
	entry := &correlationEntry{ch: make(chan correlationResult, 1), createdAt: time.Now()}
	t.mu.Lock()
	t.entries[requestID] = entry
	t.mu.Unlock()
	return entry
}

func (t *correlationTable) get(requestID string) (*correlationEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[requestID]
	return entry, ok
}

func (t *correlationTable) remove(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, requestID)
}

// fulfill resolves the entry for requestID, if present and unfulfilled,
// then removes it. Returns false (a warning-level condition, not an
// error) if the entry is missing or already resolved.
func (t *correlationTable) fulfill(requestID string, result correlationResult) bool {
	entry, ok := t.get(requestID)
	if !ok {
		return false
	}
	ok = entry.fulfill(result)
	t.remove(requestID)
	return ok
}

// sweep cancels and removes every entry older than ttl, failing any
// waiter with timeoutErr, and returns how many were cleaned up.
func (t *correlationTable) sweep(now time.Time, timeoutErr error) int {
	t.mu.Lock()
	var expired []*correlationEntry
	for id, entry := range t.entries {
		if now.Sub(entry.createdAt) >= t.ttl {
			expired = append(expired, entry)
			delete(t.entries, id)
		}
	}
	t.mu.Unlock()

	for _, entry := range expired {
		entry.fulfill(correlationResult{err: timeoutErr})
	}
	return len(expired)
}

// cancelAll resolves every outstanding entry with err and clears the
// table, used on broker shutdown.
func (t *correlationTable) cancelAll(err error) {
	t.mu.Lock()
	entries := make([]*correlationEntry, 0, len(t.entries))
	for _, entry := range t.entries {
		entries = append(entries, entry)
	}
	t.entries = make(map[string]*correlationEntry)
	t.mu.Unlock()

	for _, entry := range entries {
		entry.fulfill(correlationResult{err: err})
	}
}

func (t *correlationTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
