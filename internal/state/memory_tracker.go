package state

import (
	"sort"
	"sync"
)

// MemoryTracker keeps trigger-active ids in process memory.
// Params: guarded id set.
// Returns: tracker rebuilt from scratch by resync after restart.
type MemoryTracker struct {
	mu     sync.RWMutex
	active map[string]struct{}
}

// NewMemoryTracker creates empty in-memory tracker.
// Params: none.
// Returns: initialized tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{active: make(map[string]struct{})}
}

// IsActive reports whether API has an active trigger.
// Params: API id.
// Returns: true when id was marked active.
func (t *MemoryTracker) IsActive(apiID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.active[apiID]
	return ok
}

// MarkActive records trigger activation.
// Params: API id.
// Returns: none.
func (t *MemoryTracker) MarkActive(apiID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[apiID] = struct{}{}
}

// MarkInactive records trigger cancellation.
// Params: API id.
// Returns: none.
func (t *MemoryTracker) MarkInactive(apiID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, apiID)
}

// ClearAll forgets every active trigger.
// Params: none.
// Returns: none.
func (t *MemoryTracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = make(map[string]struct{})
}

// Len returns number of active triggers.
func (t *MemoryTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// ActiveIDs returns sorted snapshot of active API ids.
// Params: none.
// Returns: copy safe for callers to keep.
func (t *MemoryTracker) ActiveIDs() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
