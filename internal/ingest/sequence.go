package ingest

import "sync"

// sequenceGuard remembers the newest stream sequence applied per API.
// A redelivered message older than the last applied one carries outdated state.
type sequenceGuard struct {
	mu      sync.Mutex
	applied map[string]uint64
}

func newSequenceGuard() *sequenceGuard {
	return &sequenceGuard{applied: make(map[string]uint64)}
}

// stale reports whether a newer message for the API was already applied.
// Params: API id and stream sequence of the message (0 when unknown).
// Returns: true when evaluation must be skipped.
func (g *sequenceGuard) stale(apiID string, seq uint64) bool {
	if seq == 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.applied[apiID] > seq
}

// advance records a successfully applied sequence; it never moves backwards.
func (g *sequenceGuard) advance(apiID string, seq uint64) {
	if seq == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq > g.applied[apiID] {
		g.applied[apiID] = seq
	}
}
