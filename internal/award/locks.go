// Package award implements the winner & publication state machine: the
// explicit, admin-triggered promotion of a rank-1 submission to published
// winner, and the tender-scoped mutual exclusion that keeps the winner slot
// single-occupancy under concurrent decisions.
package award

import "sync"

// TenderLocks serializes winner-slot mutations per tender. Winner promotion
// and dispute acceptance are the only operations that take these locks;
// everything else (evaluation writes, ranking reads) runs lock-free against
// store snapshots.
type TenderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTenderLocks creates an empty lock registry.
func NewTenderLocks() *TenderLocks {
	return &TenderLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given tender, creating it on first use,
// and returns the matching unlock function.
func (tl *TenderLocks) Lock(tenderID string) (unlock func()) {
	tl.mu.Lock()
	m, ok := tl.locks[tenderID]
	if !ok {
		m = &sync.Mutex{}
		tl.locks[tenderID] = m
	}
	tl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
