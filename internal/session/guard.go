// Package session holds per-user ephemeral state: the single-flight guard that
// rejects overlapping requests, and the pending-input states of multi-step dialogs.
package session

import (
	"context"
	"sync"
)

// Guard admits at most one in-flight request per user.
type Guard interface {
	// Acquire reports whether the caller now holds the user's slot.
	Acquire(ctx context.Context, userID int64) (bool, error)
	// Release frees the slot. Releasing a slot that is not held is a no-op.
	Release(ctx context.Context, userID int64)
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu      sync.Mutex
	pending map[int64]struct{}
}

// NewMemoryGuard creates a process-local Guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{pending: make(map[int64]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, userID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.pending[userID]; busy {
		return false, nil
	}
	g.pending[userID] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, userID)
}

// Pending returns the number of users currently holding a slot.
func (g *MemoryGuard) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
