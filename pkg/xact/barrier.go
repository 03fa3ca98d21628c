package xact

import "sync"

// Barrier is the process-wide reader/writer-fair lock guarding the
// window between "first COMMIT sent" and "last COMMIT response
// received" (§4.3, §5). A commit window is a *shared* acquisition —
// many sessions can be mid-commit at once — while an external
// snapshot/checkpoint facility takes the *exclusive* side and must
// never interleave with an open commit window. sync.RWMutex already
// gives the required property that a pending exclusive acquisition
// blocks new shared ones rather than being starved by a steady stream
// of commits, so Barrier is a thin, named wrapper rather than a
// reimplementation.
type Barrier struct {
	mu sync.RWMutex
}

// SharedLock opens a commit window.
func (b *Barrier) SharedLock() { b.mu.RLock() }

// SharedUnlock closes a commit window.
func (b *Barrier) SharedUnlock() { b.mu.RUnlock() }

// ExclusiveLock is taken by an external snapshot/checkpoint facility;
// it blocks until every open commit window has closed and holds off
// new ones until released.
func (b *Barrier) ExclusiveLock() { b.mu.Lock() }

// ExclusiveUnlock releases the exclusive barrier.
func (b *Barrier) ExclusiveUnlock() { b.mu.Unlock() }
