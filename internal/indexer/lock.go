package indexer

import (
	"sync"
	"sync/atomic"
)

// RunLock guards a whole index run. Acquisition is non-blocking: a second
// run attempt while one is active is reported to the caller instead of
// queued, since the running pass will pick up the same files anyway.
type RunLock struct {
	held atomic.Bool
}

// TryAcquire attempts to take the lock, returning false if already held.
func (l *RunLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock.
func (l *RunLock) Release() {
	l.held.Store(false)
}

// IsHeld reports whether a run is in progress.
func (l *RunLock) IsHeld() bool {
	return l.held.Load()
}

// pathLocks hands out one mutex per file path so concurrent updates to the
// same file serialize while distinct files proceed in parallel. Locks are
// created lazily and never removed; the set of paths in a project is small
// and stable.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for a path, creating it on first use.
func (p *pathLocks) get(path string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[path] = lock
	}
	return lock
}
