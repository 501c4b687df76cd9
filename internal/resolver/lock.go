package resolver

import "sync/atomic"

// reloadLock is a non-blocking lock that keeps alias reloads from overlapping.
// Resolve never takes it; readers see either the old or the new table.
type reloadLock struct {
	state atomic.Int32 // 0 = idle, 1 = reloading
}

// TryAcquire attempts to start a reload without blocking
func (l *reloadLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release ends the reload.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *reloadLock) Release() {
	l.state.Store(0)
}
