package runlock

import "sync"

// RunLock is the process-wide gate ensuring at most one chain executes at a
// time, whichever path it arrives on. Construct exactly once and share the
// handle between the manual and scheduled paths; never recreate per call.
type RunLock struct {
	run sync.Mutex

	mu     sync.Mutex
	holder string
}

func New() *RunLock {
	return &RunLock{}
}

// Holder reports the run context currently holding the lock, if any. It is
// diagnostic only: the answer can be stale by the time the caller acts on it.
func (l *RunLock) Holder() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder, l.holder != ""
}

// Acquire blocks until the lock is free. Callers that arrive while a chain
// is executing are queued, not rejected.
func (l *RunLock) Acquire(holder string) {
	l.run.Lock()
	l.mu.Lock()
	l.holder = holder
	l.mu.Unlock()
}

// Release must run on every exit path of a run, including panics.
func (l *RunLock) Release() {
	l.mu.Lock()
	l.holder = ""
	l.mu.Unlock()
	l.run.Unlock()
}
