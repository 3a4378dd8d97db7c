package reconciliation

import "sync"

// inflightSync tracks one running sync and the callers awaiting it
type inflightSync struct {
	done   chan struct{}
	report *Report
	err    error
}

// KeyedLock serializes syncs per key (user id). The first caller for a key
// runs fn; concurrent callers for the same key await the in-flight result
// instead of starting a duplicate sync. The lock is released unconditionally
// once the sync settles, success or failure.
type KeyedLock struct {
	mu       sync.Mutex
	inflight map[string]*inflightSync
}

// NewKeyedLock creates an empty keyed lock service
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		inflight: make(map[string]*inflightSync),
	}
}

// Do runs fn under the key's lock, or awaits and returns the in-flight
// result if a sync for the key is already running
func (l *KeyedLock) Do(key string, fn func() (*Report, error)) (*Report, error) {
	l.mu.Lock()
	if running, ok := l.inflight[key]; ok {
		l.mu.Unlock()
		<-running.done
		return running.report, running.err
	}

	current := &inflightSync{done: make(chan struct{})}
	l.inflight[key] = current
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.inflight, key)
		l.mu.Unlock()
		close(current.done)
	}()

	current.report, current.err = fn()
	return current.report, current.err
}

// Inflight returns the number of keys with a sync currently running
func (l *KeyedLock) Inflight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}
