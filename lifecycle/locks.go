package lifecycle

import "sync"

// Locks hands out one lock per session, so Managers built for concurrent requests on the
// same session never interleave their writes. The zero value is ready to use.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// For returns the lock of session key. Entries are dropped once no Manager holds or waits
// on them.
func (l *Locks) For(key string) sync.Locker {
	return &keyLock{locks: l, key: key}
}

// Len returns the number of sessions with a held or awaited lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}

func (l *Locks) acquire(key string) *sessionLock {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sessionLock)
	}
	sl, ok := l.locks[key]
	if !ok {
		sl = &sessionLock{}
		l.locks[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()

	return sl
}

func (l *Locks) release(key string, sl *sessionLock) {
	sl.mu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, key)
	}
}

type keyLock struct {
	locks *Locks
	key   string
	held  *sessionLock
}

func (k *keyLock) Lock() {
	k.held = k.locks.acquire(k.key)
}

func (k *keyLock) Unlock() {
	sl := k.held
	k.held = nil
	k.locks.release(k.key, sl)
}
