package payment

import "sync"

// userLocks serializes subscription mutations per user. Locks are only held
// around the local read-modify-write; never across a gateway call. Entries
// are never evicted — one mutex per user who ever paid is cheap enough.
type userLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *userLocks) lock(userID uint) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
