package service

import "sync"

// ownerLocks hands out one mutex per owner and forgets it once nobody holds or
// waits for it.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// Lock blocks until the owner's mutex is held and returns its release function.
func (l *ownerLocks) Lock(owner string) func() {
	l.mu.Lock()
	lock, ok := l.locks[owner]
	if !ok {
		lock = &ownerLock{}
		l.locks[owner] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, owner)
		}
		l.mu.Unlock()
	}
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
