package userservice

import "sync"

// userLocks hands out one mutex per username. Entries are reference counted
// and removed once nobody holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until username is free and returns the matching unlock func.
func (l *userLocks) Lock(username string) func() {
	l.mu.Lock()
	lk, ok := l.locks[username]
	if !ok {
		lk = &userLock{}
		l.locks[username] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.Lock()
	return func() {
		lk.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, username)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
