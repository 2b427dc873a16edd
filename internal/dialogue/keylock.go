package dialogue

import "sync"

// keyLock hands out one mutex per user. Entries are dropped once no goroutine
// holds or waits on them, so the map only grows with concurrent users.
type keyLock struct {
	mu    sync.Mutex
	locks map[int64]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[int64]*keyLockEntry)}
}

// lock blocks until key is free and returns the matching unlock.
func (k *keyLock) lock(key int64) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyLockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
