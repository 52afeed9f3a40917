package repo

import "sync"

// KeyLock serializes work per key. Entries are reference counted and dropped
// when the last holder releases, so the map does not grow with key churn.
type KeyLock[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyLockEntry
}

type keyLockEntry struct {
	sync.Mutex
	refs int
}

func (k *KeyLock[K]) Lock(key K) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[K]*keyLockEntry)
	}
	e := k.locks[key]
	if e == nil {
		e = &keyLockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.Lock()
}

func (k *KeyLock[K]) Unlock(key K) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e := k.locks[key]
	e.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len reports the number of keys currently tracked.
func (k *KeyLock[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
