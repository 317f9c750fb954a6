package session

import (
	"context"
	"sync"
)

// keyedLocks hands out one exclusive lock per key. Entries are dropped once
// nobody holds or waits for them, so the map only grows with contention.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry is one key's lock. refs counts holders plus waiters.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the lock for key is free or ctx is done.
//
// Returns a release function that is safe to call more than once, or
// ctx.Err() if the wait was cancelled.
func (k *keyedLocks) acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.drop(key, e)
		})
	}, nil
}

// drop releases one reference and forgets the entry when it was the last.
func (k *keyedLocks) drop(key string, e *lockEntry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// held returns the number of keys with a holder or waiter.
func (k *keyedLocks) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
