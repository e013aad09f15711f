package booking

import "sync"

// itemLocks serializes work per item id. Entries are dropped once no
// goroutine holds or waits for them.
type itemLocks struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[string]*itemLock)}
}

// lock blocks until itemID is free and returns the matching unlock.
func (l *itemLocks) lock(itemID string) (unlock func()) {
	l.mu.Lock()
	il, ok := l.locks[itemID]
	if !ok {
		il = &itemLock{}
		l.locks[itemID] = il
	}
	il.refs++
	l.mu.Unlock()

	il.mu.Lock()

	return func() {
		il.mu.Unlock()

		l.mu.Lock()
		il.refs--
		if il.refs == 0 {
			delete(l.locks, itemID)
		}
		l.mu.Unlock()
	}
}
