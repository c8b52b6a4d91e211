package cartlock

import "sync"

// Key identifies one cart: the (tableNumber, restaurantID) pair.
type Key struct {
	TableNumber  int
	RestaurantID int64
}

// Locker serializes mutations per cart key so two browser tabs mutating the
// same cart cannot lose each other's writes, and order placement holds the
// cart exclusively for its whole read-snapshot-clear sequence. Locks are
// never evicted; the key space is bounded by tables times restaurants,
// which is small for the target deployment size.
type Locker struct {
	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{
		locks: make(map[Key]*sync.Mutex),
	}
}

// Lock acquires the mutex for key and returns its unlock function.
func (l *Locker) Lock(key Key) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()

	return m.Unlock
}
