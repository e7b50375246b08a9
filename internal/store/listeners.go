// Package store holds the client-side auth and cart state. Each store owns
// its state; readers get value snapshots and may subscribe to changes.
package store

import (
	"sync"
)

// listeners is a registry of change callbacks. Callbacks run on the
// goroutine that changed the state, outside the state lock. A callback must
// not change the store that notifies it.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)

	// publishing orders state writes and their delivery.
	publishing sync.Mutex
}

func (l *listeners[T]) add(fn func(T)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// publish runs write, which changes the state and returns the snapshot to
// deliver, then delivers that snapshot. Publishes do not interleave, so
// subscribers receive states in the order they were written and the last
// one received is the current state.
func (l *listeners[T]) publish(write func() T) {
	l.publishing.Lock()
	defer l.publishing.Unlock()
	l.notify(write())
}

func (l *listeners[T]) notify(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
