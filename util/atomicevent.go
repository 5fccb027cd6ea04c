package util

import (
	"sync"
)

// AtomicEvent holds a single, latest event and provides non-blocking
// updates. Only the most recent event is retained.
type AtomicEvent[T any] struct {
	mu     sync.Mutex
	value  T
	notify chan struct{} // capacity 1; a pending token means "new value"
}

// NewAtomicEvent creates a new AtomicEvent instance.
func NewAtomicEvent[T any]() *AtomicEvent[T] {
	return &AtomicEvent[T]{
		notify: make(chan struct{}, 1),
	}
}

// Send updates with the latest event. It is non-blocking.
func (ae *AtomicEvent[T]) Send(event T) {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	ae.value = event
	select {
	case ae.notify <- struct{}{}:
	default:
		// A notification is already pending.
	}
}

// Channel returns the notification channel for use in select statements.
func (ae *AtomicEvent[T]) Channel() <-chan struct{} {
	return ae.notify
}

// Value returns the current latest event.
func (ae *AtomicEvent[T]) Value() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.value
}

// AtomicMapEvent keeps the latest event per key with a single shared
// notification, so a consumer can coalesce updates from many producers.
type AtomicMapEvent[K comparable, T any] struct {
	mu     sync.Mutex
	value  map[K]T
	notify chan struct{}
}

// NewAtomicMapEvent creates a new AtomicMapEvent instance.
func NewAtomicMapEvent[K comparable, T any]() *AtomicMapEvent[K, T] {
	return &AtomicMapEvent[K, T]{
		notify: make(chan struct{}, 1),
		value:  make(map[K]T),
	}
}

// Send updates the latest event for the given key. It is non-blocking.
func (ae *AtomicMapEvent[K, T]) Send(key K, event T) {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	ae.value[key] = event
	select {
	case ae.notify <- struct{}{}:
	default:
	}
}

// Channel returns the notification channel for use in select statements.
func (ae *AtomicMapEvent[K, T]) Channel() <-chan struct{} {
	return ae.notify
}

// Value returns a copy of the current per-key events.
func (ae *AtomicMapEvent[K, T]) Value() map[K]T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	ret := make(map[K]T, len(ae.value))
	for key, value := range ae.value {
		ret[key] = value
	}
	return ret
}
