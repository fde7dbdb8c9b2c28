// Package latch provides a single-assignment cell that hands a value from a
// synchronous callback to a waiting reader.
package latch

import "sync"

// Latch holds at most one value. Only the first Set is stored; later writes are
// ignored, so the value observed by any reader never changes once present.
type Latch[T any] struct {
	mu        sync.Mutex
	value     T
	set       bool
	listeners []*listener[T]
}

type listener[T any] struct {
	fn func(T)
}

// New creates an empty latch.
func New[T any]() *Latch[T] {
	return &Latch[T]{}
}

// Get returns the stored value and whether one has been set.
// A set zero value is reported as (zero, true).
func (l *Latch[T]) Get() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.set
}

// Set stores v if the latch is empty and notifies the current subscribers
// synchronously before returning. It reports whether v was stored.
func (l *Latch[T]) Set(v T) bool {
	l.mu.Lock()
	if l.set {
		l.mu.Unlock()
		return false
	}
	l.value = v
	l.set = true
	listeners := l.listeners
	l.listeners = nil
	l.mu.Unlock()

	for _, ln := range listeners {
		ln.fn(v)
	}
	return true
}

// Subscribe registers fn to be called with the value when it is set.
// Subscribers are notified at most once; subscribing to a latch that already
// holds a value does not call fn, check Get first.
// The returned function removes the subscription and is safe to call more
// than once.
func (l *Latch[T]) Subscribe(fn func(T)) func() {
	ln := &listener[T]{fn: fn}

	l.mu.Lock()
	if !l.set {
		l.listeners = append(l.listeners, ln)
	}
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, cur := range l.listeners {
			if cur == ln {
				l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
				return
			}
		}
	}
}
