// Package bus is a small typed in-process publish/subscribe channel.
package bus

import (
	"slices"
	"sync"
)

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Bus delivers each published value to every registered subscriber, in
// registration order, on the publisher's goroutine.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber[T]
}

// New returns an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns a func that removes it. The returned
// func is safe to call more than once.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscriber[T]) bool { return s.id == id })
	}
}

// Publish delivers v to a snapshot of the current subscribers. Subscribers may
// unsubscribe from inside their callback.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the current subscriber count.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
