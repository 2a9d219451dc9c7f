package events

import (
	"context"
	"fmt"
	"sync"
)

// Handler consumes one event.
type Handler[T any] func(ctx context.Context, event T)

// Bus fans events of type T out to subscribers. The zero value is ready to
// use.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn Handler[T]
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is idempotent.
func (b *Bus[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			next := make([]subscription[T], 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			b.subs = append(next, b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers event to every subscriber registered at call time and
// returns one error per handler that panicked.
func (b *Bus[T]) Publish(ctx context.Context, event T) []error {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := call(ctx, s.fn, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func call[T any](ctx context.Context, fn Handler[T], event T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("events: handler panicked: %v", r)
		}
	}()
	fn(ctx, event)
	return nil
}
