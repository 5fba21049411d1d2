// Package binding keeps an in-memory value in sync with one key of a store.Area.
//
// A Binding reads its key once, follows the area's change feed for that key and
// writes local updates back. Local updates are adopted immediately and
// persisted asynchronously; the change feed always wins, so a binding converges
// on whatever the store holds after the last write.
package binding

import (
	"context"
	"sync"
)

// State is a value with an updater. Binding implements it against a store key
// and Local implements it in memory only.
type State[T any] interface {
	// Value returns the latest known value.
	Value() T

	// Update applies u to the latest known value, adopts the result and returns it.
	Update(u Update[T]) T

	// WaitLoaded blocks until the initial read for the current key has resolved
	// and returns its error, if any.
	WaitLoaded(ctx context.Context) error

	// Close releases resources. Pending writes are flushed first.
	Close() error
}

// Local is a State that never touches a store.
type Local[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewLocal returns a Local holding initial.
func NewLocal[T any](initial T) *Local[T] {
	return &Local[T]{value: initial}
}

// Value returns the current value.
func (l *Local[T]) Value() T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

// Update applies u and returns the new value.
func (l *Local[T]) Update(u Update[T]) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = u.Resolve(l.value)
	return l.value
}

// WaitLoaded returns immediately: a Local is always loaded.
func (l *Local[T]) WaitLoaded(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (l *Local[T]) Close() error {
	return nil
}

var _ State[int] = (*Local[int])(nil)
