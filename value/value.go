// Package value provides typed, observable values owned by blocks.
//
// A Value holds a single quantity and a list of observers. Set replaces the
// quantity and synchronously notifies every observer on the calling goroutine.
// Values follow a single-owner convention: one goroutine writes, any number
// read. Observers are notified from a snapshot of the observer list, so an
// observer added while a notification is in flight is first called on the
// next Set.
package value

import (
	"fmt"
	"sync"
)

// Observable is anything observers can subscribe to.
type Observable interface {
	Name() string
	AddObserver(o Observer)
	RemoveObserver(o Observer)
}

// Observer is notified after an Observable changes.
type Observer interface {
	ValueChanged(source Observable)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(source Observable)

// ValueChanged calls f(source).
func (f ObserverFunc) ValueChanged(source Observable) { f(source) }

// Value is an observable quantity of type T.
type Value[T any] struct {
	name string

	Subject

	mu sync.RWMutex
	v  T
}

// New creates a named value holding initial.
func New[T any](name string, initial T) *Value[T] {
	return &Value[T]{name: name, v: initial}
}

// Name returns the value's name.
func (v *Value[T]) Name() string { return v.name }

// Get returns the current quantity.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set replaces the quantity and notifies observers.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.v = x
	v.mu.Unlock()
	v.Notify()
}

// Update applies fn to the current quantity under the write lock, then notifies.
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	v.v = fn(v.v)
	v.mu.Unlock()
	v.Notify()
}

// Notify invokes every observer with v as the source.
func (v *Value[T]) Notify() {
	v.NotifyFrom(v)
}

// String implements fmt.Stringer.
func (v *Value[T]) String() string {
	return fmt.Sprintf("%s=%v", v.name, v.Get())
}
