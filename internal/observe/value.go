// Package observe provides a most-recent-wins snapshot cell. Each
// external signal (presence, calendar, devices, auth state) publishes
// into one cell; readers always see the latest complete snapshot and
// never a partial one.
package observe

import "sync"

// Value holds the latest snapshot of type T.
type Value[T any] struct {
	mu       sync.RWMutex
	val      T
	set      bool
	onChange []func(T)
}

// NewValue creates an empty cell.
func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

// Load returns the current snapshot and whether one has been stored.
func (v *Value[T]) Load() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val, v.set
}

// Store replaces the snapshot wholesale and notifies subscribers.
// Notification runs on the caller's goroutine after the lock is
// released, so handlers may Load without deadlocking.
func (v *Value[T]) Store(val T) {
	v.mu.Lock()
	v.val = val
	v.set = true
	handlers := v.onChange
	v.mu.Unlock()

	for _, h := range handlers {
		h(val)
	}
}

// Subscribe registers a handler invoked on every Store.
func (v *Value[T]) Subscribe(h func(T)) {
	v.mu.Lock()
	v.onChange = append(v.onChange, h)
	v.mu.Unlock()
}

// Clear empties the cell without notifying subscribers.
func (v *Value[T]) Clear() {
	v.mu.Lock()
	var zero T
	v.val = zero
	v.set = false
	v.mu.Unlock()
}
