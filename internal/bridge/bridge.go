// Package bridge decouples the tutor core from its presentation surfaces.
//
// A [Bridge] holds at most one handler. The tutor publishes through it
// without knowing whether a UI is attached; publishing with no handler
// registered is a logged no-op, never a panic and never a queue.
package bridge

import (
	"log/slog"
	"sync"
)

// Bridge is a single-slot publish point for values of type T.
// The zero value is ready to use.
type Bridge[T any] struct {
	name string

	mu      sync.RWMutex
	handler func(T)
}

// New creates a named [Bridge]. The name only appears in log messages.
func New[T any](name string) *Bridge[T] {
	return &Bridge[T]{name: name}
}

// Register installs the handler, replacing any previous one. A nil handler
// is equivalent to [Bridge.Unregister].
func (b *Bridge[T]) Register(fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = fn
}

// Unregister clears the handler. Subsequent sends are dropped.
func (b *Bridge[T]) Unregister() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = nil
}

// Registered reports whether a handler is currently installed.
func (b *Bridge[T]) Registered() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler != nil
}

// Send delivers v to the registered handler, if any. The handler runs
// synchronously on the caller's goroutine and outside the bridge lock, so
// it may call back into Register or Unregister.
func (b *Bridge[T]) Send(v T) {
	b.mu.RLock()
	fn := b.handler
	b.mu.RUnlock()

	if fn == nil {
		slog.Warn("bridge send dropped, no handler registered", "bridge", b.name)
		return
	}
	fn(v)
}
