package events

import (
	"sync"
)

// CallbackEvent calls listener functions synchronously from Notify.
// Callbacks run outside the internal lock so they may Listen or unregister.
type CallbackEvent[T any] struct {
	mu        sync.RWMutex
	listeners map[uint64]func(T)
	nextID    uint64
	replay    replay[T]
}

// NewCallbackEvent creates a CallbackEvent. With sendLastEventOnListen set, a
// new listener is called with the latest value if one was notified.
func NewCallbackEvent[T any](sendLastEventOnListen bool) *CallbackEvent[T] {
	return &CallbackEvent[T]{
		listeners: make(map[uint64]func(T)),
		replay:    replay[T]{enabled: sendLastEventOnListen},
	}
}

// Listen registers callback and returns a function that removes it again
func (e *CallbackEvent[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("callback cannot be nil")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = callback
	e.mu.Unlock()

	if last, ok := e.replay.load(); ok {
		callback(last)
	}

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Notify calls every registered callback with value, in no particular order
func (e *CallbackEvent[T]) Notify(value T) {
	e.replay.store(value)

	e.mu.RLock()
	targets := make([]func(T), 0, len(e.listeners))
	for _, cb := range e.listeners {
		targets = append(targets, cb)
	}
	e.mu.RUnlock()

	for _, cb := range targets {
		cb(value)
	}
}

// Latest returns the last notified value when replay is enabled
func (e *CallbackEvent[T]) Latest() (T, bool) {
	return e.replay.load()
}

// ListenerCount returns the number of registered callbacks
func (e *CallbackEvent[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
