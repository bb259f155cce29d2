package events

import (
	"sync"
)

// ChannelEvent fans values out to listener channels.
// Sends never block: a listener whose buffer is full misses that value.
type ChannelEvent[T any] struct {
	mu       sync.RWMutex
	channels map[uint64]chan<- T
	nextID   uint64
	replay   replay[T]
}

// NewChannelEvent creates a ChannelEvent. With sendLastEventOnListen set, a new
// listener immediately receives the latest value if one was notified.
func NewChannelEvent[T any](sendLastEventOnListen bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{
		channels: make(map[uint64]chan<- T),
		replay:   replay[T]{enabled: sendLastEventOnListen},
	}
}

// Listen registers ch and returns a function that removes it again
func (e *ChannelEvent[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("channel cannot be nil")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.channels[id] = ch
	e.mu.Unlock()

	if last, ok := e.replay.load(); ok {
		select {
		case ch <- last:
		default:
		}
	}

	return func() {
		e.mu.Lock()
		delete(e.channels, id)
		e.mu.Unlock()
	}
}

// Notify sends value to every registered channel
func (e *ChannelEvent[T]) Notify(value T) {
	e.replay.store(value)

	e.mu.RLock()
	targets := make([]chan<- T, 0, len(e.channels))
	for _, ch := range e.channels {
		targets = append(targets, ch)
	}
	e.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- value:
		default:
		}
	}
}

// Latest returns the last notified value when replay is enabled
func (e *ChannelEvent[T]) Latest() (T, bool) {
	return e.replay.load()
}

// ListenerCount returns the number of registered channels
func (e *ChannelEvent[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.channels)
}
