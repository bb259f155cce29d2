package events

import "sync"

// replay remembers the most recent notified value for late listeners
type replay[T any] struct {
	mu      sync.RWMutex
	enabled bool
	last    T
	has     bool
}

func (r *replay[T]) store(value T) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	r.last = value
	r.has = true
	r.mu.Unlock()
}

// load returns the last value, or false when replay is disabled or nothing
// has been notified yet
func (r *replay[T]) load() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.enabled && r.has
}
