package safego

import (
	"log"
	"runtime/debug"
)

// Go runs fn on a new goroutine. A panic is written to logger with its stack
// before being re-raised, since the terminal UI hides anything printed to
// stderr.
func Go(logger *log.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
