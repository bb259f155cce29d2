package haptics

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/safego"
)

// Signal is one kind of feedback pulse
type Signal int

const (
	SignalTap Signal = iota
	SignalSuccess
	SignalWarning
	SignalBlockChange
)

func (s Signal) String() string {
	switch s {
	case SignalTap:
		return "tap"
	case SignalSuccess:
		return "success"
	case SignalWarning:
		return "warning"
	case SignalBlockChange:
		return "blockChange"
	default:
		return "unknown"
	}
}

// Intensity is the user selected pulse strength
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

func ParseIntensity(s string) (Intensity, error) {
	switch i := Intensity(s); i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return i, nil
	default:
		return "", fmt.Errorf("unknown haptic intensity %q", s)
	}
}

// Driver renders a pulse on some output
type Driver interface {
	Pulse(sig Signal, intensity Intensity) error
}

// queueSize bounds the pulses waiting for slow drivers; further pulses are
// dropped
const queueSize = 16

// Engine fans runner signals out to drivers on its own goroutine. Calls
// never block and driver errors are only logged.
type Engine struct {
	logger  *log.Logger
	drivers []Driver

	enabled   atomic.Bool
	intensity atomic.Value // Intensity

	queue        chan Signal
	dropped      atomic.Uint64
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

var _ runner.Haptics = (*Engine)(nil)

func NewEngine(logger *log.Logger, drivers ...Driver) *Engine {
	if logger == nil {
		panic("Haptics: logger cannot be nil")
	}
	e := &Engine{
		logger:   logger,
		drivers:  drivers,
		queue:    make(chan Signal, queueSize),
		doneChan: make(chan struct{}),
	}
	e.enabled.Store(true)
	e.intensity.Store(IntensityMedium)

	e.wg.Add(1)
	safego.Go(logger, "haptics", e.run)
	return e
}

// Configure applies the user's haptic settings to subsequent pulses
func (e *Engine) Configure(enabled bool, intensity Intensity) {
	e.enabled.Store(enabled)
	e.intensity.Store(intensity)
}

func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

func (e *Engine) Intensity() Intensity {
	return e.intensity.Load().(Intensity)
}

// Dropped reports how many pulses were discarded because the queue was full
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

func (e *Engine) Tap()         { e.emit(SignalTap) }
func (e *Engine) Success()     { e.emit(SignalSuccess) }
func (e *Engine) Warning()     { e.emit(SignalWarning) }
func (e *Engine) BlockChange() { e.emit(SignalBlockChange) }

func (e *Engine) emit(sig Signal) {
	if !e.enabled.Load() {
		return
	}
	select {
	case <-e.doneChan:
		return
	default:
	}
	select {
	case e.queue <- sig:
	default:
		e.dropped.Add(1)
	}
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.doneChan:
			return
		case sig := <-e.queue:
			intensity := e.Intensity()
			for _, d := range e.drivers {
				if err := d.Pulse(sig, intensity); err != nil {
					e.logger.Printf("Haptics: %T failed on %s: %v", d, sig, err)
				}
			}
		}
	}
}

// Shutdown stops the worker. Pulses still queued are discarded.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		close(e.doneChan)
		e.wg.Wait()
	})
}
