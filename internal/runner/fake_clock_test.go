package runner

import (
	"bytes"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/cadence-timer/internal/tempo"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// manualClock hands out tickers that only fire when a test says so
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

type manualTicker struct {
	clock   *manualClock
	period  time.Duration
	ch      chan time.Time
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{clock: c, period: d, ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

// active returns the live tickers. The elapsed ticker has a one second
// period; tests avoid 60 spm so beat tickers never share it.
func (c *manualClock) active() (tick *manualTicker, beat *manualTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tickers {
		if t.stopped {
			continue
		}
		if t.period == time.Second {
			tick = t
		} else {
			beat = t
		}
	}
	return tick, beat
}

func (c *manualClock) activeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fire delivers one tick to a goroutine selecting on the ticker
func (t *manualTicker) fire(tb testing.TB) {
	tb.Helper()
	select {
	case t.ch <- time.Now():
	case <-time.After(time.Second):
		tb.Fatalf("ticker with period %v was not being read", t.period)
	}
}

// recordingHaptics records every signal in order
type recordingHaptics struct {
	mu      sync.Mutex
	signals []string
}

func (h *recordingHaptics) record(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, s)
}

func (h *recordingHaptics) Tap()         { h.record("tap") }
func (h *recordingHaptics) Success()     { h.record("success") }
func (h *recordingHaptics) Warning()     { h.record("warning") }
func (h *recordingHaptics) BlockChange() { h.record("blockChange") }

func (h *recordingHaptics) count(s string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, got := range h.signals {
		if got == s {
			n++
		}
	}
	return n
}

func (h *recordingHaptics) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = nil
}

func testLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func item(blockType workout.BlockType, start, end int, target tempo.Target) workout.TimelineItem {
	return workout.TimelineItem{
		ID:       uuid.New(),
		BlockID:  uuid.New(),
		Type:     blockType,
		StartSec: start,
		EndSec:   end,
		Tempo:    target,
	}
}

func rampItem(blockType workout.BlockType, start, end, from, to int) workout.TimelineItem {
	it := item(blockType, start, end, tempo.None())
	it.RampStart = &from
	it.RampEnd = &to
	return it
}

// workRecover is [{work,0,10},{recover,10,15}]
func workRecover() []workout.TimelineItem {
	return []workout.TimelineItem{
		item(workout.BlockWork, 0, 10, tempo.Fixed(150)),
		item(workout.BlockRecover, 10, 15, tempo.None()),
	}
}

func requireStatus(t *testing.T, want Status, s State) {
	t.Helper()
	require.Equal(t, want.String(), s.Status.String())
}
