package runner

import (
	"errors"
	"log"
	"sync"

	"github.com/lowaak/cadence-timer/internal/events"
	"github.com/lowaak/cadence-timer/internal/safego"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// ErrEmptyTimeline is returned when a start request has nothing to run.
// The runner is left untouched.
var ErrEmptyTimeline = errors.New("timeline is empty")

// runnerCommand represents commands sent to the runner goroutine
type runnerCommand int

const (
	cmdStart runnerCommand = iota
	cmdPause
	cmdResume
	cmdEnd
	cmdSkip
	cmdSeek
	cmdSnapshot
	cmdPreCountdown
)

type request struct {
	cmd    runnerCommand
	items  []workout.TimelineItem
	source Source
	delta  int
	reply  chan State
}

// Options tune a Runner. The zero value uses the system clock and no
// pre-countdown.
type Options struct {
	Clock           Clock
	PreCountdownSec int
}

// Runner drives a compiled timeline in real time. A single goroutine owns
// all session state; the elapsed tick, the beat tick and every public call
// are serialised through it. Public methods return once the transition is
// complete and report the resulting state.
type Runner struct {
	logger *log.Logger
	engine *engine

	stateEvent *events.ChannelEvent[State]
	endEvent   *events.ChannelEvent[Summary]
	beatEvent  *events.ChannelEvent[Beat]

	cmdChan      chan request
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewRunner creates a Runner and starts its goroutine
func NewRunner(haptics Haptics, logger *log.Logger, opts Options) *Runner {
	if haptics == nil {
		panic("Runner: haptics cannot be nil")
	}
	if logger == nil {
		panic("Runner: logger cannot be nil")
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}

	r := &Runner{
		logger:     logger,
		engine:     newEngine(clock, haptics, logger, opts.PreCountdownSec),
		stateEvent: events.NewChannelEvent[State](true),
		endEvent:   events.NewChannelEvent[Summary](false),
		beatEvent:  events.NewChannelEvent[Beat](false),
		cmdChan:    make(chan request),
		doneChan:   make(chan struct{}),
	}
	r.engine.onBeat = r.beatEvent.Notify
	r.stateEvent.Notify(r.engine.snapshot())

	r.wg.Add(1)
	safego.Go(logger, "runner", r.run)

	return r
}

// StartBlocks compiles blocks and starts them. A compile failure or an empty
// timeline is returned and leaves the runner as it was.
func (r *Runner) StartBlocks(blocks []workout.Block, source Source) error {
	items, err := workout.Compile(blocks)
	if err != nil {
		r.logger.Printf("Runner: Not starting %q: %v", source.Name, err)
		return err
	}
	return r.StartTimeline(items, source)
}

// StartTimeline starts a precompiled timeline from the beginning
func (r *Runner) StartTimeline(items []workout.TimelineItem, source Source) error {
	if len(items) == 0 {
		r.logger.Printf("Runner: Not starting %q: empty timeline", source.Name)
		return ErrEmptyTimeline
	}
	r.send(request{cmd: cmdStart, items: items, source: source})
	return nil
}

// Pause stops both periodic processes and keeps the position
func (r *Runner) Pause() State {
	return r.send(request{cmd: cmdPause})
}

// Resume continues a paused session from its current position
func (r *Runner) Resume() State {
	return r.send(request{cmd: cmdResume})
}

// TogglePause pauses a running session or resumes a paused one
func (r *Runner) TogglePause() State {
	if r.State().Status == StatusPaused {
		return r.Resume()
	}
	return r.Pause()
}

// End stops the session and raises the end signal
func (r *Runner) End() State {
	return r.send(request{cmd: cmdEnd})
}

// Skip moves to the next segment, ending the session after the last one
func (r *Runner) Skip() State {
	return r.send(request{cmd: cmdSkip})
}

// Seek moves elapsed time by deltaSec, clamped to the session bounds
func (r *Runner) Seek(deltaSec int) State {
	return r.send(request{cmd: cmdSeek, delta: deltaSec})
}

// SetPreCountdown changes the countdown used by the next session start
func (r *Runner) SetPreCountdown(sec int) {
	r.send(request{cmd: cmdPreCountdown, delta: sec})
}

// State returns the state after every previously issued call has completed
func (r *Runner) State() State {
	return r.send(request{cmd: cmdSnapshot})
}

// ListenToState registers a channel receiving every published State.
// The latest state is delivered on registration.
func (r *Runner) ListenToState(ch chan<- State) func() {
	return r.stateEvent.Listen(ch)
}

// ListenToEnd registers a channel receiving the summary of each ended session
func (r *Runner) ListenToEnd(ch chan<- Summary) func() {
	return r.endEvent.Listen(ch)
}

// ListenToBeats registers a channel receiving each beat that produced a tap
func (r *Runner) ListenToBeats(ch chan<- Beat) func() {
	return r.beatEvent.Listen(ch)
}

// Shutdown stops the runner goroutine. Safe to call multiple times.
func (r *Runner) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.logger.Printf("Runner: Shutting down")
		close(r.doneChan)
		r.wg.Wait()
		r.logger.Printf("Runner: Shutdown complete")
	})
}

func (r *Runner) send(req request) State {
	req.reply = make(chan State, 1)
	select {
	case r.cmdChan <- req:
	case <-r.doneChan:
		return r.latest()
	}
	select {
	case s := <-req.reply:
		return s
	case <-r.doneChan:
		return r.latest()
	}
}

func (r *Runner) latest() State {
	s, _ := r.stateEvent.Latest()
	return s
}

// publish notifies the new state, then the summary if the session just ended
func (r *Runner) publish() State {
	state := r.engine.snapshot()
	r.stateEvent.Notify(state)
	if summary := r.engine.takeSummary(); summary != nil {
		r.endEvent.Notify(*summary)
	}
	return state
}

func (r *Runner) handle(req request) State {
	e := r.engine
	switch req.cmd {
	case cmdStart:
		e.start(req.items, req.source)
	case cmdPause:
		e.pause()
	case cmdResume:
		e.resume()
	case cmdEnd:
		e.end(false)
	case cmdSkip:
		e.skip()
	case cmdSeek:
		e.seek(req.delta)
	case cmdSnapshot:
		return e.snapshot()
	case cmdPreCountdown:
		e.preCountdownSec = max(0, req.delta)
		return e.snapshot()
	}
	return r.publish()
}

func (r *Runner) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.doneChan:
			r.engine.stopTimers()
			r.logger.Printf("Runner: Goroutine exiting")
			return

		case req := <-r.cmdChan:
			req.reply <- r.handle(req)

		case <-r.engine.tickC():
			r.engine.onTick()
			r.publish()

		case <-r.engine.beatC():
			// beats only change the accent counter, no state to publish
			// unless the segment moved under the schedule
			epoch := r.engine.beatEpoch
			r.engine.onBeatTick()
			if r.engine.beatEpoch != epoch {
				r.publish()
			}
		}
	}
}
