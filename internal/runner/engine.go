package runner

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/tempo"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// beatSchedule is one armed beat process. epoch and segmentID are captured
// when it is armed so a tick from an outdated schedule can be recognised.
type beatSchedule struct {
	ticker    Ticker
	epoch     uint64
	segmentID uuid.UUID
	spm       int
	pattern   tempo.Pattern
	count     int
}

// engine is the runner state machine. It is not safe for concurrent use:
// Runner calls it from a single goroutine only.
type engine struct {
	clock           Clock
	haptics         Haptics
	logger          *log.Logger
	preCountdownSec int

	status    Status
	source    Source
	timeline  []workout.TimelineItem
	totalSec  int
	elapsed   int
	index     int
	countdown int
	endSignal bool
	startedAt time.Time

	tick      Ticker
	beat      *beatSchedule
	beatEpoch uint64

	onBeat  func(Beat)
	summary *Summary // set by end, taken by the caller
}

func newEngine(clock Clock, haptics Haptics, logger *log.Logger, preCountdownSec int) *engine {
	return &engine{
		clock:           clock,
		haptics:         haptics,
		logger:          logger,
		preCountdownSec: max(0, preCountdownSec),
		status:          StatusIdle,
	}
}

func (e *engine) tickC() <-chan time.Time {
	if e.tick == nil {
		return nil
	}
	return e.tick.C()
}

func (e *engine) beatC() <-chan time.Time {
	if e.beat == nil {
		return nil
	}
	return e.beat.ticker.C()
}

func (e *engine) current() *workout.TimelineItem {
	if e.status == StatusIdle || e.index >= len(e.timeline) {
		return nil
	}
	return &e.timeline[e.index]
}

func (e *engine) snapshot() State {
	s := State{
		Status:       e.status,
		Source:       e.source,
		Timeline:     e.timeline,
		TotalSec:     e.totalSec,
		ElapsedSec:   e.elapsed,
		CurrentIndex: e.index,
		IsRunning:    e.status == StatusRunning,
		CountdownSec: e.countdown,
		EndSignal:    e.endSignal,
		StartedAt:    e.startedAt,
	}
	if cur := e.current(); cur != nil {
		item := *cur
		s.Current = &item
		s.CurrentSPM = computedTempo(item, e.elapsed)
	}
	return s
}

func (e *engine) start(items []workout.TimelineItem, source Source) {
	if len(items) == 0 {
		return
	}
	e.stopTimers()

	e.timeline = items
	e.source = source
	e.totalSec = items[len(items)-1].EndSec
	e.elapsed = 0
	e.index = 0
	e.endSignal = false
	e.summary = nil
	e.status = StatusRunning
	e.startedAt = e.clock.Now()
	e.countdown = e.preCountdownSec

	e.logger.Printf("Runner: Starting %q (%d segments, %ds)", source.Name, len(items), e.totalSec)
	e.armTick()
	if e.countdown > 0 {
		e.haptics.Warning()
		return
	}
	e.haptics.BlockChange()
	e.scheduleBeats()
}

func (e *engine) pause() {
	if e.status != StatusRunning {
		return
	}
	e.stopTimers()
	e.status = StatusPaused
	e.logger.Printf("Runner: Paused at %ds", e.elapsed)
}

func (e *engine) resume() {
	if e.status != StatusPaused || len(e.timeline) == 0 {
		return
	}
	e.status = StatusRunning
	e.armTick()
	e.scheduleBeats()
	e.logger.Printf("Runner: Resumed at %ds", e.elapsed)
}

func (e *engine) end(completed bool) {
	if e.status == StatusIdle || e.status == StatusEnded {
		return
	}
	e.stopTimers()
	e.status = StatusEnded
	e.endSignal = true
	e.countdown = 0
	e.summary = e.buildSummary(completed)
	e.logger.Printf("Runner: Ended at %ds of %ds (completed=%v)", e.elapsed, e.totalSec, completed)
}

func (e *engine) skip() {
	if e.status != StatusRunning && e.status != StatusPaused {
		return
	}
	e.countdown = 0
	if e.index+1 >= len(e.timeline) {
		e.end(false)
		return
	}
	e.index++
	e.logger.Printf("Runner: Skipped to segment %d", e.index)
	e.haptics.BlockChange()
	e.scheduleBeats()
}

func (e *engine) seek(deltaSec int) {
	if e.status != StatusRunning && e.status != StatusPaused {
		return
	}
	e.countdown = 0
	e.elapsed = min(e.totalSec, max(0, e.elapsed+deltaSec))
	e.advanceToElapsed()
	e.scheduleBeats()
}

// onTick handles one elapsed-time tick
func (e *engine) onTick() {
	if e.status != StatusRunning {
		return
	}
	if e.countdown > 0 {
		e.countdown--
		if e.countdown > 0 {
			e.haptics.Warning()
			return
		}
		e.haptics.BlockChange()
		e.scheduleBeats()
		return
	}
	e.elapsed++
	e.advanceOnBoundary()
}

// onBeatTick handles one beat tick of the armed schedule
func (e *engine) onBeatTick() {
	b := e.beat
	if b == nil || b.epoch != e.beatEpoch || e.status != StatusRunning {
		return
	}
	cur := e.current()
	if cur == nil || cur.ID != b.segmentID {
		e.scheduleBeats()
		return
	}
	b.count++
	if b.pattern.Fires(b.count) {
		e.haptics.Tap()
		if e.onBeat != nil {
			e.onBeat(Beat{SPM: b.spm, Count: b.count})
		}
	}
}

func (e *engine) advanceOnBoundary() {
	cur := e.current()
	if cur == nil || e.elapsed < cur.EndSec {
		return
	}
	if e.index+1 < len(e.timeline) {
		e.index++
		e.haptics.BlockChange()
		e.scheduleBeats()
		return
	}
	e.end(true)
}

// advanceToElapsed selects the last segment starting at or before elapsed
func (e *engine) advanceToElapsed() {
	if len(e.timeline) == 0 {
		return
	}
	for i := len(e.timeline) - 1; i >= 0; i-- {
		if e.timeline[i].StartSec <= e.elapsed {
			e.index = i
			e.haptics.BlockChange()
			return
		}
	}
	e.index = 0
}

// scheduleBeats cancels the armed beat process and arms a new one for the
// current segment at its cadence right now
func (e *engine) scheduleBeats() {
	e.stopBeat()
	e.beatEpoch++
	if e.status != StatusRunning || e.countdown > 0 {
		return
	}
	cur := e.current()
	if cur == nil {
		return
	}
	spm := computedTempo(*cur, e.elapsed)
	if spm <= 0 {
		return
	}
	e.beat = &beatSchedule{
		ticker:    e.clock.NewTicker(tempo.BeatInterval(spm)),
		epoch:     e.beatEpoch,
		segmentID: cur.ID,
		spm:       spm,
		pattern:   tempo.PatternFor(spm),
	}
}

func (e *engine) armTick() {
	if e.tick != nil {
		e.tick.Stop()
	}
	e.tick = e.clock.NewTicker(time.Second)
}

func (e *engine) stopBeat() {
	if e.beat != nil {
		e.beat.ticker.Stop()
		e.beat = nil
	}
}

func (e *engine) stopTimers() {
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
	e.stopBeat()
}

// takeSummary returns the summary of a just-ended session once
func (e *engine) takeSummary() *Summary {
	s := e.summary
	e.summary = nil
	return s
}

func (e *engine) buildSummary(completed bool) *Summary {
	segments := make([]workout.BlockLog, 0, e.index+1)
	for i := 0; i <= e.index && i < len(e.timeline); i++ {
		item := e.timeline[i]
		spent := min(e.elapsed, item.EndSec) - item.StartSec
		if spent <= 0 && i != e.index {
			continue
		}
		segments = append(segments, workout.BlockLog{
			ID:          uuid.New(),
			Type:        item.Type,
			Target:      item.Tempo,
			DurationSec: max(0, spent),
		})
	}
	return &Summary{
		Source:     e.source,
		StartedAt:  e.startedAt,
		EndedAt:    e.clock.Now(),
		TotalSec:   e.totalSec,
		ElapsedSec: e.elapsed,
		Completed:  completed,
		Segments:   segments,
	}
}
