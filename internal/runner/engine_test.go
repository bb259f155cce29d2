package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/cadence-timer/internal/tempo"
	"github.com/lowaak/cadence-timer/internal/workout"
)

func newTestEngine(preCountdown int) (*engine, *manualClock, *recordingHaptics) {
	clock := newManualClock()
	h := &recordingHaptics{}
	return newEngine(clock, h, testLogger(), preCountdown), clock, h
}

func ticks(e *engine, n int) {
	for i := 0; i < n; i++ {
		e.onTick()
	}
}

func TestEngine_StartEmptyIsNoop(t *testing.T) {
	e, clock, h := newTestEngine(0)
	e.start(nil, Source{})

	s := e.snapshot()
	requireStatus(t, StatusIdle, s)
	assert.Nil(t, s.Current)
	assert.Equal(t, 0, clock.activeCount())
	assert.Empty(t, h.signals)
}

func TestEngine_Start(t *testing.T) {
	e, clock, h := newTestEngine(0)
	items := workRecover()
	e.start(items, Source{Name: "test"})

	s := e.snapshot()
	requireStatus(t, StatusRunning, s)
	assert.True(t, s.IsRunning)
	assert.Equal(t, 15, s.TotalSec)
	assert.Equal(t, 0, s.ElapsedSec)
	assert.Equal(t, 0, s.CurrentIndex)
	require.NotNil(t, s.Current)
	assert.Equal(t, items[0].ID, s.Current.ID)
	assert.Equal(t, 150, s.CurrentSPM)
	assert.Equal(t, clock.Now(), s.StartedAt)
	assert.Equal(t, []string{"blockChange"}, h.signals)

	tick, beat := clock.active()
	require.NotNil(t, tick)
	require.NotNil(t, beat)
	assert.Equal(t, tempo.BeatInterval(150), beat.period)
}

func TestEngine_BoundaryCrossingAdvancesOnce(t *testing.T) {
	e, _, h := newTestEngine(0)
	items := workRecover()
	e.start(items, Source{})

	ticks(e, 9)
	assert.Equal(t, 0, e.snapshot().CurrentIndex)
	assert.Equal(t, 1, h.count("blockChange"))

	e.onTick()
	s := e.snapshot()
	assert.Equal(t, 10, s.ElapsedSec)
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, items[1].ID, s.Current.ID)
	assert.Equal(t, 2, h.count("blockChange"))

	ticks(e, 4)
	s = e.snapshot()
	assert.Equal(t, 14, s.ElapsedSec)
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, 2, h.count("blockChange"))
	requireStatus(t, StatusRunning, s)
}

func TestEngine_NaturalEnd(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start(workRecover(), Source{Name: "wr"})
	clock.advance(15 * time.Second)

	ticks(e, 15)
	s := e.snapshot()
	requireStatus(t, StatusEnded, s)
	assert.False(t, s.IsRunning)
	assert.True(t, s.EndSignal)
	assert.Equal(t, 15, s.ElapsedSec)
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, 0, clock.activeCount())

	summary := e.takeSummary()
	require.NotNil(t, summary)
	assert.True(t, summary.Completed)
	assert.Equal(t, "wr", summary.Source.Name)
	assert.Equal(t, 15, summary.ElapsedSec)
	assert.Equal(t, 15*time.Second, summary.EndedAt.Sub(summary.StartedAt))
	require.Len(t, summary.Segments, 2)
	assert.Equal(t, workout.BlockWork, summary.Segments[0].Type)
	assert.Equal(t, 10, summary.Segments[0].DurationSec)
	assert.Equal(t, 5, summary.Segments[1].DurationSec)
	assert.Nil(t, e.takeSummary())

	// terminal: further ticks and controls do nothing
	e.onTick()
	e.resume()
	e.skip()
	e.seek(-5)
	requireStatus(t, StatusEnded, e.snapshot())
	assert.Equal(t, 15, e.snapshot().ElapsedSec)
}

func TestEngine_Seek(t *testing.T) {
	e, _, h := newTestEngine(0)
	items := workRecover()
	e.start(items, Source{})

	e.seek(12)
	s := e.snapshot()
	assert.Equal(t, 12, s.ElapsedSec)
	assert.Equal(t, items[1].ID, s.Current.ID)

	e.seek(-50)
	s = e.snapshot()
	assert.Equal(t, 0, s.ElapsedSec)
	assert.Equal(t, items[0].ID, s.Current.ID)

	e.seek(100)
	s = e.snapshot()
	assert.Equal(t, 15, s.ElapsedSec)
	assert.Equal(t, 1, s.CurrentIndex)
	requireStatus(t, StatusRunning, s)

	// segments are closed on the left
	e.seek(-5)
	assert.Equal(t, 1, e.snapshot().CurrentIndex)
	e.seek(-1)
	assert.Equal(t, 0, e.snapshot().CurrentIndex)

	assert.Equal(t, 1+5, h.count("blockChange"))
}

func TestEngine_SeekReschedulesBeatOnly(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start(workRecover(), Source{})
	tickBefore, beatBefore := clock.active()

	e.seek(3)
	tickAfter, beatAfter := clock.active()
	assert.Same(t, tickBefore, tickAfter)
	assert.NotSame(t, beatBefore, beatAfter)
	assert.True(t, beatBefore.stopped)
}

func TestEngine_PauseResume(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start(workRecover(), Source{})
	ticks(e, 4)

	e.pause()
	s := e.snapshot()
	requireStatus(t, StatusPaused, s)
	assert.False(t, s.IsRunning)
	assert.Equal(t, 4, s.ElapsedSec)
	assert.Equal(t, 0, clock.activeCount())

	// a tick racing the pause must not count
	e.onTick()
	assert.Equal(t, 4, e.snapshot().ElapsedSec)

	// pausing twice is harmless
	e.pause()
	requireStatus(t, StatusPaused, e.snapshot())

	e.resume()
	s = e.snapshot()
	requireStatus(t, StatusRunning, s)
	assert.Equal(t, 4, s.ElapsedSec)
	tick, beat := clock.active()
	assert.NotNil(t, tick)
	assert.NotNil(t, beat)
}

func TestEngine_ResumeRequiresPausedSession(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.resume()
	requireStatus(t, StatusIdle, e.snapshot())
	assert.Equal(t, 0, clock.activeCount())
}

func TestEngine_EndManually(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start(workRecover(), Source{})
	ticks(e, 3)

	e.end(false)
	s := e.snapshot()
	requireStatus(t, StatusEnded, s)
	assert.True(t, s.EndSignal)
	assert.Equal(t, 0, clock.activeCount())

	summary := e.takeSummary()
	require.NotNil(t, summary)
	assert.False(t, summary.Completed)
	require.Len(t, summary.Segments, 1)
	assert.Equal(t, 3, summary.Segments[0].DurationSec)

	e.end(false)
	assert.Nil(t, e.takeSummary())
}

func TestEngine_EndFromPaused(t *testing.T) {
	e, _, _ := newTestEngine(0)
	e.start(workRecover(), Source{})
	e.pause()
	e.end(false)
	requireStatus(t, StatusEnded, e.snapshot())
}

func TestEngine_Skip(t *testing.T) {
	items := []workout.TimelineItem{
		item(workout.BlockWork, 0, 30, tempo.Fixed(150)),
		item(workout.BlockWork, 30, 60, tempo.Fixed(210)),
	}
	e, clock, h := newTestEngine(0)
	e.start(items, Source{})
	ticks(e, 5)

	e.skip()
	s := e.snapshot()
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, 5, s.ElapsedSec, "skip does not move elapsed time")
	assert.Equal(t, 2, h.count("blockChange"))
	_, beat := clock.active()
	require.NotNil(t, beat)
	assert.Equal(t, tempo.BeatInterval(210), beat.period)

	e.skip()
	requireStatus(t, StatusEnded, e.snapshot())
	assert.Equal(t, 2, h.count("blockChange"))
}

func TestEngine_SkipWhilePausedKeepsTimersStopped(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start(workRecover(), Source{})
	e.pause()

	e.skip()
	s := e.snapshot()
	assert.Equal(t, 1, s.CurrentIndex)
	requireStatus(t, StatusPaused, s)
	assert.Equal(t, 0, clock.activeCount())
}

func TestEngine_NoBeatWithoutCadence(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start([]workout.TimelineItem{item(workout.BlockRecover, 0, 20, tempo.None())}, Source{})

	tick, beat := clock.active()
	assert.NotNil(t, tick)
	assert.Nil(t, beat)
	assert.Nil(t, e.beatC())
	assert.Equal(t, 0, e.snapshot().CurrentSPM)
}

func TestEngine_BeatPatterns(t *testing.T) {
	cases := []struct {
		spm      int
		beats    int
		wantTaps int
	}{
		{spm: 150, beats: 6, wantTaps: 6},
		{spm: 175, beats: 6, wantTaps: 3},
		{spm: 210, beats: 8, wantTaps: 2},
	}
	for _, tc := range cases {
		e, _, h := newTestEngine(0)
		var beats []Beat
		e.onBeat = func(b Beat) { beats = append(beats, b) }
		e.start([]workout.TimelineItem{item(workout.BlockWork, 0, 60, tempo.Fixed(tc.spm))}, Source{})

		for i := 0; i < tc.beats; i++ {
			e.onBeatTick()
		}
		assert.Equal(t, tc.wantTaps, h.count("tap"), "spm %d", tc.spm)
		require.Len(t, beats, tc.wantTaps)
		assert.Equal(t, tc.spm, beats[0].SPM)
	}
}

func TestEngine_RescheduleResetsAccentCounter(t *testing.T) {
	e, _, h := newTestEngine(0)
	e.start([]workout.TimelineItem{item(workout.BlockWork, 0, 60, tempo.Fixed(210))}, Source{})

	for i := 0; i < 3; i++ {
		e.onBeatTick()
	}
	assert.Equal(t, 0, h.count("tap"))

	e.seek(1)
	for i := 0; i < 3; i++ {
		e.onBeatTick()
	}
	assert.Equal(t, 0, h.count("tap"), "counter restarts with the new schedule")
	e.onBeatTick()
	assert.Equal(t, 1, h.count("tap"))
}

func TestEngine_StaleBeatReschedulesInsteadOfFiring(t *testing.T) {
	items := []workout.TimelineItem{
		item(workout.BlockWork, 0, 10, tempo.Fixed(150)),
		item(workout.BlockWork, 10, 20, tempo.Fixed(120)),
	}
	e, clock, h := newTestEngine(0)
	e.start(items, Source{})
	old := e.beat
	require.NotNil(t, old)

	// move the pointer without rescheduling, as a racing transition would
	e.index = 1
	e.onBeatTick()

	assert.Equal(t, 0, h.count("tap"))
	require.NotNil(t, e.beat)
	assert.NotSame(t, old, e.beat)
	assert.Equal(t, items[1].ID, e.beat.segmentID)
	assert.True(t, old.ticker.(*manualTicker).stopped)
	_, beat := clock.active()
	assert.Equal(t, tempo.BeatInterval(120), beat.period)

	e.onBeatTick()
	assert.Equal(t, 1, h.count("tap"))
}

func TestEngine_OutdatedEpochIgnored(t *testing.T) {
	e, _, h := newTestEngine(0)
	e.start(workRecover(), Source{})
	e.beatEpoch++
	e.onBeatTick()
	assert.Equal(t, 0, h.count("tap"))
}

func TestEngine_RampTempo(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start([]workout.TimelineItem{rampItem(workout.BlockRampUp, 0, 40, 150, 190)}, Source{})

	_, beat := clock.active()
	assert.Equal(t, tempo.BeatInterval(150), beat.period)

	// the armed rate only changes when the beat process is rescheduled
	ticks(e, 10)
	_, beat = clock.active()
	assert.Equal(t, tempo.BeatInterval(150), beat.period)
	assert.Equal(t, 160, e.snapshot().CurrentSPM)

	e.seek(10)
	_, beat = clock.active()
	assert.Equal(t, tempo.BeatInterval(170), beat.period)
	assert.Equal(t, 170, e.beat.spm)
}

func TestComputedTempo(t *testing.T) {
	ramp := rampItem(workout.BlockRampDown, 100, 160, 200, 140)
	assert.Equal(t, 200, computedTempo(ramp, 0))
	assert.Equal(t, 200, computedTempo(ramp, 100))
	assert.Equal(t, 170, computedTempo(ramp, 130))
	assert.Equal(t, 140, computedTempo(ramp, 160))
	assert.Equal(t, 140, computedTempo(ramp, 500))

	// a zero length ramp uses a one second span
	short := rampItem(workout.BlockRampUp, 10, 10, 150, 190)
	assert.Equal(t, 150, computedTempo(short, 10))
	assert.Equal(t, 190, computedTempo(short, 11))

	// ramp types without bounds fall back to the target
	noBounds := item(workout.BlockRampUp, 0, 10, tempo.Fixed(180))
	assert.Equal(t, 180, computedTempo(noBounds, 5))
	assert.Equal(t, 175, computedTempo(item(workout.BlockWork, 0, 10, tempo.Range(170, 180)), 5))
}

func TestEngine_PreCountdown(t *testing.T) {
	e, clock, h := newTestEngine(3)
	e.start(workRecover(), Source{})

	s := e.snapshot()
	requireStatus(t, StatusRunning, s)
	assert.Equal(t, 3, s.CountdownSec)
	assert.Equal(t, []string{"warning"}, h.signals)
	tick, beat := clock.active()
	assert.NotNil(t, tick)
	assert.Nil(t, beat)

	ticks(e, 2)
	assert.Equal(t, 1, e.snapshot().CountdownSec)
	assert.Equal(t, 3, h.count("warning"))
	assert.Equal(t, 0, e.snapshot().ElapsedSec)

	e.onTick()
	s = e.snapshot()
	assert.Equal(t, 0, s.CountdownSec)
	assert.Equal(t, 0, s.ElapsedSec)
	assert.Equal(t, 1, h.count("blockChange"))
	_, beat = clock.active()
	assert.NotNil(t, beat)

	e.onTick()
	assert.Equal(t, 1, e.snapshot().ElapsedSec)
}

func TestEngine_PreCountdownSurvivesPause(t *testing.T) {
	e, clock, h := newTestEngine(3)
	e.start(workRecover(), Source{})
	e.onTick()
	e.pause()
	e.resume()

	assert.Equal(t, 2, e.snapshot().CountdownSec)
	_, beat := clock.active()
	assert.Nil(t, beat)

	h.reset()
	e.skip()
	s := e.snapshot()
	assert.Equal(t, 0, s.CountdownSec)
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, []string{"blockChange"}, h.signals)
}

func TestEngine_RestartResetsSession(t *testing.T) {
	e, clock, _ := newTestEngine(0)
	e.start(workRecover(), Source{Name: "first"})
	ticks(e, 12)
	e.end(false)
	e.takeSummary()

	items := workRecover()
	e.start(items, Source{Name: "second"})
	s := e.snapshot()
	requireStatus(t, StatusRunning, s)
	assert.Equal(t, 0, s.ElapsedSec)
	assert.False(t, s.EndSignal)
	assert.Equal(t, "second", s.Source.Name)
	assert.Equal(t, 2, clock.activeCount())
}
