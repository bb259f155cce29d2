package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/tempo"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// Status is the runner lifecycle state
type Status int

const (
	StatusIdle    Status = iota // No timeline loaded
	StatusRunning               // Counting down, beats active
	StatusPaused                // Position kept, timers stopped
	StatusEnded                 // Terminal until the next start
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusPaused:
		return "Paused"
	case StatusEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Haptics receives the runner's feedback signals. Implementations must not
// block and swallow their own failures.
type Haptics interface {
	Tap()
	Success()
	Warning()
	BlockChange()
}

// Source identifies what a session was started from
type Source struct {
	ProgramID *uuid.UUID
	Name      string
	Quick     bool
}

// State is an immutable snapshot published after every transition
type State struct {
	Status       Status
	Source       Source
	Timeline     []workout.TimelineItem // shared, never modified
	TotalSec     int
	ElapsedSec   int
	CurrentIndex int
	Current      *workout.TimelineItem
	IsRunning    bool
	CountdownSec int
	CurrentSPM   int
	EndSignal    bool
	StartedAt    time.Time
}

// Next returns the segment after the current one, or nil
func (s State) Next() *workout.TimelineItem {
	if s.Current == nil || s.CurrentIndex+1 >= len(s.Timeline) {
		return nil
	}
	next := s.Timeline[s.CurrentIndex+1]
	return &next
}

// SegmentRemainingSec is the time left in the current segment
func (s State) SegmentRemainingSec() int {
	if s.Current == nil {
		return 0
	}
	return max(0, s.Current.EndSec-s.ElapsedSec)
}

// RemainingSec is the time left in the whole session
func (s State) RemainingSec() int {
	return max(0, s.TotalSec-s.ElapsedSec)
}

// Progress is the elapsed fraction of the session in [0,1]
func (s State) Progress() float64 {
	if s.TotalSec <= 0 {
		return 0
	}
	return min(1, float64(s.ElapsedSec)/float64(s.TotalSec))
}

// Beat is published whenever a beat tick produces a tap
type Beat struct {
	SPM   int
	Count int
}

// Summary is published once when a session ends
type Summary struct {
	Source     Source
	StartedAt  time.Time
	EndedAt    time.Time
	TotalSec   int
	ElapsedSec int
	Completed  bool
	Segments   []workout.BlockLog
}

// computedTempo is the instantaneous cadence for item at the given elapsed
// second. Ramps interpolate over the segment, everything else uses its target.
func computedTempo(item workout.TimelineItem, elapsedSec int) int {
	if !item.HasRamp() {
		return tempo.Effective(item.Tempo)
	}
	span := max(1, item.EndSec-item.StartSec)
	pos := min(span, max(0, elapsedSec-item.StartSec))
	return tempo.RampValue(*item.RampStart, *item.RampEnd, float64(pos)/float64(span))
}
