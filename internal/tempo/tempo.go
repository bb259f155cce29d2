package tempo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTarget is returned by Target.Validate
var ErrInvalidTarget = errors.New("invalid tempo target")

// Valid cadence bounds in beats (strokes/steps) per minute
const (
	MinSPM = 40
	MaxSPM = 300
)

// Thresholds at which beats start being grouped
const (
	groupBy2SPM = 170
	groupBy4SPM = 200
)

// Mode selects how a Target describes a cadence
type Mode string

const (
	ModeNone  Mode = "none"
	ModeFixed Mode = "fixed"
	ModeRange Mode = "range"
)

// Target is a cadence target. Value is only meaningful for ModeFixed,
// Min and Max only for ModeRange.
type Target struct {
	Mode  Mode `json:"mode" yaml:"mode"`
	Value *int `json:"value,omitempty" yaml:"value,omitempty"`
	Min   *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *int `json:"max,omitempty" yaml:"max,omitempty"`
}

// None returns a target without cadence
func None() Target {
	return Target{Mode: ModeNone}
}

// Fixed returns a single-value target
func Fixed(spm int) Target {
	return Target{Mode: ModeFixed, Value: &spm}
}

// Range returns a min/max target
func Range(minSPM, maxSPM int) Target {
	return Target{Mode: ModeRange, Min: &minSPM, Max: &maxSPM}
}

// Validate checks that only the fields belonging to the mode are set and that
// they lie within [MinSPM, MaxSPM]
func (t Target) Validate() error {
	switch t.Mode {
	case ModeNone, "":
		if t.Value != nil || t.Min != nil || t.Max != nil {
			return fmt.Errorf("%w: no cadence expected for mode none", ErrInvalidTarget)
		}
	case ModeFixed:
		if t.Value == nil || t.Min != nil || t.Max != nil {
			return fmt.Errorf("%w: fixed mode takes exactly one value", ErrInvalidTarget)
		}
		if !inRange(*t.Value) {
			return fmt.Errorf("%w: %d spm outside %d-%d", ErrInvalidTarget, *t.Value, MinSPM, MaxSPM)
		}
	case ModeRange:
		if t.Min == nil || t.Max == nil || t.Value != nil {
			return fmt.Errorf("%w: range mode takes min and max", ErrInvalidTarget)
		}
		if !inRange(*t.Min) || !inRange(*t.Max) {
			return fmt.Errorf("%w: %d-%d spm outside %d-%d", ErrInvalidTarget, *t.Min, *t.Max, MinSPM, MaxSPM)
		}
		if *t.Min > *t.Max {
			return fmt.Errorf("%w: min %d above max %d", ErrInvalidTarget, *t.Min, *t.Max)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidTarget, t.Mode)
	}
	return nil
}

func inRange(spm int) bool {
	return spm >= MinSPM && spm <= MaxSPM
}

// Clamp limits spm to [MinSPM, MaxSPM]
func Clamp(spm int) int {
	if spm < MinSPM {
		return MinSPM
	}
	if spm > MaxSPM {
		return MaxSPM
	}
	return spm
}

// Effective collapses a target into a single cadence. Zero means "no beat".
// Range midpoints round half away from zero.
func Effective(target Target) int {
	switch target.Mode {
	case ModeFixed:
		if target.Value == nil {
			return 0
		}
		return Clamp(*target.Value)
	case ModeRange:
		if target.Min == nil || target.Max == nil {
			return 0
		}
		sum := Clamp(*target.Min) + Clamp(*target.Max)
		if sum <= 0 {
			return 0
		}
		return int(math.Round(float64(sum) / 2))
	default:
		return 0
	}
}

// BeatInterval returns the period between beats at spm. Non-positive cadences
// map to a one second idle rate.
func BeatInterval(spm int) time.Duration {
	if spm <= 0 {
		return time.Second
	}
	return time.Duration(60.0 / float64(spm) * float64(time.Second))
}

// Pattern describes which beat ticks are accented. Every == 1 means every tick.
type Pattern struct {
	Every int
}

// Direct reports whether every tick fires
func (p Pattern) Direct() bool {
	return p.Every <= 1
}

// Fires reports whether the n-th tick (1-based) of a schedule should fire
func (p Pattern) Fires(n int) bool {
	if p.Direct() {
		return true
	}
	return n%p.Every == 0
}

// PatternFor picks the accent grouping for a cadence
func PatternFor(spm int) Pattern {
	switch {
	case spm >= groupBy4SPM:
		return Pattern{Every: 4}
	case spm >= groupBy2SPM:
		return Pattern{Every: 2}
	default:
		return Pattern{Every: 1}
	}
}

// RampValue interpolates linearly between start and end. progress is clamped
// to [0,1] first and the result is rounded then clamped to the valid range.
func RampValue(start, end int, progress float64) int {
	if math.IsNaN(progress) || progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	v := float64(start) + float64(end-start)*progress
	return Clamp(int(math.Round(v)))
}
