package workout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lowaak/cadence-timer/internal/tempo"
)

// DefaultQuickDurationSec is the quick start length when none is given
const DefaultQuickDurationSec = 600

// QuickName labels sessions started from a QuickStart
const QuickName = "Quick Start"

// DefaultPrograms is the library seeded when nothing has been saved yet
func DefaultPrograms(now time.Time) []Program {
	tabata := NewProgram(
		"Tabata 8x20/10",
		[]string{"hiit"},
		[]Block{
			NewRepeat(8,
				NewBlock(BlockWork, 20, tempo.Fixed(170)),
				NewBlock(BlockRecover, 10, tempo.None()),
			),
		},
		now,
	)
	return []Program{tabata}
}

// QuickStart describes a single work interval started without a program
type QuickStart struct {
	DurationSec int
	Mode        tempo.Mode
	Fixed       int
	Min         int
	Max         int
}

// DefaultQuickStart is a ten minute block at a fixed 170 spm
func DefaultQuickStart() QuickStart {
	return QuickStart{
		DurationSec: DefaultQuickDurationSec,
		Mode:        tempo.ModeFixed,
		Fixed:       170,
		Min:         160,
		Max:         180,
	}
}

// Target returns the cadence target selected by the quick start mode
func (q QuickStart) Target() tempo.Target {
	switch q.Mode {
	case tempo.ModeFixed:
		return tempo.Fixed(q.Fixed)
	case tempo.ModeRange:
		return tempo.Range(q.Min, q.Max)
	default:
		return tempo.None()
	}
}

// Blocks builds the one-block workout for this quick start
func (q QuickStart) Blocks() []Block {
	return []Block{NewBlock(BlockWork, q.DurationSec, q.Target())}
}

// Validate rejects quick starts that could not produce a usable session
func (q QuickStart) Validate() error {
	if q.DurationSec <= 0 {
		return errors.New("duration must be positive")
	}
	if err := q.Target().Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateProgram is the check run before a program is saved or started
func ValidateProgram(name string, blocks []Block) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("program name is empty")
	}
	if len(blocks) == 0 {
		return errors.New("program has no blocks")
	}
	for i, b := range blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("block %d: %w", i+1, err)
		}
	}
	if _, err := Compile(blocks); err != nil {
		return err
	}
	return nil
}
