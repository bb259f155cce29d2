package workout

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/tempo"
)

// BlockType is the kind of a workout phase
type BlockType string

const (
	BlockWarmup      BlockType = "warmup"
	BlockWork        BlockType = "work"
	BlockRecover     BlockType = "recover"
	BlockCooldown    BlockType = "cooldown"
	BlockRampUp      BlockType = "rampUp"
	BlockRampDown    BlockType = "rampDown"
	BlockRepeatGroup BlockType = "repeatGroup"
)

// AllBlockTypes lists every block type in authoring order
var AllBlockTypes = []BlockType{
	BlockWarmup,
	BlockWork,
	BlockRecover,
	BlockCooldown,
	BlockRampUp,
	BlockRampDown,
	BlockRepeatGroup,
}

// Valid reports whether t is one of the known block types
func (t BlockType) Valid() bool {
	for _, known := range AllBlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsRamp reports whether the cadence of t changes over its duration
func (t BlockType) IsRamp() bool {
	return t == BlockRampUp || t == BlockRampDown
}

// Block is one node of an authored workout tree. RepeatCount and Subblocks
// only apply to repeat groups, RampStart and RampEnd only to ramps.
type Block struct {
	ID          uuid.UUID    `json:"id"`
	Type        BlockType    `json:"type"`
	DurationSec int          `json:"durationSec"`
	Tempo       tempo.Target `json:"tempo"`
	RepeatCount int          `json:"repeatCount,omitempty"`
	Subblocks   []Block      `json:"subblocks,omitempty"`
	RampStart   *int         `json:"rampStart,omitempty"`
	RampEnd     *int         `json:"rampEnd,omitempty"`
}

// NewBlock creates a leaf block (warmup, work, recover or cooldown)
func NewBlock(blockType BlockType, durationSec int, target tempo.Target) Block {
	return Block{
		ID:          uuid.New(),
		Type:        blockType,
		DurationSec: durationSec,
		Tempo:       target,
	}
}

// NewRamp creates a block whose cadence moves linearly from start to end
func NewRamp(blockType BlockType, durationSec, start, end int) Block {
	return Block{
		ID:          uuid.New(),
		Type:        blockType,
		DurationSec: durationSec,
		Tempo:       tempo.None(),
		RampStart:   &start,
		RampEnd:     &end,
	}
}

// NewRepeat creates a repeat group running subblocks count times
func NewRepeat(count int, subblocks ...Block) Block {
	return Block{
		ID:          uuid.New(),
		Type:        BlockRepeatGroup,
		Tempo:       tempo.None(),
		RepeatCount: count,
		Subblocks:   subblocks,
	}
}

// Clone deep-copies the block tree giving every node a fresh identity
func (b Block) Clone() Block {
	c := b
	c.ID = uuid.New()
	c.Tempo = cloneTarget(b.Tempo)
	c.RampStart = cloneInt(b.RampStart)
	c.RampEnd = cloneInt(b.RampEnd)
	if b.Subblocks != nil {
		c.Subblocks = CloneBlocks(b.Subblocks)
	}
	return c
}

// CloneBlocks clones every block of a list
func CloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// Validate checks the structural rules of a single node and its children.
// It is stricter than Compile: cadence bounds are checked too.
func (b Block) Validate() error {
	if !b.Type.Valid() {
		return fmt.Errorf("unknown block type %q", b.Type)
	}
	switch {
	case b.Type == BlockRepeatGroup:
		if b.RepeatCount <= 0 || len(b.Subblocks) == 0 {
			return fmt.Errorf("%w: count %d with %d subblocks", ErrInvalidRepeat, b.RepeatCount, len(b.Subblocks))
		}
		for i, sub := range b.Subblocks {
			if err := sub.Validate(); err != nil {
				return fmt.Errorf("subblock %d: %w", i+1, err)
			}
		}
		return nil
	case b.Type.IsRamp():
		if b.DurationSec <= 0 || b.RampStart == nil || b.RampEnd == nil {
			return ErrInvalidRamp
		}
		if tempo.Clamp(*b.RampStart) != *b.RampStart || tempo.Clamp(*b.RampEnd) != *b.RampEnd {
			return fmt.Errorf("%w: bounds %d-%d outside %d-%d", ErrInvalidRamp, *b.RampStart, *b.RampEnd, tempo.MinSPM, tempo.MaxSPM)
		}
	default:
		if b.DurationSec < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidDuration, b.DurationSec)
		}
		if b.RampStart != nil || b.RampEnd != nil {
			return fmt.Errorf("%w: ramp bounds on %s block", ErrInvalidRamp, b.Type)
		}
	}
	if b.RepeatCount != 0 || len(b.Subblocks) > 0 {
		return fmt.Errorf("%w: subblocks on %s block", ErrInvalidRepeat, b.Type)
	}
	return b.Tempo.Validate()
}

// TimelineItem is one flattened segment with absolute offsets in seconds.
// The segment covers [StartSec, EndSec).
type TimelineItem struct {
	ID        uuid.UUID    `json:"id"`
	BlockID   uuid.UUID    `json:"blockId"`
	Type      BlockType    `json:"type"`
	StartSec  int          `json:"startSec"`
	EndSec    int          `json:"endSec"`
	Tempo     tempo.Target `json:"tempo"`
	RampStart *int         `json:"rampStart,omitempty"`
	RampEnd   *int         `json:"rampEnd,omitempty"`
}

// DurationSec returns the length of the segment
func (t TimelineItem) DurationSec() int {
	return t.EndSec - t.StartSec
}

// HasRamp reports whether the segment interpolates its cadence
func (t TimelineItem) HasRamp() bool {
	return t.Type.IsRamp() && t.RampStart != nil && t.RampEnd != nil
}

// Program is a named, tagged workout owning its block tree
type Program struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Tags      []string  `json:"tags"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProgram creates a program stamped with now
func NewProgram(name string, tags []string, blocks []Block, now time.Time) Program {
	if tags == nil {
		tags = []string{}
	}
	return Program{
		ID:        uuid.New(),
		Name:      name,
		Tags:      tags,
		Blocks:    blocks,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Duplicate returns an independent copy with fresh identities and timestamps
func (p Program) Duplicate(now time.Time) Program {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	return NewProgram(p.Name+" Copy", tags, CloneBlocks(p.Blocks), now)
}

// BlockLog records one segment of a finished session
type BlockLog struct {
	ID          uuid.UUID    `json:"id"`
	Type        BlockType    `json:"type"`
	Target      tempo.Target `json:"target"`
	DurationSec int          `json:"durationSec"`
}

// Session is the historical record of one run
type Session struct {
	ID            uuid.UUID  `json:"id"`
	Date          time.Time  `json:"date"`
	ProgramID     *uuid.UUID `json:"programId,omitempty"`
	QuickName     *string    `json:"quickName,omitempty"`
	TotalSec      int        `json:"totalSec"`
	InZonePercent *float64   `json:"inZonePercent,omitempty"`
	RPE           *int       `json:"rpe,omitempty"`
	Note          *string    `json:"note,omitempty"`
	Blocks        []BlockLog `json:"blocks"`
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTarget(t tempo.Target) tempo.Target {
	return tempo.Target{
		Mode:  t.Mode,
		Value: cloneInt(t.Value),
		Min:   cloneInt(t.Min),
		Max:   cloneInt(t.Max),
	}
}
