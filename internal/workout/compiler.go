package workout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Compile failures. Match with errors.Is, the concrete error is a *CompileError.
var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidRepeat   = errors.New("invalid repeat")
	ErrInvalidRamp     = errors.New("invalid ramp")
	ErrTooDeep         = errors.New("repeat groups nested too deep")
)

// MaxNestingDepth bounds how many repeat groups may be nested in each other
const MaxNestingDepth = 16

// CompileError locates a compile failure inside the block tree.
// Path is the 1-based position of the block, e.g. "2.1" for the first
// subblock of the second top-level block.
type CompileError struct {
	Path    string
	BlockID uuid.UUID
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("block %s: %v", e.Path, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compile flattens a block tree into contiguous timeline segments, expanding
// repeat groups depth-first. The result depends only on the input: segment
// ids are derived from the source block id and the segment position.
func Compile(blocks []Block) ([]TimelineItem, error) {
	c := &compiler{}
	if err := c.walk(blocks, nil); err != nil {
		return nil, err
	}
	return c.items, nil
}

// TotalDuration is the length of the compiled timeline in seconds, or 0 when
// the blocks do not compile. Use it for display only, never to decide whether
// a workout can run.
func TotalDuration(blocks []Block) int {
	items, err := Compile(blocks)
	if err != nil || len(items) == 0 {
		return 0
	}
	return items[len(items)-1].EndSec
}

type compiler struct {
	cursor int
	items  []TimelineItem
}

func (c *compiler) walk(blocks []Block, path []int) error {
	if len(path) > MaxNestingDepth {
		return c.fail(path, uuid.Nil, ErrTooDeep)
	}
	for i := range blocks {
		b := &blocks[i]
		blockPath := append(path[:len(path):len(path)], i+1)

		switch {
		case b.Type == BlockRepeatGroup:
			if b.RepeatCount <= 0 || len(b.Subblocks) == 0 {
				return c.fail(blockPath, b.ID, ErrInvalidRepeat)
			}
			for rep := 0; rep < b.RepeatCount; rep++ {
				if err := c.walk(b.Subblocks, blockPath); err != nil {
					return err
				}
			}

		case b.Type.IsRamp():
			if b.DurationSec <= 0 || b.RampStart == nil || b.RampEnd == nil {
				return c.fail(blockPath, b.ID, ErrInvalidRamp)
			}
			c.emit(b)

		default:
			if b.DurationSec < 0 {
				return c.fail(blockPath, b.ID, ErrInvalidDuration)
			}
			c.emit(b)
		}
	}
	return nil
}

func (c *compiler) emit(b *Block) {
	index := len(c.items)
	item := TimelineItem{
		ID:        uuid.NewSHA1(b.ID, []byte(strconv.Itoa(index))),
		BlockID:   b.ID,
		Type:      b.Type,
		StartSec:  c.cursor,
		EndSec:    c.cursor + b.DurationSec,
		Tempo:     cloneTarget(b.Tempo),
		RampStart: cloneInt(b.RampStart),
		RampEnd:   cloneInt(b.RampEnd),
	}
	c.items = append(c.items, item)
	c.cursor = item.EndSec
}

func (c *compiler) fail(path []int, id uuid.UUID, err error) error {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return &CompileError{Path: strings.Join(parts, "."), BlockID: id, Err: err}
}
