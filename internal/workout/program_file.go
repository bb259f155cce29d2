package workout

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lowaak/cadence-timer/internal/tempo"
)

// programsFile is the on-disk layout for sharing programs:
//
//	programs:
//	  - name: Tabata 8x20/10
//	    tags: [hiit]
//	    blocks:
//	      - type: repeatGroup
//	        repeat: 8
//	        blocks:
//	          - {type: work, durationSec: 20, spm: 170}
//	          - {type: recover, durationSec: 10}
type programsFile struct {
	Programs []programEntry `yaml:"programs"`
}

type programEntry struct {
	Name   string       `yaml:"name"`
	Tags   []string     `yaml:"tags,flow,omitempty"`
	Blocks []blockEntry `yaml:"blocks"`
}

type blockEntry struct {
	Type        BlockType    `yaml:"type"`
	DurationSec int          `yaml:"durationSec,omitempty"`
	SPM         *int         `yaml:"spm,omitempty"`
	SPMRange    []int        `yaml:"spmRange,flow,omitempty"`
	Ramp        []int        `yaml:"ramp,flow,omitempty"`
	Repeat      int          `yaml:"repeat,omitempty"`
	Blocks      []blockEntry `yaml:"blocks,omitempty"`
}

// ReadProgramsYAML parses a programs file. Every program gets fresh ids and
// is validated before it is returned.
func ReadProgramsYAML(r io.Reader, now time.Time) ([]Program, error) {
	var file programsFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return []Program{}, nil
		}
		return nil, fmt.Errorf("decoding programs: %w", err)
	}

	programs := make([]Program, 0, len(file.Programs))
	for i, entry := range file.Programs {
		blocks, err := entryBlocks(entry.Blocks)
		if err != nil {
			return nil, fmt.Errorf("program %d (%q): %w", i+1, entry.Name, err)
		}
		if err := ValidateProgram(entry.Name, blocks); err != nil {
			return nil, fmt.Errorf("program %d (%q): %w", i+1, entry.Name, err)
		}
		programs = append(programs, NewProgram(entry.Name, entry.Tags, blocks, now))
	}
	return programs, nil
}

// WriteProgramsYAML writes programs in the layout read by ReadProgramsYAML
func WriteProgramsYAML(w io.Writer, programs []Program) error {
	file := programsFile{Programs: make([]programEntry, 0, len(programs))}
	for _, p := range programs {
		file.Programs = append(file.Programs, programEntry{
			Name:   p.Name,
			Tags:   p.Tags,
			Blocks: blockEntries(p.Blocks),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encoding programs: %w", err)
	}
	return enc.Close()
}

func entryBlocks(entries []blockEntry) ([]Block, error) {
	blocks := make([]Block, 0, len(entries))
	for _, e := range entries {
		if !e.Type.Valid() {
			return nil, fmt.Errorf("unknown block type %q", e.Type)
		}

		var b Block
		switch {
		case e.Type == BlockRepeatGroup:
			subs, err := entryBlocks(e.Blocks)
			if err != nil {
				return nil, err
			}
			b = NewRepeat(e.Repeat, subs...)
		case e.Type.IsRamp():
			if len(e.Ramp) != 2 {
				return nil, fmt.Errorf("%w: ramp needs [start, end]", ErrInvalidRamp)
			}
			b = NewRamp(e.Type, e.DurationSec, e.Ramp[0], e.Ramp[1])
		default:
			target := tempo.None()
			switch {
			case e.SPM != nil && e.SPMRange != nil:
				return nil, fmt.Errorf("%w: spm and spmRange are exclusive", tempo.ErrInvalidTarget)
			case e.SPM != nil:
				target = tempo.Fixed(*e.SPM)
			case e.SPMRange != nil:
				if len(e.SPMRange) != 2 {
					return nil, fmt.Errorf("%w: spmRange needs [min, max]", tempo.ErrInvalidTarget)
				}
				target = tempo.Range(e.SPMRange[0], e.SPMRange[1])
			}
			b = NewBlock(e.Type, e.DurationSec, target)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func blockEntries(blocks []Block) []blockEntry {
	entries := make([]blockEntry, 0, len(blocks))
	for _, b := range blocks {
		e := blockEntry{Type: b.Type}
		switch {
		case b.Type == BlockRepeatGroup:
			e.Repeat = b.RepeatCount
			e.Blocks = blockEntries(b.Subblocks)
		case b.Type.IsRamp():
			e.DurationSec = b.DurationSec
			if b.RampStart != nil && b.RampEnd != nil {
				e.Ramp = []int{*b.RampStart, *b.RampEnd}
			}
		default:
			e.DurationSec = b.DurationSec
			switch b.Tempo.Mode {
			case tempo.ModeFixed:
				e.SPM = cloneInt(b.Tempo.Value)
			case tempo.ModeRange:
				if b.Tempo.Min != nil && b.Tempo.Max != nil {
					e.SPMRange = []int{*b.Tempo.Min, *b.Tempo.Max}
				}
			}
		}
		entries = append(entries, e)
	}
	return entries
}
