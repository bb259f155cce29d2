package workout

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/cadence-timer/internal/tempo"
)

func TestDefaultPrograms(t *testing.T) {
	programs := DefaultPrograms(testNow)
	require.Len(t, programs, 1)

	tabata := programs[0]
	assert.Equal(t, "Tabata 8x20/10", tabata.Name)
	assert.Equal(t, []string{"hiit"}, tabata.Tags)
	assert.Equal(t, 240, TotalDuration(tabata.Blocks))
	assert.NoError(t, ValidateProgram(tabata.Name, tabata.Blocks))
}

func TestQuickStart(t *testing.T) {
	q := DefaultQuickStart()
	require.NoError(t, q.Validate())

	blocks := q.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, BlockWork, blocks[0].Type)
	assert.Equal(t, 600, blocks[0].DurationSec)
	assert.Equal(t, 170, tempo.Effective(blocks[0].Tempo))

	q.Mode = tempo.ModeRange
	assert.Equal(t, tempo.Range(160, 180), q.Target())
	assert.NoError(t, q.Validate())

	q.Mode = tempo.ModeNone
	assert.Equal(t, tempo.None(), q.Target())
	assert.NoError(t, q.Validate())
}

func TestQuickStart_Validate(t *testing.T) {
	q := DefaultQuickStart()
	q.DurationSec = 0
	assert.Error(t, q.Validate())

	q = DefaultQuickStart()
	q.Fixed = 30
	assert.ErrorIs(t, q.Validate(), tempo.ErrInvalidTarget)

	q = DefaultQuickStart()
	q.Mode = tempo.ModeRange
	q.Min, q.Max = 190, 170
	assert.ErrorIs(t, q.Validate(), tempo.ErrInvalidTarget)
}

func TestValidateProgram(t *testing.T) {
	blocks := []Block{NewBlock(BlockWork, 20, tempo.None())}
	assert.NoError(t, ValidateProgram("Intervals", blocks))
	assert.Error(t, ValidateProgram("   ", blocks))
	assert.Error(t, ValidateProgram("Intervals", nil))
	assert.ErrorIs(t, ValidateProgram("Intervals", []Block{NewRepeat(0)}), ErrInvalidRepeat)
}

const samplePrograms = `
programs:
  - name: Ladder
    tags: [tempo, ramp]
    blocks:
      - type: warmup
        durationSec: 300
      - type: rampUp
        durationSec: 120
        ramp: [150, 180]
      - type: repeatGroup
        repeat: 3
        blocks:
          - {type: work, durationSec: 60, spmRange: [175, 185]}
          - {type: recover, durationSec: 30}
      - type: cooldown
        durationSec: 180
        spm: 140
`

func TestReadProgramsYAML(t *testing.T) {
	programs, err := ReadProgramsYAML(strings.NewReader(samplePrograms), testNow)
	require.NoError(t, err)
	require.Len(t, programs, 1)

	p := programs[0]
	assert.Equal(t, "Ladder", p.Name)
	assert.Equal(t, []string{"tempo", "ramp"}, p.Tags)
	assert.Equal(t, testNow, p.CreatedAt)
	require.Len(t, p.Blocks, 4)
	assert.Equal(t, BlockRampUp, p.Blocks[1].Type)
	assert.Equal(t, 180, *p.Blocks[1].RampEnd)
	assert.Equal(t, 3, p.Blocks[2].RepeatCount)
	assert.Equal(t, 180, tempo.Effective(p.Blocks[2].Subblocks[0].Tempo))
	assert.Equal(t, 140, tempo.Effective(p.Blocks[3].Tempo))
	assert.Equal(t, 300+120+3*90+180, TotalDuration(p.Blocks))
}

func TestReadProgramsYAML_Invalid(t *testing.T) {
	_, err := ReadProgramsYAML(strings.NewReader(`
programs:
  - name: Broken
    blocks:
      - type: repeatGroup
        repeat: 0
        blocks:
          - {type: work, durationSec: 10}
`), testNow)
	assert.ErrorIs(t, err, ErrInvalidRepeat)
	assert.Contains(t, err.Error(), "Broken")

	_, err = ReadProgramsYAML(strings.NewReader("programs:\n  - name: X\n    blocks:\n      - {type: sprint}\n"), testNow)
	assert.Error(t, err)

	_, err = ReadProgramsYAML(strings.NewReader("programs: [\n"), testNow)
	assert.Error(t, err)

	programs, err := ReadProgramsYAML(strings.NewReader(""), testNow)
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestWriteProgramsYAML_ReadsBack(t *testing.T) {
	source, err := ReadProgramsYAML(strings.NewReader(samplePrograms), testNow)
	require.NoError(t, err)
	source = append(source, DefaultPrograms(testNow)...)

	var buf bytes.Buffer
	require.NoError(t, WriteProgramsYAML(&buf, source))
	assert.Contains(t, buf.String(), "ramp: [150, 180]")

	back, err := ReadProgramsYAML(&buf, testNow)
	require.NoError(t, err)
	require.Len(t, back, len(source))
	for i := range source {
		assert.Equal(t, source[i].Name, back[i].Name)
		a, err := Compile(source[i].Blocks)
		require.NoError(t, err)
		b, err := Compile(back[i].Blocks)
		require.NoError(t, err)
		assert.Equal(t, spans(a), spans(b))
	}
}
