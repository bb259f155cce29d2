package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/cadence-timer/internal/tempo"
)

type span struct {
	Type  BlockType
	Start int
	End   int
}

func spans(items []TimelineItem) []span {
	out := make([]span, len(items))
	for i, item := range items {
		out[i] = span{item.Type, item.StartSec, item.EndSec}
	}
	return out
}

func requireContiguous(t *testing.T, items []TimelineItem) {
	t.Helper()
	for i := 0; i+1 < len(items); i++ {
		require.Equal(t, items[i].EndSec, items[i+1].StartSec, "gap between segment %d and %d", i, i+1)
	}
}

func TestCompile_FlatList(t *testing.T) {
	blocks := []Block{
		NewBlock(BlockWarmup, 300, tempo.None()),
		NewBlock(BlockWork, 60, tempo.Fixed(170)),
		NewBlock(BlockRecover, 0, tempo.None()),
		NewBlock(BlockCooldown, 120, tempo.Range(140, 150)),
	}

	items, err := Compile(blocks)
	require.NoError(t, err)
	require.Len(t, items, len(blocks))

	cursor := 0
	for i, item := range items {
		assert.Equal(t, blocks[i].Type, item.Type)
		assert.Equal(t, blocks[i].ID, item.BlockID)
		assert.Equal(t, cursor, item.StartSec)
		assert.Equal(t, cursor+blocks[i].DurationSec, item.EndSec)
		assert.Equal(t, blocks[i].Tempo, item.Tempo)
		cursor += blocks[i].DurationSec
	}
	assert.Equal(t, 480, TotalDuration(blocks))
}

func TestCompile_RepeatGroup(t *testing.T) {
	blocks := []Block{
		NewRepeat(2,
			NewBlock(BlockWork, 20, tempo.Fixed(170)),
			NewBlock(BlockRecover, 10, tempo.None()),
		),
	}

	items, err := Compile(blocks)
	require.NoError(t, err)
	assert.Equal(t, []span{
		{BlockWork, 0, 20},
		{BlockRecover, 20, 30},
		{BlockWork, 30, 50},
		{BlockRecover, 50, 60},
	}, spans(items))

	assert.Equal(t, 170, tempo.Effective(items[0].Tempo))
	assert.Equal(t, tempo.ModeNone, items[1].Tempo.Mode)
	assert.Equal(t, 170, tempo.Effective(items[2].Tempo))
	assert.Equal(t, 60, TotalDuration(blocks))
}

func TestCompile_RepeatIsConcatenatedCopies(t *testing.T) {
	inner := []Block{
		NewBlock(BlockWork, 45, tempo.Fixed(180)),
		NewRamp(BlockRampDown, 15, 180, 150),
		NewBlock(BlockRecover, 30, tempo.None()),
	}
	once, err := Compile(inner)
	require.NoError(t, err)
	innerTotal := TotalDuration(inner)

	const n = 4
	items, err := Compile([]Block{NewRepeat(n, inner...)})
	require.NoError(t, err)
	require.Len(t, items, n*len(once))
	assert.Equal(t, n*innerTotal, TotalDuration([]Block{NewRepeat(n, inner...)}))

	for rep := 0; rep < n; rep++ {
		for i, base := range once {
			got := items[rep*len(once)+i]
			assert.Equal(t, base.Type, got.Type)
			assert.Equal(t, base.StartSec+rep*innerTotal, got.StartSec)
			assert.Equal(t, base.EndSec+rep*innerTotal, got.EndSec)
		}
	}
	requireContiguous(t, items)
}

func TestCompile_NestedRepeats(t *testing.T) {
	blocks := []Block{
		NewBlock(BlockWarmup, 60, tempo.None()),
		NewRepeat(2,
			NewBlock(BlockWork, 10, tempo.Fixed(200)),
			NewRepeat(3, NewBlock(BlockRecover, 5, tempo.None())),
		),
		NewBlock(BlockCooldown, 60, tempo.None()),
	}

	items, err := Compile(blocks)
	require.NoError(t, err)
	require.Len(t, items, 1+2*(1+3)+1)
	requireContiguous(t, items)
	assert.Equal(t, 60+2*(10+15)+60, items[len(items)-1].EndSec)
	assert.Equal(t, BlockWork, items[1].Type)
	assert.Equal(t, BlockRecover, items[4].Type)
	assert.Equal(t, BlockWork, items[5].Type)
}

func TestCompile_RampCarriesBounds(t *testing.T) {
	items, err := Compile([]Block{NewRamp(BlockRampUp, 90, 150, 190)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].HasRamp())
	assert.Equal(t, 150, *items[0].RampStart)
	assert.Equal(t, 190, *items[0].RampEnd)
	assert.Equal(t, 90, items[0].DurationSec())
}

func TestCompile_Empty(t *testing.T) {
	items, err := Compile(nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, TotalDuration(nil))
}

func TestCompile_InvalidRepeat(t *testing.T) {
	cases := map[string]Block{
		"zero count":     NewRepeat(0, NewBlock(BlockWork, 20, tempo.None())),
		"negative count": NewRepeat(-2, NewBlock(BlockWork, 20, tempo.None())),
		"no subblocks":   NewRepeat(3),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			blocks := []Block{NewBlock(BlockWarmup, 30, tempo.None()), b}
			_, err := Compile(blocks)
			require.ErrorIs(t, err, ErrInvalidRepeat)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, "2", compileErr.Path)
			assert.Equal(t, b.ID, compileErr.BlockID)

			assert.Equal(t, 0, TotalDuration(blocks))
		})
	}
}

func TestCompile_InvalidRamp(t *testing.T) {
	missingEnd := NewRamp(BlockRampDown, 60, 180, 150)
	missingEnd.RampEnd = nil

	cases := map[string]Block{
		"zero duration": NewRamp(BlockRampUp, 0, 150, 180),
		"missing bound": missingEnd,
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compile([]Block{b})
			assert.ErrorIs(t, err, ErrInvalidRamp)
			assert.Equal(t, 0, TotalDuration([]Block{b}))
		})
	}
}

func TestCompile_InvalidDurationInsideRepeat(t *testing.T) {
	blocks := []Block{
		NewRepeat(2,
			NewBlock(BlockWork, 20, tempo.None()),
			NewBlock(BlockRecover, -1, tempo.None()),
		),
	}
	_, err := Compile(blocks)
	require.ErrorIs(t, err, ErrInvalidDuration)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "1.2", compileErr.Path)
	assert.Contains(t, err.Error(), "block 1.2")
}

func TestCompile_TooDeep(t *testing.T) {
	b := NewBlock(BlockWork, 1, tempo.None())
	for i := 0; i <= MaxNestingDepth; i++ {
		b = NewRepeat(1, b)
	}
	_, err := Compile([]Block{b})
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestCompile_IsDeterministic(t *testing.T) {
	blocks := DefaultPrograms(testNow)[0].Blocks
	first, err := Compile(blocks)
	require.NoError(t, err)
	second, err := Compile(blocks)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// repeated segments of the same block are still distinct
	assert.Equal(t, first[0].BlockID, first[2].BlockID)
	assert.NotEqual(t, first[0].ID, first[2].ID)
}
