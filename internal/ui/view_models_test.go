package ui

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/cadence-timer/internal/repository"
	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/tempo"
	"github.com/lowaak/cadence-timer/internal/workout"
)

func TestGetUIModeByKey(t *testing.T) {
	mode, ok := GetUIModeByKey('2')
	require.True(t, ok)
	assert.Equal(t, UIModeSession, mode)

	_, ok = GetUIModeByKey('9')
	assert.False(t, ok)

	info, ok := GetUIModeInfo(UIModeHistory)
	require.True(t, ok)
	assert.Equal(t, "History", info.DisplayName)
}

func TestHistoryWindow_Next(t *testing.T) {
	assert.Equal(t, HistoryWeek, HistoryAll.Next())
	assert.Equal(t, HistoryMonth, HistoryWeek.Next())
	assert.Equal(t, HistoryAll, HistoryMonth.Next())
	assert.Equal(t, 7, HistoryWeek.Days())
	assert.Equal(t, "All time", HistoryAll.String())
}

func TestDescribeBlocks(t *testing.T) {
	blocks := []workout.Block{
		workout.NewRamp(workout.BlockRampUp, 300, 150, 170),
		workout.NewRepeat(8,
			workout.NewBlock(workout.BlockWork, 20, tempo.Fixed(170)),
			workout.NewBlock(workout.BlockRecover, 10, tempo.None()),
		),
		workout.NewBlock(workout.BlockCooldown, 120, tempo.Range(150, 160)),
	}

	assert.Equal(t, []string{
		"Ramp Up 05:00 · 150→170 spm",
		"Repeat ×8",
		"  Work 00:20 · 170 spm",
		"  Recover 00:10 · —",
		"Cooldown 02:00 · 150–160 spm",
	}, DescribeBlocks(blocks))
}

func TestNewProgramItem(t *testing.T) {
	p := workout.DefaultPrograms(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))[0]
	item := NewProgramItem(p)
	assert.Equal(t, p.ID, item.ID)
	assert.Equal(t, 240, item.TotalSec)
	assert.Len(t, item.Structure, 3)
}

func TestNewSessionView_Idle(t *testing.T) {
	v := NewSessionView(runner.State{Status: runner.StatusIdle})
	assert.Equal(t, "—", v.SegmentType)
	assert.Equal(t, "—", v.Next)
	assert.Equal(t, "00:00", v.Elapsed)
	assert.Equal(t, "—", v.CurrentSPM)
}

func TestNewSessionView_Running(t *testing.T) {
	items, err := workout.Compile([]workout.Block{
		workout.NewBlock(workout.BlockWork, 20, tempo.Fixed(170)),
		workout.NewBlock(workout.BlockRecover, 10, tempo.None()),
	})
	require.NoError(t, err)

	state := runner.State{
		Status:       runner.StatusRunning,
		Source:       runner.Source{Name: "Intervals"},
		Timeline:     items,
		TotalSec:     30,
		ElapsedSec:   5,
		CurrentIndex: 0,
		Current:      &items[0],
		CurrentSPM:   170,
	}
	v := NewSessionView(state)
	assert.Equal(t, "Intervals", v.Name)
	assert.Equal(t, "1/2", v.Segment)
	assert.Equal(t, "Work", v.SegmentType)
	assert.Equal(t, "170 spm", v.Target)
	assert.Equal(t, "170 spm", v.CurrentSPM)
	assert.Equal(t, "00:15", v.SegmentRemaining)
	assert.Equal(t, "00:25", v.Remaining)
	assert.Equal(t, "Recover 00:10 · —", v.Next)
	assert.InDelta(t, 5.0/30.0, v.Progress, 1e-9)

	state.CurrentIndex = 1
	state.Current = &items[1]
	state.ElapsedSec = 25
	assert.Equal(t, "Finish", NewSessionView(state).Next)
}

func TestNewHistoryView(t *testing.T) {
	h := repository.History{Location: time.UTC}
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	programID := uuid.New()
	quick := workout.QuickName
	rpe := 7

	sessions := []workout.Session{
		{ID: uuid.New(), Date: now.Add(-2 * time.Hour), ProgramID: &programID, TotalSec: 240, RPE: &rpe},
		{ID: uuid.New(), Date: now.Add(-1 * time.Hour), QuickName: &quick, TotalSec: 600},
		{ID: uuid.New(), Date: now.AddDate(0, 0, -3), TotalSec: 60},
		{ID: uuid.New(), Date: now.AddDate(0, 0, -20), TotalSec: 100},
	}
	names := map[uuid.UUID]string{programID: "Tabata 8x20/10"}

	all := NewHistoryView(h, sessions, names, HistoryAll, now)
	assert.Equal(t, 4, all.Count)
	assert.Equal(t, "16:40", all.TotalTime)
	assert.Equal(t, "7.0", all.AverageRPE)
	assert.Equal(t, "—", all.AverageInZone)
	require.Len(t, all.Days, 3)
	assert.Equal(t, "Tue, Jun 10 2025", all.Days[0].Title)
	require.Len(t, all.Days[0].Entries, 2)
	assert.Equal(t, HistoryEntry{Time: "17:00", Name: "Quick Start", Duration: "10:00", RPE: "—"}, all.Days[0].Entries[0])
	assert.Equal(t, "Tabata 8x20/10", all.Days[0].Entries[1].Name)
	assert.Equal(t, "RPE 7", all.Days[0].Entries[1].RPE)
	assert.Equal(t, "Deleted program", all.Days[1].Entries[0].Name)

	week := NewHistoryView(h, sessions, names, HistoryWeek, now)
	assert.Equal(t, 3, week.Count)
	assert.Equal(t, HistoryWeek, week.Window)

	empty := NewHistoryView(h, nil, names, HistoryMonth, now)
	assert.Equal(t, 0, empty.Count)
	assert.Empty(t, empty.Days)
	assert.Equal(t, "00:00", empty.TotalTime)
}
