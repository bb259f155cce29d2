package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/format"
	"github.com/lowaak/cadence-timer/internal/haptics"
	"github.com/lowaak/cadence-timer/internal/repository"
	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// ProgramItem is one row of the program library
type ProgramItem struct {
	ID        uuid.UUID
	Name      string
	Tags      []string
	TotalSec  int
	Structure []string // one line per block, repeat children indented
}

// LibraryState is what the library page renders
type LibraryState struct {
	Programs         []ProgramItem
	Tag              string // active tag filter, empty for all programs
	HapticsEnabled   bool
	HapticsIntensity haptics.Intensity
	PrivacyPending   bool // the privacy notice has not been accepted yet
}

// SessionView is a runner state formatted for display
type SessionView struct {
	Status           runner.Status
	Name             string
	Segment          string // position as "n/total"
	SegmentType      string
	Target           string
	CurrentSPM       string
	SegmentRemaining string
	Elapsed          string
	Remaining        string
	Total            string
	Progress         float64
	Next             string
	CountdownSec     int
}

// HistoryEntry is one recorded session
type HistoryEntry struct {
	Time     string
	Name     string
	Duration string
	RPE      string
}

// HistoryDay is one day of history, newest entry first
type HistoryDay struct {
	Title   string
	Entries []HistoryEntry
}

// HistoryView is the filtered history with its totals
type HistoryView struct {
	Window        HistoryWindow
	Days          []HistoryDay
	Count         int
	TotalTime     string
	AverageRPE    string
	AverageInZone string
}

// NewProgramItem summarises a program for the library list
func NewProgramItem(p workout.Program) ProgramItem {
	return ProgramItem{
		ID:        p.ID,
		Name:      p.Name,
		Tags:      p.Tags,
		TotalSec:  workout.TotalDuration(p.Blocks),
		Structure: DescribeBlocks(p.Blocks),
	}
}

// DescribeBlocks renders a block tree as indented lines
func DescribeBlocks(blocks []workout.Block) []string {
	var lines []string
	describeBlocks(&lines, blocks, 0)
	return lines
}

func describeBlocks(lines *[]string, blocks []workout.Block, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, b := range blocks {
		*lines = append(*lines, indent+describeBlock(b))
		if b.Type == workout.BlockRepeatGroup {
			describeBlocks(lines, b.Subblocks, depth+1)
		}
	}
}

func describeBlock(b workout.Block) string {
	if b.Type == workout.BlockRepeatGroup {
		return fmt.Sprintf("Repeat ×%d", b.RepeatCount)
	}
	target := format.Tempo(b.Tempo)
	if b.Type.IsRamp() {
		target = format.Ramp(b.RampStart, b.RampEnd)
	}
	return fmt.Sprintf("%s %s · %s", BlockTypeLabel(b.Type), format.Time(b.DurationSec), target)
}

func segmentTarget(item workout.TimelineItem) string {
	if item.HasRamp() {
		return format.Ramp(item.RampStart, item.RampEnd)
	}
	return format.Tempo(item.Tempo)
}

// NewSessionView formats a runner state
func NewSessionView(s runner.State) SessionView {
	v := SessionView{
		Status:           s.Status,
		Name:             s.Source.Name,
		Segment:          format.Placeholder,
		SegmentType:      format.Placeholder,
		Target:           format.Placeholder,
		CurrentSPM:       format.SPM(s.CurrentSPM),
		SegmentRemaining: format.Time(s.SegmentRemainingSec()),
		Elapsed:          format.Time(s.ElapsedSec),
		Remaining:        format.Time(s.RemainingSec()),
		Total:            format.Time(s.TotalSec),
		Progress:         s.Progress(),
		Next:             format.Placeholder,
		CountdownSec:     s.CountdownSec,
	}
	if s.Current == nil {
		return v
	}
	v.Segment = fmt.Sprintf("%d/%d", s.CurrentIndex+1, len(s.Timeline))
	v.SegmentType = BlockTypeLabel(s.Current.Type)
	v.Target = segmentTarget(*s.Current)
	if next := s.Next(); next != nil {
		v.Next = fmt.Sprintf("%s %s · %s", BlockTypeLabel(next.Type), format.Time(next.DurationSec()), segmentTarget(*next))
	} else {
		v.Next = "Finish"
	}
	return v
}

// NewHistoryView filters sessions to window ending at now and groups them by
// day. names resolves program ids of sessions that were not quick starts.
func NewHistoryView(h repository.History, sessions []workout.Session, names map[uuid.UUID]string, window HistoryWindow, now time.Time) HistoryView {
	var filter repository.HistoryFilter
	if days := window.Days(); days > 0 {
		from := now.AddDate(0, 0, -(days - 1))
		filter.From = &from
	}
	filtered := h.Filter(sessions, filter)

	loc := h.Location
	if loc == nil {
		loc = time.Local
	}

	view := HistoryView{
		Window:        window,
		Count:         len(filtered),
		TotalTime:     format.Time(h.TotalTime(filtered)),
		AverageRPE:    format.Decimal(h.AverageRPE(filtered)),
		AverageInZone: format.Percent(h.AverageInZone(filtered)),
	}
	for _, section := range h.Sections(filtered) {
		day := HistoryDay{Title: format.Day(section.Day)}
		for _, s := range section.Items {
			rpe := format.Placeholder
			if s.RPE != nil {
				rpe = fmt.Sprintf("RPE %d", *s.RPE)
			}
			day.Entries = append(day.Entries, HistoryEntry{
				Time:     s.Date.In(loc).Format("15:04"),
				Name:     sessionName(s, names),
				Duration: format.Time(s.TotalSec),
				RPE:      rpe,
			})
		}
		view.Days = append(view.Days, day)
	}
	return view
}

func sessionName(s workout.Session, names map[uuid.UUID]string) string {
	if s.QuickName != nil {
		return *s.QuickName
	}
	if s.ProgramID != nil {
		if name, ok := names[*s.ProgramID]; ok {
			return name
		}
	}
	return "Deleted program"
}
