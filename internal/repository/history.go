package repository

import (
	"sort"
	"time"

	"github.com/lowaak/cadence-timer/internal/workout"
)

// HistoryFilter narrows the session history. Nil fields do not filter.
type HistoryFilter struct {
	From   *time.Time // sessions on or after the start of this day
	To     *time.Time // sessions on or before the end of this day
	MinRPE *int       // sessions without RPE count as 0
	MaxRPE *int       // sessions without RPE count as 10
}

// HistorySection is the sessions of one calendar day, newest first
type HistorySection struct {
	Day   time.Time
	Items []workout.Session
}

// History groups and summarises sessions in a time zone
type History struct {
	Location *time.Location // nil means time.Local
}

func (h History) loc() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}

func (h History) startOfDay(t time.Time) time.Time {
	t = t.In(h.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.loc())
}

func (h History) endOfDay(t time.Time) time.Time {
	return h.startOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}

func (h History) Filter(sessions []workout.Session, f HistoryFilter) []workout.Session {
	result := make([]workout.Session, 0, len(sessions))
	for _, s := range sessions {
		if f.From != nil && s.Date.Before(h.startOfDay(*f.From)) {
			continue
		}
		if f.To != nil && s.Date.After(h.endOfDay(*f.To)) {
			continue
		}
		if f.MinRPE != nil && rpeOr(s, 0) < *f.MinRPE {
			continue
		}
		if f.MaxRPE != nil && rpeOr(s, 10) > *f.MaxRPE {
			continue
		}
		result = append(result, s)
	}
	return result
}

func rpeOr(s workout.Session, fallback int) int {
	if s.RPE == nil {
		return fallback
	}
	return *s.RPE
}

// Sections groups sessions by day, newest day first
func (h History) Sections(sessions []workout.Session) []HistorySection {
	byDay := make(map[time.Time][]workout.Session)
	for _, s := range sessions {
		day := h.startOfDay(s.Date)
		byDay[day] = append(byDay[day], s)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	sections := make([]HistorySection, 0, len(days))
	for _, day := range days {
		items := byDay[day]
		sort.SliceStable(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })
		sections = append(sections, HistorySection{Day: day, Items: items})
	}
	return sections
}

func (History) TotalTime(sessions []workout.Session) int {
	total := 0
	for _, s := range sessions {
		total += s.TotalSec
	}
	return total
}

// AverageRPE averages the sessions that have an RPE, nil when none do
func (History) AverageRPE(sessions []workout.Session) *float64 {
	sum, n := 0, 0
	for _, s := range sessions {
		if s.RPE != nil {
			sum += *s.RPE
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

// AverageInZone averages the sessions that have an in-zone share, nil when
// none do
func (History) AverageInZone(sessions []workout.Session) *float64 {
	sum, n := 0.0, 0
	for _, s := range sessions {
		if s.InZonePercent != nil {
			sum += *s.InZonePercent
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
