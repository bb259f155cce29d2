// Package format renders values for display.
package format

import (
	"fmt"
	"time"

	"github.com/lowaak/cadence-timer/internal/tempo"
)

// Placeholder is shown where a value is absent
const Placeholder = "—"

// Time renders seconds as mm:ss. Minutes are not wrapped into hours.
func Time(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// Tempo renders a cadence target in spm
func Tempo(t tempo.Target) string {
	switch t.Mode {
	case tempo.ModeFixed:
		return fmt.Sprintf("%d spm", valueOr(t.Value))
	case tempo.ModeRange:
		return fmt.Sprintf("%d–%d spm", valueOr(t.Min), valueOr(t.Max))
	default:
		return Placeholder
	}
}

// SPM renders a live cadence, the placeholder when there is none
func SPM(spm int) string {
	if spm <= 0 {
		return Placeholder
	}
	return fmt.Sprintf("%d spm", spm)
}

// Ramp renders a ramp's bounds
func Ramp(start, end *int) string {
	if start == nil || end == nil {
		return Placeholder
	}
	return fmt.Sprintf("%d→%d spm", *start, *end)
}

// Percent renders a 0..1 share as a whole percentage
func Percent(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.0f%%", *v*100)
}

// Decimal renders an optional average with one decimal
func Decimal(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.1f", *v)
}

// Date renders a medium date with a short time in t's location
func Date(t time.Time) string {
	return t.Format("Jan 2, 2006 at 15:04")
}

// Day renders the heading of a history section
func Day(t time.Time) string {
	return t.Format("Mon, Jan 2 2006")
}

func valueOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
