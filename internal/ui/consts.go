package ui

import "github.com/lowaak/cadence-timer/internal/workout"

// UIMode represents the current UI mode/screen
type UIMode int

const (
	UIModeLibrary UIMode = iota // Program library and quick start
	UIModeSession               // Live session
	UIModeHistory               // Recorded sessions
)

// UIModeInfo contains display information for a UI mode
type UIModeInfo struct {
	Mode        UIMode
	DisplayName string
	KeyBinding  rune // The number key to activate this mode (1-9)
}

// AllUIModes defines all available UI modes in order
var AllUIModes = []UIModeInfo{
	{Mode: UIModeLibrary, DisplayName: "Library", KeyBinding: '1'},
	{Mode: UIModeSession, DisplayName: "Session", KeyBinding: '2'},
	{Mode: UIModeHistory, DisplayName: "History", KeyBinding: '3'},
}

// GetUIModeByKey returns the mode for a given key binding
func GetUIModeByKey(key rune) (UIMode, bool) {
	for _, info := range AllUIModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeInfo returns the info for a given mode
func GetUIModeInfo(mode UIMode) (UIModeInfo, bool) {
	for _, info := range AllUIModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return UIModeInfo{}, false
}

// HistoryWindow limits the history page to recent days
type HistoryWindow int

const (
	HistoryAll HistoryWindow = iota
	HistoryWeek
	HistoryMonth
)

var historyWindows = []struct {
	window HistoryWindow
	name   string
	days   int
}{
	{HistoryAll, "All time", 0},
	{HistoryWeek, "Last 7 days", 7},
	{HistoryMonth, "Last 30 days", 30},
}

func (w HistoryWindow) String() string {
	for _, hw := range historyWindows {
		if hw.window == w {
			return hw.name
		}
	}
	return "Unknown"
}

// Days returns how many days back the window reaches, 0 for no limit
func (w HistoryWindow) Days() int {
	for _, hw := range historyWindows {
		if hw.window == w {
			return hw.days
		}
	}
	return 0
}

// Next cycles to the following window
func (w HistoryWindow) Next() HistoryWindow {
	return HistoryWindow((int(w) + 1) % len(historyWindows))
}

var blockTypeLabels = map[workout.BlockType]string{
	workout.BlockWarmup:      "Warmup",
	workout.BlockWork:        "Work",
	workout.BlockRecover:     "Recover",
	workout.BlockCooldown:    "Cooldown",
	workout.BlockRampUp:      "Ramp Up",
	workout.BlockRampDown:    "Ramp Down",
	workout.BlockRepeatGroup: "Repeat",
}

// BlockTypeLabel returns the display name of a block type
func BlockTypeLabel(t workout.BlockType) string {
	if label, ok := blockTypeLabels[t]; ok {
		return label
	}
	return string(t)
}
