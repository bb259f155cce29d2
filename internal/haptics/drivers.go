package haptics

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// LogDriver writes every pulse to a logger
type LogDriver struct {
	Logger *log.Logger
}

func (d LogDriver) Pulse(sig Signal, intensity Intensity) error {
	d.Logger.Printf("Haptics: %s (%s)", sig, intensity)
	return nil
}

// BellDriver rings the terminal bell. Low intensity only rings for
// segment changes and the end of a session.
type BellDriver struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellDriver(w io.Writer) *BellDriver {
	return &BellDriver{w: w}
}

func (d *BellDriver) Pulse(sig Signal, intensity Intensity) error {
	if intensity == IntensityLow && (sig == SignalTap || sig == SignalWarning) {
		return nil
	}
	bells := 1
	if sig == SignalSuccess || (sig == SignalBlockChange && intensity == IntensityHigh) {
		bells = 2
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < bells; i++ {
		if _, err := io.WriteString(d.w, "\a"); err != nil {
			return fmt.Errorf("ringing bell: %w", err)
		}
	}
	return nil
}
