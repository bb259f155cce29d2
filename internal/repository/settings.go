package repository

import (
	"log"
	"sync"
	"time"

	"github.com/lowaak/cadence-timer/internal/events"
	"github.com/lowaak/cadence-timer/internal/haptics"
	"github.com/lowaak/cadence-timer/internal/storage"
)

const settingsKey = "settings.json"

// Settings are the user preferences
type Settings struct {
	HapticsEnabled      bool              `json:"hapticsEnabled"`
	HapticsIntensity    haptics.Intensity `json:"hapticsIntensity"`
	VisualPulseEnabled  bool              `json:"visualPulseEnabled"`
	FrameWarningEnabled bool              `json:"frameWarningEnabled"`
	CompareTempoEnabled bool              `json:"compareTempoEnabled"`
	SeekStepSec         int               `json:"seekStepSec"`
	PreCountdownSec     int               `json:"preCountdownSec"`
	TempoUnits          string            `json:"tempoUnits"`
	PrivacyAcceptedAt   *time.Time        `json:"privacyAcceptedAt,omitempty"`
	AnalyticsEnabled    bool              `json:"analyticsEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		HapticsEnabled:      true,
		HapticsIntensity:    haptics.IntensityMedium,
		VisualPulseEnabled:  true,
		FrameWarningEnabled: true,
		CompareTempoEnabled: false,
		SeekStepSec:         10,
		PreCountdownSec:     3,
		TempoUnits:          "spm",
		AnalyticsEnabled:    false,
	}
}

// normalized replaces out of range values with their defaults
func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if _, err := haptics.ParseIntensity(string(s.HapticsIntensity)); err != nil {
		s.HapticsIntensity = d.HapticsIntensity
	}
	if s.SeekStepSec <= 0 {
		s.SeekStepSec = d.SeekStepSec
	}
	if s.PreCountdownSec < 0 {
		s.PreCountdownSec = d.PreCountdownSec
	}
	if s.TempoUnits == "" {
		s.TempoUnits = d.TempoUnits
	}
	return s
}

// ApplyTo pushes the haptic preferences to the engine
func (s Settings) ApplyTo(h *haptics.Engine) {
	h.Configure(s.HapticsEnabled, s.HapticsIntensity)
}

type SettingsRepository struct {
	store  storage.Store
	logger *log.Logger

	mu       sync.RWMutex
	settings Settings

	changedEvent *events.ChannelEvent[Settings]
}

// NewSettingsRepository loads the stored settings. Fields missing from the
// stored value keep their defaults.
func NewSettingsRepository(store storage.Store, logger *log.Logger) *SettingsRepository {
	if store == nil {
		panic("SettingsRepository: store cannot be nil")
	}
	if logger == nil {
		panic("SettingsRepository: logger cannot be nil")
	}
	s := DefaultSettings()
	if _, err := store.Load(settingsKey, &s); err != nil {
		logger.Printf("SettingsRepository: Using defaults, stored settings unreadable: %v", err)
		s = DefaultSettings()
	}
	r := &SettingsRepository{
		store:        store,
		logger:       logger,
		settings:     s.normalized(),
		changedEvent: events.NewChannelEvent[Settings](true),
	}
	r.changedEvent.Notify(r.settings)
	return r
}

func (r *SettingsRepository) Get() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Update applies fn to a copy of the settings and persists the result
func (r *SettingsRepository) Update(fn func(*Settings)) error {
	r.mu.Lock()
	next := r.settings
	fn(&next)
	next = next.normalized()
	if err := r.store.Save(settingsKey, next); err != nil {
		r.mu.Unlock()
		r.logger.Printf("SettingsRepository: Failed to save: %v", err)
		return err
	}
	r.settings = next
	r.mu.Unlock()

	r.changedEvent.Notify(next)
	return nil
}

// AcceptPrivacy records that the privacy notice was accepted at now
func (r *SettingsRepository) AcceptPrivacy(now time.Time) error {
	return r.Update(func(s *Settings) { s.PrivacyAcceptedAt = &now })
}

// ListenToChanges registers a channel receiving the settings after each change.
// The current settings are delivered on registration.
func (r *SettingsRepository) ListenToChanges(ch chan<- Settings) func() {
	return r.changedEvent.Listen(ch)
}
