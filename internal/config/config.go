// Package config resolves the process configuration from flags, environment
// variables (CADENCE_*) and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lowaak/cadence-timer/internal/haptics"
	"github.com/lowaak/cadence-timer/internal/storage"
	"github.com/lowaak/cadence-timer/internal/tempo"
)

// ErrHelp is returned when usage was requested
var ErrHelp = pflag.ErrHelp

const envPrefix = "CADENCE"

type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// HapticsConfig overrides the stored haptic settings when a field is non-nil
type HapticsConfig struct {
	Enabled    *bool
	Intensity  *haptics.Intensity
	BLEAddress string
	BLETimeout time.Duration
}

// SessionConfig overrides the stored session settings when a field is non-nil
type SessionConfig struct {
	SeekStepSec     *int
	PreCountdownSec *int
}

type QuickConfig struct {
	Enabled     bool
	DurationSec int
	Mode        tempo.Mode
	Fixed       int
	Min         int
	Max         int
}

type Config struct {
	ConfigFile string // empty when no file was read
	DataDir    string
	Store      string
	Log        LogConfig
	Haptics    HapticsConfig
	Session    SessionConfig
	Plain      bool
	Program    string
	Import     string
	Export     string
	List       bool
	Quick      QuickConfig
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cadence-timer")
}

func newFlagSet(out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("cadence-timer", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.String("config", "", "config file (default <data-dir>/config.yaml)")
	fs.String("data-dir", "", "directory for programs, sessions, settings and logs")
	fs.String("store", storage.BackendFile, "storage backend: file or sqlite")
	fs.String("log-file", "", "log file (default <data-dir>/cadence-timer.log)")
	fs.Bool("haptics", true, "enable haptic feedback")
	fs.String("intensity", string(haptics.IntensityMedium), "haptic intensity: low, medium or high")
	fs.String("ble", "", "address of a BLE band to vibrate through its Immediate Alert service")
	fs.Int("seek-step", 10, "seconds moved by one seek")
	fs.Int("pre-countdown", 3, "seconds counted down before a session starts")
	fs.Bool("plain", false, "run without the full screen UI")
	fs.String("program", "", "name or id of the program to run in plain mode")
	fs.String("import", "", "YAML file of programs to add to the library")
	fs.String("export", "", "write the program library to this YAML file")
	fs.Bool("list", false, "list the program library and exit")
	fs.Bool("quick", false, "run a quick start session in plain mode")
	fs.Int("quick-duration", 600, "quick start length in seconds")
	fs.String("quick-mode", string(tempo.ModeFixed), "quick start cadence: none, fixed or range")
	fs.Int("quick-spm", 170, "quick start fixed cadence")
	fs.Int("quick-min", 160, "quick start range minimum")
	fs.Int("quick-max", 180, "quick start range maximum")
	return fs
}

var flagKeys = map[string]string{
	"data-dir":       "data_dir",
	"store":          "store",
	"log-file":       "log.file",
	"haptics":        "haptics.enabled",
	"intensity":      "haptics.intensity",
	"ble":            "haptics.ble_address",
	"seek-step":      "session.seek_step_sec",
	"pre-countdown":  "session.pre_countdown_sec",
	"plain":          "ui.plain",
	"program":        "program",
	"import":         "import",
	"export":         "export",
	"list":           "list",
	"quick":          "quick.enabled",
	"quick-duration": "quick.duration_sec",
	"quick-mode":     "quick.mode",
	"quick-spm":      "quick.spm",
	"quick-min":      "quick.min",
	"quick-max":      "quick.max",
}

// Load parses args (without the program name) and resolves the configuration.
// Usage goes to out.
func Load(args []string, out io.Writer) (Config, error) {
	fs := newFlagSet(out)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("store", storage.BackendFile)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("haptics.ble_timeout", 15*time.Second)
	v.SetDefault("quick.duration_sec", 600)
	v.SetDefault("quick.mode", string(tempo.ModeFixed))
	v.SetDefault("quick.spm", 170)
	v.SetDefault("quick.min", 160)
	v.SetDefault("quick.max", 180)

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return Config{}, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile, _ := fs.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data_dir"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := Config{
		ConfigFile: v.ConfigFileUsed(),
		DataDir:    v.GetString("data_dir"),
		Store:      v.GetString("store"),
		Log: LogConfig{
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Haptics: HapticsConfig{
			BLEAddress: v.GetString("haptics.ble_address"),
			BLETimeout: v.GetDuration("haptics.ble_timeout"),
		},
		Plain:   v.GetBool("ui.plain"),
		Program: v.GetString("program"),
		Import:  v.GetString("import"),
		Export:  v.GetString("export"),
		List:    v.GetBool("list"),
		Quick: QuickConfig{
			Enabled:     v.GetBool("quick.enabled"),
			DurationSec: v.GetInt("quick.duration_sec"),
			Mode:        tempo.Mode(v.GetString("quick.mode")),
			Fixed:       v.GetInt("quick.spm"),
			Min:         v.GetInt("quick.min"),
			Max:         v.GetInt("quick.max"),
		},
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.DataDir, "cadence-timer.log")
	}

	// settings overrides only apply when given explicitly
	if v.IsSet("haptics.enabled") {
		enabled := v.GetBool("haptics.enabled")
		cfg.Haptics.Enabled = &enabled
	}
	if v.IsSet("haptics.intensity") {
		intensity, err := haptics.ParseIntensity(v.GetString("haptics.intensity"))
		if err != nil {
			return Config{}, err
		}
		cfg.Haptics.Intensity = &intensity
	}
	if v.IsSet("session.seek_step_sec") {
		step := v.GetInt("session.seek_step_sec")
		cfg.Session.SeekStepSec = &step
	}
	if v.IsSet("session.pre_countdown_sec") {
		pre := v.GetInt("session.pre_countdown_sec")
		cfg.Session.PreCountdownSec = &pre
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and conflicting options
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	if c.Store != storage.BackendFile && c.Store != storage.BackendSQLite {
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", storage.BackendFile, storage.BackendSQLite, c.Store))
	}
	if c.Log.MaxSizeMB <= 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation limits must be positive"))
	}
	if c.Session.SeekStepSec != nil && *c.Session.SeekStepSec <= 0 {
		errs = append(errs, fmt.Errorf("seek step must be positive, got %d", *c.Session.SeekStepSec))
	}
	if c.Session.PreCountdownSec != nil && *c.Session.PreCountdownSec < 0 {
		errs = append(errs, fmt.Errorf("pre-countdown cannot be negative, got %d", *c.Session.PreCountdownSec))
	}
	if c.Haptics.BLEAddress != "" && c.Haptics.BLETimeout <= 0 {
		errs = append(errs, errors.New("haptics.ble_timeout must be positive"))
	}
	if c.Quick.Enabled {
		if c.Program != "" {
			errs = append(errs, errors.New("--quick and --program are mutually exclusive"))
		}
		switch c.Quick.Mode {
		case tempo.ModeNone, tempo.ModeFixed, tempo.ModeRange:
		default:
			errs = append(errs, fmt.Errorf("unknown quick mode %q", c.Quick.Mode))
		}
	}
	return errors.Join(errs...)
}

// RunsSession reports whether the process should run one session in plain
// mode rather than open the full screen UI
func (c Config) RunsSession() bool {
	return c.Plain || c.Quick.Enabled || c.Program != ""
}
