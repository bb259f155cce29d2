package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/cadence-timer/internal/haptics"
	"github.com/lowaak/cadence-timer/internal/storage"
	"github.com/lowaak/cadence-timer/internal/tempo"
)

func load(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	var out bytes.Buffer
	return Load(args, &out)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t, "--data-dir", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, storage.BackendFile, cfg.Store)
	assert.Equal(t, filepath.Join(dir, "cadence-timer.log"), cfg.Log.File)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 15*time.Second, cfg.Haptics.BLETimeout)
	assert.Empty(t, cfg.ConfigFile)
	assert.False(t, cfg.RunsSession())

	// unset overrides leave the stored settings alone
	assert.Nil(t, cfg.Haptics.Enabled)
	assert.Nil(t, cfg.Haptics.Intensity)
	assert.Nil(t, cfg.Session.SeekStepSec)
	assert.Nil(t, cfg.Session.PreCountdownSec)

	assert.Equal(t, 600, cfg.Quick.DurationSec)
	assert.Equal(t, tempo.ModeFixed, cfg.Quick.Mode)
}

func TestLoad_FlagsOverride(t *testing.T) {
	cfg, err := load(t,
		"--data-dir", t.TempDir(),
		"--store", "sqlite",
		"--haptics=false",
		"--intensity", "high",
		"--seek-step", "15",
		"--pre-countdown", "0",
		"--program", "Tabata 8x20/10",
	)
	require.NoError(t, err)

	assert.Equal(t, storage.BackendSQLite, cfg.Store)
	require.NotNil(t, cfg.Haptics.Enabled)
	assert.False(t, *cfg.Haptics.Enabled)
	require.NotNil(t, cfg.Haptics.Intensity)
	assert.Equal(t, haptics.IntensityHigh, *cfg.Haptics.Intensity)
	assert.Equal(t, 15, *cfg.Session.SeekStepSec)
	assert.Equal(t, 0, *cfg.Session.PreCountdownSec)
	assert.True(t, cfg.RunsSession())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CADENCE_STORE", "sqlite")
	t.Setenv("CADENCE_SESSION_SEEK_STEP_SEC", "20")
	t.Setenv("CADENCE_HAPTICS_BLE_ADDRESS", "AA:BB:CC:DD:EE:FF")

	cfg, err := load(t, "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, storage.BackendSQLite, cfg.Store)
	require.NotNil(t, cfg.Session.SeekStepSec)
	assert.Equal(t, 20, *cfg.Session.SeekStepSec)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Haptics.BLEAddress)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
store: sqlite
log:
  max_backups: 7
haptics:
  intensity: low
session:
  pre_countdown_sec: 5
`), 0o644))

	cfg, err := load(t, "--data-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, file, cfg.ConfigFile)
	assert.Equal(t, storage.BackendSQLite, cfg.Store)
	assert.Equal(t, 7, cfg.Log.MaxBackups)
	assert.Equal(t, haptics.IntensityLow, *cfg.Haptics.Intensity)
	assert.Equal(t, 5, *cfg.Session.PreCountdownSec)

	// flags win over the file
	cfg, err = load(t, "--data-dir", dir, "--pre-countdown", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, *cfg.Session.PreCountdownSec)
}

func TestLoad_ExplicitConfigFileMustExist(t *testing.T) {
	_, err := load(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]string{
		"store":         {"--store", "postgres"},
		"seek step":     {"--seek-step", "0"},
		"pre-countdown": {"--pre-countdown", "-1"},
		"intensity":     {"--intensity", "max"},
		"quick mode":    {"--quick", "--quick-mode", "tempo"},
		"quick+program": {"--quick", "--program", "Tabata"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, append([]string{"--data-dir", dir}, args...)...)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := Load([]string{"--help"}, &out)
	assert.ErrorIs(t, err, ErrHelp)
	assert.Contains(t, out.String(), "--seek-step")
}
