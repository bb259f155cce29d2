package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/tview"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/cadence-timer/internal/bt"
	"github.com/lowaak/cadence-timer/internal/config"
	"github.com/lowaak/cadence-timer/internal/console"
	"github.com/lowaak/cadence-timer/internal/format"
	"github.com/lowaak/cadence-timer/internal/haptics"
	"github.com/lowaak/cadence-timer/internal/logging"
	"github.com/lowaak/cadence-timer/internal/repository"
	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/storage"
	"github.com/lowaak/cadence-timer/internal/ui"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// recordTimeout bounds the wait for the last session to reach the history
// before a plain mode run exits
const recordTimeout = 2 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "cadence-timer:", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "cadence-timer:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	libraryOnly := cfg.List || cfg.Import != "" || cfg.Export != ""
	fullScreen := !libraryOnly && !cfg.RunsSession()

	uiLogChan := make(chan string, 256)
	logOpts := logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Stderr:     libraryOnly,
	}
	if fullScreen {
		logOpts.Extra = append(logOpts.Extra, ui.NewLogWriter(uiLogChan))
	}
	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logCloser.Close()
	logger.Printf("Main: Starting (data dir %s, %s store)", cfg.DataDir, cfg.Store)

	store, err := storage.Open(cfg.Store, cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	programs := repository.NewProgramRepository(store, logger, time.Now)
	sessions := repository.NewSessionRepository(store, logger)
	settings := repository.NewSettingsRepository(store, logger)

	if libraryOnly {
		return runLibraryCommands(cfg, programs, os.Stdout)
	}

	overrides := settingsOverrides(cfg)
	effective := overrides(settings.Get())

	drivers := []haptics.Driver{haptics.LogDriver{Logger: logger}}
	if !fullScreen {
		drivers = append(drivers, haptics.NewBellDriver(os.Stdout))
	}
	if cfg.Haptics.BLEAddress != "" {
		manager, alert, err := connectBand(context.Background(), cfg.Haptics, logger)
		if manager != nil {
			defer manager.Shutdown()
		}
		if err != nil {
			logger.Printf("Main: Continuing without band: %v", err)
		} else {
			drivers = append(drivers, alert)
		}
	}
	engine := haptics.NewEngine(logger, drivers...)
	defer engine.Shutdown()
	effective.ApplyTo(engine)

	sessionRunner := runner.NewRunner(engine, logger, runner.Options{PreCountdownSec: effective.PreCountdownSec})
	defer sessionRunner.Shutdown()

	recorder := repository.NewSessionRecorder(sessionRunner, sessions, engine, logger)
	defer recorder.Shutdown()

	quick := quickStart(cfg.Quick)
	if fullScreen {
		return runFullScreen(fullScreenDeps{
			runner:    sessionRunner,
			programs:  programs,
			sessions:  sessions,
			settings:  settings,
			haptics:   engine,
			overrides: overrides,
			quick:     quick,
			logChan:   uiLogChan,
			logger:    logger,
		})
	}

	blocks, source, err := plainSession(cfg, programs.All(), quick)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := console.New(sessionRunner, os.Stdout, logger).Run(ctx, blocks, source); err != nil {
		return err
	}
	select {
	case <-recorder.Recorded():
	case <-time.After(recordTimeout):
		logger.Printf("Main: Session was not recorded within %v", recordTimeout)
	}
	return nil
}

type fullScreenDeps struct {
	runner    *runner.Runner
	programs  *repository.ProgramRepository
	sessions  *repository.SessionRepository
	settings  *repository.SettingsRepository
	haptics   *haptics.Engine
	overrides func(repository.Settings) repository.Settings
	quick     workout.QuickStart
	logChan   chan string
	logger    *log.Logger
}

func runFullScreen(deps fullScreenDeps) error {
	app := tview.NewApplication()
	model := ui.NewUIModel(ui.NewUIModelArgs{
		Runner:    deps.runner,
		Programs:  deps.programs,
		Sessions:  deps.sessions,
		Settings:  deps.settings,
		Overrides: deps.overrides,
		LogChan:   deps.logChan,
		Logger:    deps.logger,
	})
	defer model.Shutdown()

	controller := ui.NewUIController(ui.NewUIControllerArgs{
		Model:    model,
		Runner:   deps.runner,
		Programs: deps.programs,
		Settings: deps.settings,
		Haptics:  deps.haptics,
		Quick:    deps.quick,
		Logger:   deps.logger,
	})
	defer controller.Shutdown()

	base := ui.NewBaseUIView(ui.NewBaseUIViewArg{
		UIViewImpl:   ui.NewCursesUIView(deps.logger, app, model),
		UIModel:      model,
		UIController: controller,
		Logger:       deps.logger,
	})
	defer base.Shutdown()

	return base.Run()
}

// connectBand finds, connects and wraps the configured band. The manager is
// returned whenever the adapter was enabled so the caller can shut it down.
func connectBand(ctx context.Context, cfg config.HapticsConfig, logger *log.Logger) (*bt.Manager, haptics.Driver, error) {
	manager := bt.NewManager(bluetooth.DefaultAdapter, logger)
	if err := manager.Enable(); err != nil {
		return nil, nil, err
	}
	dev, err := manager.Find(ctx, cfg.BLEAddress, cfg.BLETimeout)
	if err != nil {
		return manager, nil, err
	}
	if err := manager.Connect(dev); err != nil {
		return manager, nil, err
	}
	if err := dev.WaitForConnection(ctx, cfg.BLETimeout); err != nil {
		return manager, nil, err
	}
	logger.Printf("Main: Haptics band %s (%s) connected", dev.LocalName(), dev.Address())
	return manager, haptics.NewAlertDriver(dev), nil
}

// settingsOverrides applies the flags and environment values that were set
// explicitly on top of the stored settings
func settingsOverrides(cfg config.Config) func(repository.Settings) repository.Settings {
	return func(s repository.Settings) repository.Settings {
		if cfg.Haptics.Enabled != nil {
			s.HapticsEnabled = *cfg.Haptics.Enabled
		}
		if cfg.Haptics.Intensity != nil {
			s.HapticsIntensity = *cfg.Haptics.Intensity
		}
		if cfg.Session.SeekStepSec != nil {
			s.SeekStepSec = *cfg.Session.SeekStepSec
		}
		if cfg.Session.PreCountdownSec != nil {
			s.PreCountdownSec = *cfg.Session.PreCountdownSec
		}
		return s
	}
}

func quickStart(q config.QuickConfig) workout.QuickStart {
	return workout.QuickStart{
		DurationSec: q.DurationSec,
		Mode:        q.Mode,
		Fixed:       q.Fixed,
		Min:         q.Min,
		Max:         q.Max,
	}
}

// plainSession picks what a plain mode run starts: the named program, or the
// quick start when no program was given
func plainSession(cfg config.Config, programs []workout.Program, quick workout.QuickStart) ([]workout.Block, runner.Source, error) {
	if cfg.Program == "" {
		if err := quick.Validate(); err != nil {
			return nil, runner.Source{}, fmt.Errorf("quick start: %w", err)
		}
		return quick.Blocks(), runner.Source{Name: workout.QuickName, Quick: true}, nil
	}
	p, ok := findProgram(programs, cfg.Program)
	if !ok {
		return nil, runner.Source{}, fmt.Errorf("program %q: %w", cfg.Program, repository.ErrNotFound)
	}
	id := p.ID
	return p.Blocks, runner.Source{ProgramID: &id, Name: p.Name}, nil
}

// findProgram matches ref against program ids, then names ignoring case
func findProgram(programs []workout.Program, ref string) (workout.Program, bool) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		for _, p := range programs {
			if p.ID == id {
				return p, true
			}
		}
	}
	for _, p := range programs {
		if strings.EqualFold(p.Name, ref) {
			return p, true
		}
	}
	return workout.Program{}, false
}

// runLibraryCommands runs --import, --export and --list in that order
func runLibraryCommands(cfg config.Config, programs *repository.ProgramRepository, out io.Writer) error {
	if cfg.Import != "" {
		f, err := os.Open(cfg.Import)
		if err != nil {
			return err
		}
		imported, err := workout.ReadProgramsYAML(f, time.Now())
		f.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", cfg.Import, err)
		}
		if err := programs.Import(imported); err != nil {
			return fmt.Errorf("importing %s: %w", cfg.Import, err)
		}
		fmt.Fprintf(out, "Imported %d programs from %s\n", len(imported), cfg.Import)
	}

	if cfg.Export != "" {
		f, err := os.Create(cfg.Export)
		if err != nil {
			return err
		}
		if err := workout.WriteProgramsYAML(f, programs.All()); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", cfg.Export, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d programs to %s\n", len(programs.All()), cfg.Export)
	}

	if cfg.List {
		for _, p := range programs.All() {
			fmt.Fprintf(out, "%s  %-28s %s  %s\n", p.ID, p.Name, format.Time(programs.TotalDuration(p)), strings.Join(p.Tags, ","))
		}
	}
	return nil
}
