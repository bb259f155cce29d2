package ui

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/lowaak/cadence-timer/internal/haptics"
	"github.com/lowaak/cadence-timer/internal/repository"
	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/safego"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// SessionControl is the part of the runner the controller drives
type SessionControl interface {
	StartBlocks(blocks []workout.Block, source runner.Source) error
	TogglePause() runner.State
	Skip() runner.State
	Seek(deltaSec int) runner.State
	End() runner.State
	SetPreCountdown(sec int)
}

// HapticsConfigurer receives the haptic settings whenever they change
type HapticsConfigurer interface {
	Configure(enabled bool, intensity haptics.Intensity)
}

// NewUIControllerArgs holds the arguments for creating a new UIController
type NewUIControllerArgs struct {
	Model    *UIModel
	Runner   SessionControl
	Programs *repository.ProgramRepository
	Settings *repository.SettingsRepository
	Haptics  HapticsConfigurer
	Quick    workout.QuickStart
	Now      func() time.Time
	Logger   *log.Logger
}

// UIController handles user input and delegates to the runner and repositories
type UIController struct {
	model    *UIModel
	runner   SessionControl
	programs *repository.ProgramRepository
	settings *repository.SettingsRepository
	haptics  HapticsConfigurer
	quick    workout.QuickStart
	now      func() time.Time
	logger   *log.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewUIController(args NewUIControllerArgs) *UIController {
	if args.Model == nil {
		panic("UIController: model cannot be nil")
	}
	if args.Runner == nil {
		panic("UIController: runner cannot be nil")
	}
	if args.Programs == nil || args.Settings == nil {
		panic("UIController: repositories cannot be nil")
	}
	if args.Haptics == nil {
		panic("UIController: haptics cannot be nil")
	}
	if args.Logger == nil {
		panic("UIController: logger cannot be nil")
	}
	now := args.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &UIController{
		model:    args.Model,
		runner:   args.Runner,
		programs: args.Programs,
		settings: args.Settings,
		haptics:  args.Haptics,
		quick:    args.Quick,
		now:      now,
		logger:   args.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	c.wg.Add(1)
	safego.Go(c.logger, "ui-controller-settings", func() { c.listenToSettings() })

	return c
}

// Shutdown stops the controller goroutines
func (c *UIController) Shutdown() {
	c.cancel()
	c.wg.Wait()
}

// listenToSettings pushes the effective settings into haptics and the runner
func (c *UIController) listenToSettings() {
	defer c.wg.Done()

	ch := make(chan repository.Settings, 1)
	unregister := c.model.ListenToSettings(ch)
	defer unregister()

	for {
		select {
		case <-c.ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			c.haptics.Configure(s.HapticsEnabled, s.HapticsIntensity)
			c.runner.SetPreCountdown(s.PreCountdownSec)
		}
	}
}

// OnEscapeKey ends an active session, or closes the application when idle
func (c *UIController) OnEscapeKey() {
	if isActive(c.model.GetSessionState()) {
		c.EndSession()
		return
	}
	c.model.RequestCloseApplication()
}

func (c *UIController) OnModeChange(mode UIMode) {
	if info, ok := GetUIModeInfo(mode); ok {
		c.logger.Printf("Switching to %s mode", info.DisplayName)
	}
	c.model.SetMode(mode)
}

// OnProgramSelected starts the program at index of the library list
func (c *UIController) OnProgramSelected(index int) {
	program, ok := c.model.GetProgram(index)
	if !ok {
		c.logger.Printf("Invalid program index: %d", index)
		return
	}
	id := program.ID
	c.start(program.Blocks, runner.Source{ProgramID: &id, Name: program.Name})
}

// QuickStart runs the configured single block session
func (c *UIController) QuickStart() {
	if err := c.quick.Validate(); err != nil {
		c.logger.Printf("Quick start is not usable: %v", err)
		return
	}
	c.start(c.quick.Blocks(), runner.Source{Name: workout.QuickName, Quick: true})
}

func (c *UIController) start(blocks []workout.Block, source runner.Source) {
	if err := c.runner.StartBlocks(blocks, source); err != nil {
		c.logger.Printf("Cannot start %q: %v", source.Name, err)
		return
	}
	c.model.SetMode(UIModeSession)
}

func (c *UIController) TogglePause() {
	if !isActive(c.model.GetSessionState()) {
		c.logger.Printf("No session running - pick a program in the Library (press 1)")
		return
	}
	c.runner.TogglePause()
}

func (c *UIController) SkipSegment() {
	c.runner.Skip()
}

func (c *UIController) SeekForward() {
	c.runner.Seek(c.model.GetSettings().SeekStepSec)
}

func (c *UIController) SeekBackward() {
	c.runner.Seek(-c.model.GetSettings().SeekStepSec)
}

func (c *UIController) EndSession() {
	c.runner.End()
}

// DuplicateProgram copies the program at index of the library list
func (c *UIController) DuplicateProgram(index int) {
	program, ok := c.model.GetProgram(index)
	if !ok {
		return
	}
	if _, err := c.programs.Duplicate(program.ID); err != nil {
		c.logger.Printf("Duplicate failed: %v", err)
	}
}

// RemoveProgram deletes the program at index of the library list
func (c *UIController) RemoveProgram(index int) {
	program, ok := c.model.GetProgram(index)
	if !ok {
		return
	}
	if err := c.programs.Remove(program.ID); err != nil {
		c.logger.Printf("Remove failed: %v", err)
		return
	}
	c.logger.Printf("Removed program %q", program.Name)
}

// CycleTagFilter steps the library filter through every tag and back to all
func (c *UIController) CycleTagFilter() {
	tags := c.programs.Tags()
	current := c.model.GetLibrary().Tag
	next := ""
	if i := slices.Index(tags, current); current == "" && len(tags) > 0 {
		next = tags[0]
	} else if i >= 0 && i+1 < len(tags) {
		next = tags[i+1]
	}
	c.model.SetLibraryTag(next)
}

// CycleHistoryWindow steps the history page through its day windows
func (c *UIController) CycleHistoryWindow() {
	c.model.SetHistoryWindow(c.model.GetHistoryWindow().Next())
}

func (c *UIController) ToggleHaptics() {
	c.updateSettings(func(s *repository.Settings) { s.HapticsEnabled = !s.HapticsEnabled })
}

// CycleIntensity steps haptic intensity low, medium, high and around
func (c *UIController) CycleIntensity() {
	c.updateSettings(func(s *repository.Settings) {
		switch s.HapticsIntensity {
		case haptics.IntensityLow:
			s.HapticsIntensity = haptics.IntensityMedium
		case haptics.IntensityMedium:
			s.HapticsIntensity = haptics.IntensityHigh
		default:
			s.HapticsIntensity = haptics.IntensityLow
		}
	})
}

func (c *UIController) AcceptPrivacy() {
	if err := c.settings.AcceptPrivacy(c.now()); err != nil {
		c.logger.Printf("Saving privacy acceptance failed: %v", err)
	}
}

func (c *UIController) updateSettings(fn func(*repository.Settings)) {
	if err := c.settings.Update(fn); err != nil {
		c.logger.Printf("Saving settings failed: %v", err)
	}
}

func isActive(s runner.State) bool {
	return s.Status == runner.StatusRunning || s.Status == runner.StatusPaused
}
