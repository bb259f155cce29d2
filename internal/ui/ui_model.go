package ui

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/events"
	"github.com/lowaak/cadence-timer/internal/repository"
	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/safego"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// UIState holds the current state of the UI that views need to render
type UIState struct {
	Mode UIMode
}

// StateSource publishes runner states and beats
type StateSource interface {
	ListenToState(ch chan<- runner.State) func()
	ListenToBeats(ch chan<- runner.Beat) func()
}

// NewUIModelArgs holds the arguments for creating a new UIModel
type NewUIModelArgs struct {
	Runner   StateSource
	Programs *repository.ProgramRepository
	Sessions *repository.SessionRepository
	Settings *repository.SettingsRepository
	History  repository.History
	// Overrides adjusts stored settings before they are used, e.g. with
	// command line flags. Optional.
	Overrides func(repository.Settings) repository.Settings
	Now       func() time.Time
	LogChan   <-chan string
	Logger    *log.Logger
}

type UIModel struct {
	logEvent              *events.ChannelEvent[string]
	closeApplicationEvent *events.ChannelEvent[struct{}]
	uiStateEvent          *events.ChannelEvent[UIState]
	uiState               UIState
	libraryEvent          *events.ChannelEvent[LibraryState]
	library               LibraryState
	libraryTag            string
	libraryPrograms       []workout.Program // programs behind library.Programs, same order
	sessionEvent          *events.ChannelEvent[SessionView]
	session               runner.State
	historyEvent          *events.ChannelEvent[HistoryView]
	historyWindow         HistoryWindow
	settingsEvent         *events.ChannelEvent[repository.Settings]
	settings              repository.Settings
	pulseEvent            *events.CallbackEvent[runner.Beat]

	programs  *repository.ProgramRepository
	sessions  *repository.SessionRepository
	history   repository.History
	overrides func(repository.Settings) repository.Settings
	now       func() time.Time

	logLines  []string
	logMu     sync.RWMutex
	refreshMu sync.Mutex // serialises rebuilds so the last one wins
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *log.Logger
}

const maxLogLines = 1000

func NewUIModel(args NewUIModelArgs) *UIModel {
	if args.Logger == nil {
		panic("UIModel: logger cannot be nil")
	}
	if args.LogChan == nil {
		panic("UIModel: logChan cannot be nil")
	}
	if args.Runner == nil || args.Programs == nil || args.Sessions == nil || args.Settings == nil {
		panic("UIModel: runner and repositories cannot be nil")
	}
	overrides := args.Overrides
	if overrides == nil {
		overrides = func(s repository.Settings) repository.Settings { return s }
	}
	now := args.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	model := &UIModel{
		logEvent:              events.NewChannelEvent[string](false),
		closeApplicationEvent: events.NewChannelEvent[struct{}](true),
		uiStateEvent:          events.NewChannelEvent[UIState](true),
		uiState:               UIState{Mode: UIModeLibrary},
		libraryEvent:          events.NewChannelEvent[LibraryState](true),
		sessionEvent:          events.NewChannelEvent[SessionView](true),
		session:               runner.State{Status: runner.StatusIdle},
		historyEvent:          events.NewChannelEvent[HistoryView](true),
		settingsEvent:         events.NewChannelEvent[repository.Settings](true),
		pulseEvent:            events.NewCallbackEvent[runner.Beat](false),
		programs:              args.Programs,
		sessions:              args.Sessions,
		history:               args.History,
		overrides:             overrides,
		now:                   now,
		logLines:              make([]string, 0, maxLogLines),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                args.Logger,
	}

	// Repository listeners replay their current value, so every page is
	// populated before the view subscribes
	model.wg.Add(1)
	safego.Go(model.logger, "ui-model-settings", func() { model.listenToSettings(ctx, args.Settings) })

	model.wg.Add(1)
	safego.Go(model.logger, "ui-model-programs", func() { model.listenToPrograms(ctx) })

	model.wg.Add(1)
	safego.Go(model.logger, "ui-model-sessions", func() { model.listenToSessions(ctx) })

	model.wg.Add(1)
	safego.Go(model.logger, "ui-model-runner", func() { model.listenToRunner(ctx, args.Runner) })

	model.wg.Add(1)
	safego.Go(model.logger, "ui-model-beats", func() { model.listenToBeats(ctx, args.Runner) })

	// Read from the UI log channel and populate logLines
	model.wg.Add(1)
	safego.Go(model.logger, "ui-model-log", func() { model.readFromLogChannel(ctx, args.LogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *UIModel) Shutdown() {
	m.logger.Println("UIModel: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Println("UIModel: Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Listen(ch)
}

// ListenToCloseApplication registers a channel to receive close application signals
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeApplicationEvent.Listen(ch)
}

// RequestCloseApplication signals that the application should close
func (m *UIModel) RequestCloseApplication() {
	m.closeApplicationEvent.Notify(struct{}{})
}

// ListenToUIState registers a channel to receive UI state changes
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToUIState(ch chan<- UIState) func() {
	return m.uiStateEvent.Listen(ch)
}

// GetUIState returns the current UI state
func (m *UIModel) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiState
}

// SetMode updates the current UI mode and notifies listeners
func (m *UIModel) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Notify(state)
}

// ListenToLibrary registers a channel to receive library changes
func (m *UIModel) ListenToLibrary(ch chan<- LibraryState) func() {
	return m.libraryEvent.Listen(ch)
}

// GetLibrary returns the library as last published
func (m *UIModel) GetLibrary() LibraryState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.library
}

// GetProgram returns the program shown at index of the library list
func (m *UIModel) GetProgram(index int) (workout.Program, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.libraryPrograms) {
		return workout.Program{}, false
	}
	return m.libraryPrograms[index], true
}

// SetLibraryTag narrows the library to programs carrying tag, or shows every
// program when tag is empty
func (m *UIModel) SetLibraryTag(tag string) {
	m.mu.Lock()
	m.libraryTag = tag
	m.mu.Unlock()
	m.refreshLibrary()
}

// ListenToSession registers a channel to receive the formatted session
func (m *UIModel) ListenToSession(ch chan<- SessionView) func() {
	return m.sessionEvent.Listen(ch)
}

// GetSessionState returns the last runner state received
func (m *UIModel) GetSessionState() runner.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// ListenToHistory registers a channel to receive history changes
func (m *UIModel) ListenToHistory(ch chan<- HistoryView) func() {
	return m.historyEvent.Listen(ch)
}

// GetHistoryWindow returns the active history window
func (m *UIModel) GetHistoryWindow() HistoryWindow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.historyWindow
}

// SetHistoryWindow changes the days shown on the history page
func (m *UIModel) SetHistoryWindow(window HistoryWindow) {
	m.mu.Lock()
	m.historyWindow = window
	m.mu.Unlock()
	m.refreshHistory()
}

// ListenToSettings registers a channel to receive the effective settings
func (m *UIModel) ListenToSettings(ch chan<- repository.Settings) func() {
	return m.settingsEvent.Listen(ch)
}

// GetSettings returns the effective settings, stored values with overrides
// applied
func (m *UIModel) GetSettings() repository.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// OnPulse registers a callback for beats while the visual pulse is enabled
func (m *UIModel) OnPulse(callback func(runner.Beat)) func() {
	return m.pulseEvent.Listen(callback)
}

// GetLogTail returns the last n log lines (or all if n >= len)
func (m *UIModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return nil
	}
	if n >= len(m.logLines) {
		result := make([]string, len(m.logLines))
		copy(result, m.logLines)
		return result
	}
	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}

func (m *UIModel) refreshLibrary() {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.RLock()
	tag := m.libraryTag
	settings := m.settings
	m.mu.RUnlock()

	programs := m.programs.Filter("", tag)
	items := make([]ProgramItem, 0, len(programs))
	for _, p := range programs {
		items = append(items, NewProgramItem(p))
	}

	m.mu.Lock()
	m.libraryPrograms = programs
	m.library = LibraryState{
		Programs:         items,
		Tag:              tag,
		HapticsEnabled:   settings.HapticsEnabled,
		HapticsIntensity: settings.HapticsIntensity,
		PrivacyPending:   settings.PrivacyAcceptedAt == nil,
	}
	library := m.library
	m.mu.Unlock()

	m.libraryEvent.Notify(library)
}

func (m *UIModel) refreshHistory() {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.RLock()
	window := m.historyWindow
	m.mu.RUnlock()

	names := make(map[uuid.UUID]string)
	for _, p := range m.programs.All() {
		names[p.ID] = p.Name
	}
	m.historyEvent.Notify(NewHistoryView(m.history, m.sessions.All(), names, window, m.now()))
}

func (m *UIModel) listenToSettings(ctx context.Context, repo *repository.SettingsRepository) {
	defer m.wg.Done()

	ch := make(chan repository.Settings, 1)
	unregister := repo.ListenToChanges(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case stored, ok := <-ch:
			if !ok {
				return
			}
			effective := m.overrides(stored)
			m.mu.Lock()
			m.settings = effective
			m.mu.Unlock()

			m.settingsEvent.Notify(effective)
			m.refreshLibrary()
		}
	}
}

func (m *UIModel) listenToPrograms(ctx context.Context) {
	defer m.wg.Done()

	ch := make(chan []workout.Program, 1)
	unregister := m.programs.ListenToChanges(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			m.refreshLibrary()
			// history shows program names
			m.refreshHistory()
		}
	}
}

func (m *UIModel) listenToSessions(ctx context.Context) {
	defer m.wg.Done()

	ch := make(chan []workout.Session, 1)
	unregister := m.sessions.ListenToChanges(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			m.refreshHistory()
		}
	}
}

func (m *UIModel) listenToRunner(ctx context.Context, source StateSource) {
	defer m.wg.Done()

	ch := make(chan runner.State, 1)
	unregister := source.ListenToState(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			m.mu.Lock()
			m.session = state
			m.mu.Unlock()

			m.sessionEvent.Notify(NewSessionView(state))
		}
	}
}

func (m *UIModel) listenToBeats(ctx context.Context, source StateSource) {
	defer m.wg.Done()

	ch := make(chan runner.Beat, 1)
	unregister := source.ListenToBeats(ch)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case beat, ok := <-ch:
			if !ok {
				return
			}
			if m.GetSettings().VisualPulseEnabled {
				m.pulseEvent.Notify(beat)
			}
		}
	}
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *UIModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				// Channel closed
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			m.logEvent.Notify(line)
		}
	}
}

// LogWriter forwards each log line to the channel read by the model. Lines
// are dropped while the channel is full.
type LogWriter struct {
	ch chan<- string
}

func NewLogWriter(ch chan<- string) *LogWriter {
	return &LogWriter{ch: ch}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	select {
	case w.ch <- string(p):
	default:
	}
	return len(p), nil
}
