package ui

import (
	"fmt"
	"log"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lowaak/cadence-timer/internal/format"
	"github.com/lowaak/cadence-timer/internal/runner"
)

// Page names for tview.Pages
const (
	pageLibrary = "library"
	pageSession = "session"
	pageHistory = "history"
)

const progressBarWidth = 30

// CursesUIViewImpl implements UIViewImpl using tview (curses-based terminal UI)
type CursesUIViewImpl struct {
	logger      *log.Logger
	app         *tview.Application
	model       *UIModel
	currentMode UIMode

	// Root container that holds all pages
	pages *tview.Pages

	// Shared components (visible in all modes)
	logView  *tview.TextView
	mainFlex *tview.Flex // Main layout: mode content on left, logs on right

	// Library mode components
	libraryFlex       *tview.Flex
	libraryTabWidgets []*tview.Box
	programList       *tview.List
	programDetails    *tview.TextView
	libraryStatus     *tview.TextView
	library           LibraryState

	// Session mode components
	sessionFlex  *tview.Flex
	sessionPanel *tview.TextView
	session      SessionView
	pulseOn      bool

	// History mode components
	historyFlex  *tview.Flex
	historyPanel *tview.TextView
}

func NewCursesUIView(logger *log.Logger, app *tview.Application, model *UIModel) *CursesUIViewImpl {
	return &CursesUIViewImpl{
		logger:      logger,
		app:         app,
		model:       model,
		currentMode: UIModeLibrary,
		session:     NewSessionView(runner.State{Status: runner.StatusIdle}),
	}
}

// Initialize sets up the tview widgets
func (ui *CursesUIViewImpl) Initialize(controller *UIController) {
	// No SetChangedFunc with app.Draw() here: it hangs when log lines are
	// written after the app stopped. BaseUIView draws after every update.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.pages = tview.NewPages()

	ui.initLibraryMode(controller)
	ui.initSessionMode()
	ui.initHistoryMode()

	ui.pages.AddPage(pageLibrary, ui.libraryFlex, true, true)
	ui.pages.AddPage(pageSession, ui.sessionFlex, true, false)
	ui.pages.AddPage(pageHistory, ui.historyFlex, true, false)

	// Pages on the left, logs on the right
	ui.mainFlex = tview.NewFlex().
		AddItem(ui.pages, 0, 2, true).
		AddItem(ui.logView, 0, 1, false)

	ui.setFocusForCurrentMode()
}

func newInstructions(text string) *tview.TextView {
	instructions := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructions.SetText(text)
	return instructions
}

func (ui *CursesUIViewImpl) initLibraryMode(controller *UIController) {
	instructions := newInstructions("[yellow]Enter[white] Start  |  [yellow]Q[white] Quick Start  |  [yellow]D[white] Duplicate  |  [yellow]Del[white] Remove  |  [yellow]T[white] Tag Filter\n" +
		"[yellow]H[white] Haptics  |  [yellow]I[white] Intensity  |  [yellow]1[white] Library  |  [yellow]2[white] Session  |  [yellow]3[white] History")

	ui.programList = tview.NewList().
		ShowSecondaryText(true).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			ui.logger.Printf("UI: Program selected: index=%d, name=%s", index, mainText)
			controller.OnProgramSelected(index)
		}).
		SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			ui.updateProgramDetails(index)
		})
	ui.programList.SetBorder(true).SetTitle(" Programs ")

	ui.programDetails = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.programDetails.SetBorder(true).SetTitle(" Details ")
	ui.updateProgramDetails(-1)

	ui.libraryStatus = tview.NewTextView().SetDynamicColors(true)

	ui.libraryTabWidgets = append(ui.libraryTabWidgets, ui.programList.Box, ui.programDetails.Box)

	content := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.programList, 0, 1, true).
		AddItem(ui.programDetails, 0, 1, false)

	ui.libraryFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructions, 2, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(ui.libraryStatus, 2, 0, false)
}

func (ui *CursesUIViewImpl) initSessionMode() {
	instructions := newInstructions("[yellow]Space[white] Pause/Resume  |  [yellow]N[white] Skip  |  [yellow]←/→[white] Seek  |  [yellow]X[white] End  |  [yellow]Esc[white] End/Quit")

	ui.sessionPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.sessionPanel.SetBorder(true).SetTitle(" Session ")
	ui.renderSession()

	ui.sessionFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructions, 1, 0, false).
		AddItem(ui.sessionPanel, 0, 1, true)
}

func (ui *CursesUIViewImpl) initHistoryMode() {
	instructions := newInstructions("[yellow]W[white] Change Window  |  [yellow]1[white] Library  |  [yellow]2[white] Session")

	ui.historyPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	ui.historyPanel.SetBorder(true).SetTitle(" History ")

	ui.historyFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructions, 1, 0, false).
		AddItem(ui.historyPanel, 0, 1, true)
}

// SetLibrary populates the program list, keeping the selection by name
func (ui *CursesUIViewImpl) SetLibrary(library LibraryState) {
	ui.library = library

	var selected string
	if current := ui.programList.GetCurrentItem(); current < ui.programList.GetItemCount() {
		selected, _ = ui.programList.GetItemText(current)
	}

	ui.programList.Clear()
	selectedIdx := -1
	for i, p := range library.Programs {
		if p.Name == selected {
			selectedIdx = i
		}
		secondary := format.Time(p.TotalSec)
		if len(p.Tags) > 0 {
			secondary += "  #" + strings.Join(p.Tags, " #")
		}
		ui.programList.AddItem(p.Name, secondary, 0, nil)
	}
	if selectedIdx > -1 {
		ui.programList.SetCurrentItem(selectedIdx)
	}
	ui.updateProgramDetails(ui.programList.GetCurrentItem())

	title := " Programs "
	if library.Tag != "" {
		title = fmt.Sprintf(" Programs #%s ", library.Tag)
	}
	ui.programList.SetTitle(title)

	haptics := "[gray]off[white]"
	if library.HapticsEnabled {
		haptics = fmt.Sprintf("[green]on[white] (%s)", library.HapticsIntensity)
	}
	status := fmt.Sprintf(" Haptics: %s", haptics)
	if library.PrivacyPending {
		status += "\n [yellow]Sessions are stored on this device only. Press A to accept.[white]"
	}
	ui.libraryStatus.SetText(status)
}

func (ui *CursesUIViewImpl) updateProgramDetails(index int) {
	if ui.programDetails == nil {
		return
	}

	var text string
	if index < 0 || index >= len(ui.library.Programs) {
		text = "\n\n  [yellow]Library[white]\n\n"
		text += "  Select a program from the list to view details.\n\n"
		text += "  [gray]Press Q for a quick start session.[white]\n"
	} else {
		p := ui.library.Programs[index]
		text = "\n"
		text += fmt.Sprintf("  [yellow]%s[white]\n\n", p.Name)
		text += fmt.Sprintf("  [gray]Duration:[white] %s\n", format.Time(p.TotalSec))
		if len(p.Tags) > 0 {
			text += fmt.Sprintf("  [gray]Tags:[white] %s\n", strings.Join(p.Tags, ", "))
		}
		text += "\n  [gray]Structure:[white]\n"
		for _, line := range p.Structure {
			text += fmt.Sprintf("    %s\n", line)
		}
		text += "\n  [green]Press Enter to start this program[white]\n"
	}
	ui.programDetails.SetText(text)
}

// UpdateSession updates the live session display
func (ui *CursesUIViewImpl) UpdateSession(view SessionView) {
	ui.session = view
	ui.renderSession()
}

// Pulse flips the beat marker shown next to the cadence
func (ui *CursesUIViewImpl) Pulse(beat runner.Beat) {
	ui.pulseOn = !ui.pulseOn
	ui.renderSession()
}

func (ui *CursesUIViewImpl) renderSession() {
	if ui.sessionPanel == nil {
		return
	}
	v := ui.session

	if v.Status == runner.StatusIdle {
		ui.sessionPanel.SetText("\n  [gray]No session running[white]\n\n  Go to the Library (press 1) to start a program.\n")
		return
	}

	text := "\n"
	switch v.Status {
	case runner.StatusPaused:
		text += fmt.Sprintf("  [yellow]%s[white] [gray](PAUSED)[white]\n\n", v.Name)
	case runner.StatusEnded:
		text += fmt.Sprintf("  [yellow]%s[white] [green](ENDED)[white]\n\n", v.Name)
	default:
		text += fmt.Sprintf("  [yellow]%s[white]\n\n", v.Name)
	}

	if v.CountdownSec > 0 {
		text += fmt.Sprintf("  [red]Starting in %d[white]\n\n", v.CountdownSec)
	}

	marker := " "
	if ui.pulseOn {
		marker = "[red]●[white]"
	}
	text += fmt.Sprintf("  [cyan]%s[white] (%s)\n", v.SegmentType, v.Segment)
	text += fmt.Sprintf("  [gray]Target:[white]    %s\n", v.Target)
	text += fmt.Sprintf("  [gray]Cadence:[white]   [yellow]%s[white] %s\n", v.CurrentSPM, marker)
	text += fmt.Sprintf("  [gray]Segment:[white]   %s left\n\n", v.SegmentRemaining)

	text += fmt.Sprintf("  [gray]Elapsed:[white]   %s / %s\n", v.Elapsed, v.Total)
	text += fmt.Sprintf("  [gray]Remaining:[white] %s\n", v.Remaining)
	text += fmt.Sprintf("  %s\n\n", progressBar(v.Progress, progressBarWidth))

	text += fmt.Sprintf("  [gray]Next:[white] %s\n", v.Next)
	ui.sessionPanel.SetText(text)
}

func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = min(width, max(0, filled))
	return "[green]" + strings.Repeat("█", filled) + "[gray]" + strings.Repeat("░", width-filled) + "[white]"
}

// SetHistory populates the history page
func (ui *CursesUIViewImpl) SetHistory(view HistoryView) {
	text := fmt.Sprintf("\n  [yellow]%s[white]\n", view.Window)
	text += fmt.Sprintf("  [gray]Sessions:[white] %d  [gray]Time:[white] %s  [gray]Avg RPE:[white] %s  [gray]In zone:[white] %s\n\n",
		view.Count, view.TotalTime, view.AverageRPE, view.AverageInZone)

	if len(view.Days) == 0 {
		text += "  [gray]No sessions recorded yet[white]\n"
	}
	for _, day := range view.Days {
		text += fmt.Sprintf("  [cyan]%s[white]\n", day.Title)
		for _, e := range day.Entries {
			text += fmt.Sprintf("    %s  %-24s %s  [gray]%s[white]\n", e.Time, e.Name, e.Duration, e.RPE)
		}
		text += "\n"
	}
	ui.historyPanel.SetText(text)
}

// SetMode switches the UI to the specified mode
func (ui *CursesUIViewImpl) SetMode(mode UIMode) {
	if ui.currentMode == mode {
		return
	}

	ui.currentMode = mode

	switch mode {
	case UIModeLibrary:
		ui.pages.SwitchToPage(pageLibrary)
	case UIModeSession:
		ui.pages.SwitchToPage(pageSession)
	case UIModeHistory:
		ui.pages.SwitchToPage(pageHistory)
	}

	ui.setFocusForCurrentMode()
	ui.app.Draw()
}

// GetCurrentMode returns the currently active UI mode
func (ui *CursesUIViewImpl) GetCurrentMode() UIMode {
	return ui.currentMode
}

func (ui *CursesUIViewImpl) setFocusForCurrentMode() {
	switch ui.currentMode {
	case UIModeLibrary:
		ui.app.SetFocus(ui.programList)
	case UIModeSession:
		ui.app.SetFocus(ui.sessionPanel)
	case UIModeHistory:
		ui.app.SetFocus(ui.historyPanel)
	}
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesUIViewImpl) SetupKeyboardHandlers(controller *UIController) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			if mode, ok := GetUIModeByKey(event.Rune()); ok {
				// The controller updates the model, which notifies us
				controller.OnModeChange(mode)
				return nil
			}
		}

		if event.Key() == tcell.KeyEscape {
			controller.OnEscapeKey()
			return nil
		}

		switch ui.currentMode {
		case UIModeLibrary:
			return ui.handleLibraryKey(controller, event)
		case UIModeSession:
			return ui.handleSessionKey(controller, event)
		case UIModeHistory:
			if event.Key() == tcell.KeyRune && event.Rune() == 'w' {
				controller.CycleHistoryWindow()
				return nil
			}
		}
		return event
	})
}

func (ui *CursesUIViewImpl) handleLibraryKey(controller *UIController, event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyTab {
		widgets := ui.libraryTabWidgets
		for i, w := range widgets {
			if w.HasFocus() {
				ui.app.SetFocus(widgets[(i+1)%len(widgets)])
				break
			}
		}
		return nil
	}
	if event.Key() == tcell.KeyDelete {
		controller.RemoveProgram(ui.programList.GetCurrentItem())
		return nil
	}
	if event.Key() != tcell.KeyRune {
		return event
	}
	switch event.Rune() {
	case 'q':
		controller.QuickStart()
	case 'd':
		controller.DuplicateProgram(ui.programList.GetCurrentItem())
	case 't':
		controller.CycleTagFilter()
	case 'h':
		controller.ToggleHaptics()
	case 'i':
		controller.CycleIntensity()
	case 'a':
		controller.AcceptPrivacy()
	default:
		return event
	}
	return nil
}

func (ui *CursesUIViewImpl) handleSessionKey(controller *UIController, event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		controller.SeekBackward()
		return nil
	case tcell.KeyRight:
		controller.SeekForward()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case ' ':
			controller.TogglePause()
		case 'n':
			controller.SkipSegment()
		case 'x':
			controller.EndSession()
		default:
			return event
		}
		return nil
	}
	return event
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesUIViewImpl) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesUIViewImpl) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesUIViewImpl) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, tview.Escape(line))
	return err
}

// Draw refreshes/redraws the UI
func (ui *CursesUIViewImpl) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *CursesUIViewImpl) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true)
	ui.setFocusForCurrentMode()
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesUIViewImpl) Stop() {
	ui.app.Stop()
}
