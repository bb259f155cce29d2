package repository

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/safego"
	"github.com/lowaak/cadence-timer/internal/workout"
)

// EndSource publishes a summary whenever a session ends
type EndSource interface {
	ListenToEnd(ch chan<- runner.Summary) func()
}

// SessionRecorder appends a Session to the history for every ended session
type SessionRecorder struct {
	sessions *SessionRepository
	haptics  runner.Haptics
	logger   *log.Logger

	summaryChan  chan runner.Summary
	unregister   func()
	recordedChan chan workout.Session
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewSessionRecorder(source EndSource, sessions *SessionRepository, h runner.Haptics, logger *log.Logger) *SessionRecorder {
	if source == nil || sessions == nil || h == nil {
		panic("SessionRecorder: source, sessions and haptics are required")
	}
	if logger == nil {
		panic("SessionRecorder: logger cannot be nil")
	}
	rec := &SessionRecorder{
		sessions:     sessions,
		haptics:      h,
		logger:       logger,
		summaryChan:  make(chan runner.Summary, 4),
		recordedChan: make(chan workout.Session, 4),
		doneChan:     make(chan struct{}),
	}
	rec.unregister = source.ListenToEnd(rec.summaryChan)

	rec.wg.Add(1)
	safego.Go(logger, "session recorder", rec.run)
	return rec
}

// Recorded delivers each session after it was saved. Sends are dropped when
// nobody reads.
func (rec *SessionRecorder) Recorded() <-chan workout.Session {
	return rec.recordedChan
}

func (rec *SessionRecorder) run() {
	defer rec.wg.Done()
	for {
		select {
		case <-rec.doneChan:
			return
		case summary := <-rec.summaryChan:
			rec.record(summary)
		}
	}
}

func (rec *SessionRecorder) record(summary runner.Summary) {
	session := SessionFromSummary(summary)
	if err := rec.sessions.Add(session); err != nil {
		rec.logger.Printf("SessionRecorder: Failed to save session: %v", err)
		rec.haptics.Warning()
		return
	}
	rec.logger.Printf("SessionRecorder: Saved %q (%ds, completed=%v)", summary.Source.Name, session.TotalSec, summary.Completed)
	rec.haptics.Success()
	select {
	case rec.recordedChan <- session:
	default:
	}
}

// SessionFromSummary builds the history record of an ended session
func SessionFromSummary(summary runner.Summary) workout.Session {
	s := workout.Session{
		ID:        uuid.New(),
		Date:      summary.StartedAt,
		ProgramID: summary.Source.ProgramID,
		TotalSec:  summary.ElapsedSec,
		Blocks:    summary.Segments,
	}
	if s.Blocks == nil {
		s.Blocks = []workout.BlockLog{}
	}
	if summary.Source.Quick {
		name := summary.Source.Name
		s.QuickName = &name
	}
	return s
}

func (rec *SessionRecorder) Shutdown() {
	rec.shutdownOnce.Do(func() {
		rec.unregister()
		close(rec.doneChan)
		rec.wg.Wait()
	})
}
