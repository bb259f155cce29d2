// Package console runs a single session without the full screen UI, drawing
// its progress with terminal progress bars.
package console

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/lowaak/cadence-timer/internal/format"
	"github.com/lowaak/cadence-timer/internal/runner"
	"github.com/lowaak/cadence-timer/internal/workout"
)

const refreshRate = 100 * time.Millisecond

// Session is the part of the runner the console drives
type Session interface {
	StartBlocks(blocks []workout.Block, source runner.Source) error
	End() runner.State
	ListenToState(ch chan<- runner.State) func()
	ListenToEnd(ch chan<- runner.Summary) func()
}

type Console struct {
	session Session
	out     io.Writer
	logger  *log.Logger
}

func New(session Session, out io.Writer, logger *log.Logger) *Console {
	if session == nil {
		panic("Console: session cannot be nil")
	}
	if logger == nil {
		panic("Console: logger cannot be nil")
	}
	return &Console{session: session, out: out, logger: logger}
}

// Run starts blocks and draws the session until it ends. Cancelling ctx ends
// the session early; its summary is still returned.
func (c *Console) Run(ctx context.Context, blocks []workout.Block, source runner.Source) (runner.Summary, error) {
	states := make(chan runner.State, 16)
	defer c.session.ListenToState(states)()
	ends := make(chan runner.Summary, 1)
	defer c.session.ListenToEnd(ends)()

	if err := c.session.StartBlocks(blocks, source); err != nil {
		return runner.Summary{}, err
	}

	p := mpb.New(mpb.WithOutput(c.out), mpb.WithWidth(64), mpb.WithRefreshRate(refreshRate))
	bars := newSessionBars(p, source.Name)

	cancelled := ctx.Done()
	for {
		select {
		case <-cancelled:
			c.logger.Printf("Console: Interrupted, ending %q", source.Name)
			cancelled = nil
			c.session.End()
		case s := <-states:
			bars.update(s)
		case summary := <-ends:
			bars.finish(summary)
			p.Wait()
			fmt.Fprintf(c.out, "%s: %s of %s, %d segments\n",
				outcome(summary), format.Time(summary.ElapsedSec), format.Time(summary.TotalSec), len(summary.Segments))
			return summary, nil
		}
	}
}

func outcome(s runner.Summary) string {
	if s.Completed {
		return "Completed"
	}
	return "Ended early"
}

// sessionBars is a whole-session bar above a bar for the current segment
type sessionBars struct {
	total   *mpb.Bar
	segment *mpb.Bar
	label   atomic.Value // string shown before the segment bar
	index   int
	started bool
}

func newSessionBars(p *mpb.Progress, name string) *sessionBars {
	b := &sessionBars{index: -1}
	b.label.Store("Starting")

	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	b.total = p.New(0,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.Any(func(s decor.Statistics) string {
				return format.Time(int(s.Current)) + " / " + format.Time(int(s.Total))
			}, decor.WC{W: 14}),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "Done"),
		),
	)
	b.segment = p.New(0,
		barStyle,
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				return b.label.Load().(string)
			}, decor.WC{W: 32, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Any(func(s decor.Statistics) string {
				return format.Time(int(s.Total-s.Current)) + " left"
			}),
		),
	)
	return b
}

func (b *sessionBars) update(s runner.State) {
	if s.Current == nil || s.Status == runner.StatusIdle {
		return
	}
	if !b.started {
		b.total.SetTotal(int64(s.TotalSec), false)
		b.started = true
	}
	b.total.SetCurrent(int64(s.ElapsedSec))

	cur := s.Current
	if s.CurrentIndex != b.index {
		b.index = s.CurrentIndex
		b.segment.SetTotal(int64(cur.DurationSec()), false)
	}
	b.segment.SetCurrent(int64(max(0, s.ElapsedSec-cur.StartSec)))

	label := fmt.Sprintf("%d/%d %s %s", s.CurrentIndex+1, len(s.Timeline), cur.Type, format.SPM(s.CurrentSPM))
	switch {
	case s.CountdownSec > 0:
		label = fmt.Sprintf("Starting in %d", s.CountdownSec)
	case s.Status == runner.StatusPaused:
		label += " (paused)"
	}
	b.label.Store(label)
}

func (b *sessionBars) finish(summary runner.Summary) {
	b.label.Store(outcome(summary))
	b.total.SetCurrent(int64(summary.ElapsedSec))
	b.total.SetTotal(-1, true)
	b.segment.SetTotal(-1, true)
}
