package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/playback"
	"github.com/desertthunder/storyx/internal/shared"
	"github.com/desertthunder/storyx/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// newSequencer builds a Sequencer from the playback settings.
func (r *Runner) newSequencer() *playback.Sequencer {
	cfg := r.Config().Playback
	return playback.NewSequencer(playback.Options{
		Clock:         playback.NewTickerClock(cfg.TickResolution()),
		ImageDuration: cfg.ImageDuration(),
		Logger:        shared.WithLogger(r.logger, "component", "sequencer"),
	})
}

// Play opens a session over the stored feed. The viewer runs when stdout is a terminal; otherwise
// one line is printed per transition until the session closes.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	groups, report, err := r.loadGroups(nil)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: %d stories dropped while grouping", shared.ErrEmptyFeed, len(report.Dropped))
	}

	authorIndex, itemIndex := playback.Locate(groups, cmd.String("author"), cmd.String("item"))

	if cmd.Bool("headless") || !isTerminal(r.output) {
		seq := r.newSequencer()
		defer seq.Close()
		return playHeadless(ctx, seq, groups, authorIndex, itemIndex, r.output, r.logger)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.Config().Playback.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	seq := r.newSequencer()
	seq.OpenGroups(groups, authorIndex, itemIndex)

	model := ui.NewModel(ctx, seq, ui.Options{Logger: shared.WithLogger(fileLogger, "component", "viewer")})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// headlessBuffer is how many transitions may wait for the writer before new ones are dropped.
const headlessBuffer = 64

// headlessPrinter queues one snapshot per position or status change for the headless writer.
//
// offer runs on the sequencer's drainer, which may be the goroutine reading lines, so it never blocks.
type headlessPrinter struct {
	lines   chan playback.Snapshot
	closed  chan struct{}
	once    sync.Once
	last    string
	dropped atomic.Int64
}

func newHeadlessPrinter(size int) *headlessPrinter {
	return &headlessPrinter{
		lines:  make(chan playback.Snapshot, size),
		closed: make(chan struct{}),
	}
}

// offer queues s unless it repeats the previous position. Callbacks are delivered one at a time,
// so last needs no lock.
func (p *headlessPrinter) offer(s playback.Snapshot) {
	key := fmt.Sprintf("%s/%d/%d", s.Status, s.AuthorIndex, s.ItemIndex)
	if key == p.last {
		return
	}
	p.last = key

	select {
	case p.lines <- s:
	default:
		p.dropped.Add(1)
	}
	if s.Closed {
		p.once.Do(func() { close(p.closed) })
	}
}

// flush writes every queued line and reports how many transitions were dropped.
func (p *headlessPrinter) flush(groups []models.AuthorGroup, w io.Writer, logger *log.Logger) {
	for {
		select {
		case s := <-p.lines:
			fmt.Fprintln(w, describeSnapshot(s, groups))
		default:
			if n := p.dropped.Load(); n > 0 {
				logger.Warn("headless output fell behind; transitions were not printed", "dropped", n)
			}
			return
		}
	}
}

// playHeadless opens seq over groups and writes a line per position or status change to w.
// It returns once the session closes, closing it first if ctx ends.
func playHeadless(ctx context.Context, seq *playback.Sequencer, groups []models.AuthorGroup, authorIndex, itemIndex int, w io.Writer, logger *log.Logger) error {
	printer := newHeadlessPrinter(headlessBuffer)
	unsubscribe := seq.Subscribe(printer.offer)
	defer unsubscribe()

	seq.OpenGroups(groups, authorIndex, itemIndex)

	for {
		select {
		case s := <-printer.lines:
			fmt.Fprintln(w, describeSnapshot(s, groups))
		case <-ctx.Done():
			seq.Close()
			<-printer.closed
			printer.flush(groups, w, logger)
			return nil
		case <-printer.closed:
			printer.flush(groups, w, logger)
			return nil
		}
	}
}

// describeSnapshot renders one status line, e.g. "▶ [1/2] @alice story 2/3 image https://...".
func describeSnapshot(s playback.Snapshot, groups []models.AuthorGroup) string {
	if s.Closed {
		return "■ closed"
	}
	if s.AuthorIndex >= len(groups) || s.ItemIndex >= len(groups[s.AuthorIndex].Items) {
		return fmt.Sprintf("? %s", s.Status)
	}

	icon := "▶"
	if s.Paused {
		icon = "❚❚"
	}

	group := groups[s.AuthorIndex]
	item := group.Items[s.ItemIndex]
	return fmt.Sprintf("%s [%d/%d] @%s story %d/%d %s %s",
		icon, s.AuthorIndex+1, len(groups), group.Author.Handle(), s.ItemIndex+1, len(group.Items), item.Kind(), item.URL())
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
