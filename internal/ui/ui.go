package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/playback"
	"github.com/desertthunder/storyx/internal/shared"
	"github.com/dustin/go-humanize"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ViewerView ViewState = iota
	PickerView
	ClosedView
)

// Options configures a [Model].
type Options struct {
	Logger  *log.Logger            // Defaults to a discarding logger; the terminal belongs to the TUI
	OpenURL func(url string) error // Defaults to [shared.OpenBrowser]
	Now     func() time.Time       // Clock for "posted ... ago" labels; defaults to time.Now
}

// Model is the stories viewer. It renders [playback.Snapshot] values from a [playback.Sequencer]
// and translates key presses into sequencer commands.
type Model struct {
	ctx         context.Context
	view        ViewState
	seq         *playback.Sequencer
	snapshot    playback.Snapshot
	updates     chan struct{}
	unsubscribe func()
	resumeAfter bool // Resume playback when the picker closes
	picker      list.Model
	width       int
	height      int
	status      string
	err         error
	help        help.Model
	keys        keyMap
	logger      *log.Logger
	openURL     func(string) error
	now         func() time.Time
}

// NewModel creates a viewer bound to seq. The sequencer should already be open.
func NewModel(ctx context.Context, seq *playback.Sequencer, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Model{
		ctx:      ctx,
		view:     ViewerView,
		seq:      seq,
		snapshot: seq.Snapshot(),
		updates:  make(chan struct{}, 1),
		help:     help.New(),
		keys:     newKeyMap(),
		logger:   opts.Logger,
		openURL:  opts.OpenURL,
		now:      opts.Now,
		width:    80,
	}

	// Notifications only mark the model dirty; the Update loop reads the latest snapshot itself so
	// a slow render never blocks the sequencer.
	m.unsubscribe = seq.Subscribe(func(playback.Snapshot) {
		select {
		case m.updates <- struct{}{}:
		default:
		}
	})

	if m.snapshot.Closed {
		m.view = ClosedView
	}
	return m
}

// Init starts listening for playback changes.
func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

// Close detaches the model from the sequencer and ends the session.
func (m *Model) Close() {
	m.unsubscribe()
	m.seq.Close()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == PickerView {
			m.picker.SetSize(msg.Width-4, msg.Height-4)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ViewerView:
			return m.handleViewerKeys(msg)
		case PickerView:
			return m.handlePickerKeys(msg)
		case ClosedView:
			return m, tea.Quit
		}

	case Msg:
		switch msg.kind {
		case MsgSnapshot:
			m.snapshot = msg.data.(playback.Snapshot)
			if m.snapshot.Closed {
				m.view = ClosedView
				m.unsubscribe()
				return m, tea.Quit
			}
			return m, m.waitForSnapshot()

		case MsgBrowserOpened:
			data := msg.data.(struct {
				url string
				err error
			})
			if data.err != nil {
				m.logger.Warn("failed to open story", "url", data.url, "error", data.err)
				m.err = fmt.Errorf("could not open %s: %w", data.url, data.err)
			} else {
				m.status = "opened in browser"
			}
			return m, nil
		}
	}

	if m.view == PickerView {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PickerView:
		return m.renderPicker()
	case ClosedView:
		return styles.help.Render("No more stories.")
	default:
		return m.renderViewer()
	}
}

func (m *Model) handleViewerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.quit):
		m.seq.Close()
		m.view = ClosedView
		m.unsubscribe()
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		m.seq.Next()
	case key.Matches(msg, m.keys.prev):
		m.seq.Prev()
	case key.Matches(msg, m.keys.pause):
		m.seq.TogglePause()
	case key.Matches(msg, m.keys.authors):
		m.openPicker()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.seq.Current(); ok {
			return m, m.openItem(item.URL())
		}
	}

	m.snapshot = m.seq.Snapshot()
	return m, nil
}

func (m *Model) handlePickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.closePicker()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.picker.SelectedItem().(authorItem); ok {
			if err := m.seq.JumpToAuthor(selected.group.Author.ID()); err != nil {
				m.logger.Warn("jump failed", "author", selected.group.Author.ID(), "error", err)
				m.err = err
			}
		}
		m.closePicker()
		return m, nil
	case msg.String() == "q" || msg.String() == "ctrl+c":
		m.closePicker()
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

// openPicker pauses playback and shows the author list positioned on the current author.
func (m *Model) openPicker() {
	groups := m.seq.Groups()
	if len(groups) == 0 {
		return
	}

	snap := m.seq.Snapshot()
	m.resumeAfter = snap.Status == playback.StatusPlaying
	m.seq.Pause()

	m.picker = list.New(authorItems(groups, snap.AuthorIndex), list.NewDefaultDelegate(), m.width-4, max(m.height-4, 10))
	m.picker.Title = "Authors"
	m.picker.Select(snap.AuthorIndex)
	m.view = PickerView
}

func (m *Model) closePicker() {
	m.view = ViewerView
	if m.resumeAfter {
		m.seq.Resume()
	}
	m.resumeAfter = false
	m.snapshot = m.seq.Snapshot()
}

// waitForSnapshot blocks until the sequencer reports a change, then reads the latest state.
func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return snapshotMsg(m.seq.Snapshot())
		case <-m.ctx.Done():
			return tea.QuitMsg{}
		}
	}
}

func (m *Model) openItem(url string) tea.Cmd {
	return func() tea.Msg {
		return browserOpenedMsg(url, m.openURL(url))
	}
}

func (m *Model) renderViewer() string {
	snap := m.snapshot
	groups := m.seq.Groups()
	if snap.AuthorIndex >= len(groups) {
		return styles.help.Render("Nothing to show.")
	}

	group := groups[snap.AuthorIndex]
	item := group.Items[snap.ItemIndex]

	var b strings.Builder
	b.WriteString(renderSegments(len(group.Items), snap.ItemIndex, snap.ElapsedRatio, m.width))
	b.WriteString("\n\n")

	b.WriteString(styles.title.Render(fmt.Sprintf("%s  @%s", group.Author.DisplayName(), group.Author.Handle())))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s\n", kindLabel(item), styles.help.Render("posted "+humanize.RelTime(item.CreatedAt(), m.now(), "ago", "from now")))
	fmt.Fprintf(&b, "%s\n", item.URL())
	fmt.Fprintf(&b, "%s\n\n", styles.help.Render(fmt.Sprintf("author %d/%d · story %d/%d", snap.AuthorIndex+1, snap.AuthorCount, snap.ItemIndex+1, snap.ItemCount)))

	if snap.Paused {
		b.WriteString(styles.warn.Render("❚❚ paused"))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(styles.ok.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderPicker() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	return fmt.Sprintf("%s\n\n%s", m.picker.View(), m.help.ShortHelpView(helpKeys))
}

func kindLabel(item models.MediaItem) string {
	if item.Kind() == models.KindVideo {
		if item.Duration() > 0 {
			return styles.ok.Render("▶ video " + shared.FormatDuration(item.Duration()))
		}
		return styles.ok.Render("▶ video")
	}
	return styles.ok.Render("■ image")
}

// renderSegments draws one bar segment per story: stories before current are full, current is filled
// to ratio, and later stories are empty. Segments share width, separated by single spaces.
func renderSegments(count, current int, ratio float64, width int) string {
	if count <= 0 {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	seg := (width - (count - 1)) / count
	if seg < 1 {
		seg = 1
	}
	ratio = min(max(ratio, 0), 1)

	parts := make([]string, count)
	for i := range count {
		filled := 0
		switch {
		case i < current:
			filled = seg
		case i == current:
			filled = int(ratio * float64(seg))
		}
		parts[i] = styles.filled.Render(strings.Repeat("━", filled)) + styles.empty.Render(strings.Repeat("─", seg-filled))
	}
	return strings.Join(parts, " ")
}
