package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/sunnify/internal/models"
	"github.com/desertthunder/sunnify/internal/shared"
	"github.com/desertthunder/sunnify/internal/tasks"
)

const recentTracks = 5

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	ProcessingView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	controller *tasks.Controller
	updates    <-chan tasks.Update
	attempt    int
	openURL    func(string) error
	width      int
	height     int
	input      textinput.Model
	progress   progress.Model
	trackList  list.Model
	snap       tasks.Snapshot
	toast      tasks.Notice
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model.
//
// updates must be the channel the controller publishes to.
func NewModel(ctx context.Context, controller *tasks.Controller, updates <-chan tasks.Update) *Model {
	input := textinput.New()
	input.Placeholder = "https://open.spotify.com/playlist/..."
	input.Prompt = "› "
	input.CharLimit = 512
	input.Width = 60
	input.Focus()

	trackList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	trackList.SetShowHelp(false)

	return &Model{
		ctx:        ctx,
		view:       InputView,
		controller: controller,
		updates:    updates,
		openURL:    shared.OpenBrowser,
		input:      input,
		progress:   progress.New(progress.WithDefaultGradient()),
		trackList:  trackList,
		snap:       controller.Snapshot(),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the cursor blink and begins listening for session updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-8, 10), 80)
		m.trackList.SetSize(max(msg.Width/2, 20), max(msg.Height-8, 5))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case ProcessingView:
			return m.handleProcessingKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionUpdate:
		u := msg.data.(tasks.Update)
		m.applySnapshot(u.Snapshot)
		if !u.Notice.IsZero() {
			m.toast = u.Notice
		}
		return m, m.waitForUpdate()

	case MsgProcessDone:
		done := msg.data.(processDone)
		if done.attempt != m.attempt {
			return m, nil
		}
		m.finish(done.err)
		return m, nil

	case MsgLinkOpened:
		data := msg.data.(struct {
			url string
			err error
		})
		if data.err != nil {
			m.toast = tasks.Notice{Level: tasks.NoticeError, Message: fmt.Sprintf("Could not open %s", data.url)}
		} else {
			m.toast = tasks.Notice{Level: tasks.NoticeInfo, Message: fmt.Sprintf("Opened %s", data.url)}
		}
		return m, nil
	}
	return m, nil
}

// applySnapshot stores snap and moves to the result view once the session completes.
func (m *Model) applySnapshot(snap tasks.Snapshot) {
	m.snap = snap
	if m.view == ProcessingView && snap.Status == tasks.StatusComplete {
		m.showResults()
	}
}

// finish reconciles the view with the controller after an attempt returns.
func (m *Model) finish(err error) {
	snap := m.controller.Snapshot()
	m.snap = snap

	switch {
	case errors.Is(err, tasks.ErrSessionBusy):
		m.toast = tasks.Notice{Level: tasks.NoticeWarning, Message: err.Error()}
	case errors.Is(err, tasks.ErrCancelled):
		m.view = InputView
	case snap.Status == tasks.StatusComplete:
		if m.view != ResultView {
			m.showResults()
		}
		if m.toast.Level != tasks.NoticeSuccess {
			m.toast = tasks.Notice{Level: tasks.NoticeSuccess, Message: fmt.Sprintf("Loaded %d tracks!", len(snap.Tracks))}
		}
	case err != nil:
		m.view = InputView
		m.input.Focus()
		m.toast = tasks.Notice{Level: tasks.NoticeError, Message: snap.ErrorMessage}
		if snap.ErrorMessage == "" {
			m.toast.Message = err.Error()
		}
	}
}

func (m *Model) showResults() {
	m.view = ResultView
	m.input.Blur()
	m.trackList.SetItems(trackItems(m.snap.Tracks))
	m.trackList.Title = m.snap.PlaylistName
	for i, t := range m.snap.Tracks {
		if t.ID == m.snap.SelectedID {
			m.trackList.Select(i)
			break
		}
	}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.forceQ), msg.Type == tea.KeyEsc:
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		raw := m.input.Value()
		m.toast = tasks.Notice{}
		m.view = ProcessingView
		return m, m.process(raw)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleProcessingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.controller.Cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.cancel):
		m.controller.Cancel()
		m.view = InputView
		m.input.Focus()
		m.snap = m.controller.Snapshot()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart), key.Matches(msg, m.keys.back):
		m.view = InputView
		m.input.Reset()
		m.input.Focus()
		m.toast = tasks.Notice{}
		return m, nil
	case key.Matches(msg, m.keys.open):
		return m, m.openSelected()
	case key.Matches(msg, m.keys.enter):
		m.selectHighlighted()
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	m.selectHighlighted()
	return m, cmd
}

// selectHighlighted forwards the list cursor to the controller as the selected track.
func (m *Model) selectHighlighted() {
	item, ok := m.trackList.SelectedItem().(trackItem)
	if !ok || item.track.ID == m.snap.SelectedID {
		return
	}
	if err := m.controller.SelectTrack(item.track.ID); err == nil {
		m.snap = m.controller.Snapshot()
	}
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case InputView:
		m.input, cmd = m.input.Update(msg)
	case ResultView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// process submits raw as a new attempt. Done messages from earlier attempts are ignored.
func (m *Model) process(raw string) tea.Cmd {
	m.attempt++
	attempt := m.attempt
	return func() tea.Msg {
		return processDoneMsg(attempt, m.controller.Process(m.ctx, raw))
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case u, ok := <-m.updates:
			if !ok {
				return nil
			}
			return sessionUpdateMsg(u)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// openSelected opens the selected track's download link, falling back to its cover.
func (m *Model) openSelected() tea.Cmd {
	track, ok := m.snap.Selected()
	if !ok {
		return nil
	}
	url := track.DownloadLink
	if url == "" {
		url = track.Cover
	}
	if url == "" {
		m.toast = tasks.Notice{Level: tasks.NoticeWarning, Message: "No link for this track"}
		return nil
	}

	open := m.openURL
	return func() tea.Msg {
		return linkOpenedMsg(url, open(url))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case InputView:
		body = m.renderInput()
	case ProcessingView:
		body = m.renderProcessing()
	case ResultView:
		body = m.renderResult()
	}

	if toast := styles.Notice(m.toast); toast != "" {
		body = fmt.Sprintf("%s\n\n%s", body, toast)
	}
	return body
}

func (m *Model) renderInput() string {
	title := styles.title.Render("Sunnify")
	prompt := "Paste a Spotify playlist or track URL"

	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "fetch"))
	quit := key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit"))
	helpView := m.help.ShortHelpView([]key.Binding{submit, quit})

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, prompt, m.input.View(), helpView)
}

func (m *Model) renderProcessing() string {
	title := styles.title.Render("Fetching Playlist")

	counts := fmt.Sprintf("%d tracks", m.snap.ProcessedCount)
	if m.snap.TotalKnown {
		counts = fmt.Sprintf("%d/%d tracks", m.snap.ProcessedCount, m.snap.TotalCount)
	}

	var recent []string
	start := max(len(m.snap.Tracks)-recentTracks, 0)
	for _, t := range m.snap.Tracks[start:] {
		recent = append(recent, fmt.Sprintf("  • %s", trackLine(t)))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel, m.keys.quit})

	return fmt.Sprintf("%s\n%s\n\n%s  %s\n\n%s\n\n%s",
		title,
		m.snap.StatusMessage,
		m.progress.ViewAs(float64(m.snap.ProgressPercent)/100),
		styles.help.Render(counts),
		strings.Join(recent, "\n"),
		helpView,
	)
}

func (m *Model) renderResult() string {
	detail := m.renderDetail()
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.open, m.keys.restart, m.keys.quit})

	return fmt.Sprintf("%s\n\n%s", lipgloss.JoinHorizontal(lipgloss.Top, m.trackList.View(), "  ", detail), helpView)
}

func (m *Model) renderDetail() string {
	track, ok := m.snap.Selected()
	if !ok {
		return styles.detail.Render(styles.help.Render("No track selected"))
	}

	rows := []string{styles.label.Render(track.Title)}
	for _, f := range []struct{ label, value string }{
		{"Artists", track.Artists},
		{"Album", track.Album},
		{"Released", track.ReleaseDate},
		{"Cover", track.Cover},
		{"Download", track.DownloadLink},
	} {
		if f.value != "" {
			rows = append(rows, fmt.Sprintf("%s %s", styles.help.Render(f.label+":"), shared.Truncate(f.value, 60)))
		}
	}
	return styles.detail.Render(strings.Join(rows, "\n"))
}

func trackLine(t models.Track) string {
	if t.Artists == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artists, t.Title)
}
