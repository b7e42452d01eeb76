package ui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sunnify/internal/services"
	"github.com/desertthunder/sunnify/internal/tasks"
)

const completeBody = `{"event":"complete","data":{"playlistName":"Chill","tracks":[` +
	`{"id":"1","title":"Song A","artists":"Artist A","cover":"https://i.scdn.co/a"},` +
	`{"id":"2","title":"Song B","artists":"Artist B","downloadLink":"https://dl.example.com/b"}]}}`

func newTestModel(t *testing.T, body string) *Model {
	t.Helper()
	return newHandlerModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	})
}

func newHandlerModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	controller := tasks.NewController(tasks.ControllerOpts{Client: services.NewAPIService(server.URL, server.Client())})
	m := NewModel(context.Background(), controller, nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func submit(t *testing.T, m *Model, raw string) {
	t.Helper()
	m.input.SetValue(raw)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.view != ProcessingView {
		t.Fatalf("expected processing view after enter, got %d", m.view)
	}
	if cmd == nil {
		t.Fatal("expected a process command")
	}
	m.Update(cmd())
}

func TestModel(t *testing.T) {
	t.Run("Invalid URL Returns To Input", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		submit(t, m, "not a url")

		if m.view != InputView {
			t.Errorf("expected input view, got %d", m.view)
		}
		if m.toast.Level != tasks.NoticeError {
			t.Errorf("expected error toast, got %v", m.toast.Level)
		}
		if !strings.Contains(m.View(), "not a Spotify playlist or track url") {
			t.Errorf("expected error in view, got: %s", m.View())
		}
	})

	t.Run("Complete Shows Results", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		submit(t, m, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")

		if m.view != ResultView {
			t.Fatalf("expected result view, got %d", m.view)
		}
		if len(m.trackList.Items()) != 2 {
			t.Errorf("expected 2 list items, got %d", len(m.trackList.Items()))
		}
		if m.snap.SelectedID != "1" {
			t.Errorf("expected first track selected, got %q", m.snap.SelectedID)
		}
		if m.toast.Message != "Loaded 2 tracks!" {
			t.Errorf("expected success toast, got %q", m.toast.Message)
		}

		view := m.View()
		if !strings.Contains(view, "Song A") || !strings.Contains(view, "Artist A") {
			t.Errorf("expected track detail in view, got: %s", view)
		}
	})

	t.Run("Moving The Cursor Selects Track", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		submit(t, m, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")

		m.Update(tea.KeyMsg{Type: tea.KeyDown})

		if m.snap.SelectedID != "2" {
			t.Errorf("expected second track selected, got %q", m.snap.SelectedID)
		}
		if got := m.controller.Snapshot().SelectedID; got != "2" {
			t.Errorf("expected controller selection to follow, got %q", got)
		}
	})

	t.Run("Open Uses Download Link Then Cover", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		var opened []string
		m.openURL = func(url string) error {
			opened = append(opened, url)
			return nil
		}
		submit(t, m, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")

		open := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}}

		_, cmd := m.Update(open)
		if cmd == nil {
			t.Fatal("expected open command")
		}
		m.Update(cmd())

		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		_, cmd = m.Update(open)
		m.Update(cmd())

		want := []string{"https://i.scdn.co/a", "https://dl.example.com/b"}
		if strings.Join(opened, ",") != strings.Join(want, ",") {
			t.Errorf("expected opened %v, got %v", want, opened)
		}
		if m.toast.Level != tasks.NoticeInfo {
			t.Errorf("expected info toast, got %v", m.toast.Level)
		}
	})

	t.Run("Open Failure Shows Error", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		m.openURL = func(string) error { return errors.New("no browser") }
		submit(t, m, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})
		m.Update(cmd())

		if m.toast.Level != tasks.NoticeError {
			t.Errorf("expected error toast, got %v", m.toast.Level)
		}
	})

	t.Run("Restart Returns To Input", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		submit(t, m, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")

		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})

		if m.view != InputView {
			t.Errorf("expected input view, got %d", m.view)
		}
		if m.input.Value() != "" {
			t.Errorf("expected input to be cleared, got %q", m.input.Value())
		}
	})

	t.Run("Remote Error Returns To Input", func(t *testing.T) {
		m := newTestModel(t, `{"event":"error","data":{"message":"Playlist not found"}}`)
		submit(t, m, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")

		if m.view != InputView {
			t.Errorf("expected input view, got %d", m.view)
		}
		if m.toast.Message != "Playlist not found" {
			t.Errorf("expected remote message toast, got %q", m.toast.Message)
		}
	})

	t.Run("Session Update Advances View", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		m.view = ProcessingView

		m.Update(sessionUpdateMsg(tasks.Update{
			Snapshot: tasks.Snapshot{Status: tasks.StatusStreaming, StatusMessage: "Processing: Song A - Artist A", ProgressPercent: 40},
		}))
		if !strings.Contains(m.View(), "Processing: Song A - Artist A") {
			t.Errorf("expected status message in view, got: %s", m.View())
		}

		m.Update(sessionUpdateMsg(tasks.Update{
			Snapshot: tasks.Snapshot{Status: tasks.StatusComplete, PlaylistName: "Chill"},
			Notice:   tasks.Notice{Level: tasks.NoticeSuccess, Message: "Loaded 0 tracks!"},
		}))
		if m.view != ResultView {
			t.Errorf("expected result view, got %d", m.view)
		}
		if m.toast.Message != "Loaded 0 tracks!" {
			t.Errorf("expected notice toast, got %q", m.toast.Message)
		}
	})

	t.Run("Escape Cancels Processing", func(t *testing.T) {
		m := newTestModel(t, completeBody)
		m.view = ProcessingView

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		if m.view != InputView {
			t.Errorf("expected input view, got %d", m.view)
		}
	})
}

// runAsync executes cmd in the background and returns the channel its message arrives on.
func runAsync(cmd tea.Cmd) <-chan tea.Msg {
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	return out
}

func waitForStatus(t *testing.T, m *Model, want tasks.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.controller.Snapshot().Status != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s, session is %s", want, m.controller.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for process to return")
		return nil
	}
}

func TestModelCancelThenResubmit(t *testing.T) {
	m := newHandlerModel(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	enter := tea.KeyMsg{Type: tea.KeyEnter}

	m.input.SetValue("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")
	_, first := m.Update(enter)
	firstDone := runAsync(first)
	waitForStatus(t, m, tasks.StatusRequesting)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.view != InputView {
		t.Fatalf("expected input view after cancel, got %d", m.view)
	}
	staleMsg := receive(t, firstDone)

	m.input.SetValue("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")
	_, second := m.Update(enter)
	secondDone := runAsync(second)
	waitForStatus(t, m, tasks.StatusRequesting)

	m.Update(staleMsg)

	if m.view != ProcessingView {
		t.Errorf("expected processing view while the new attempt runs, got %d", m.view)
	}
	if m.toast.Level == tasks.NoticeError {
		t.Errorf("expected no error toast from the cancelled attempt, got %q", m.toast.Message)
	}

	m.controller.Cancel()
	m.Update(receive(t, secondDone))

	if m.view != InputView {
		t.Errorf("expected input view once the current attempt is cancelled, got %d", m.view)
	}
	if status := m.controller.Snapshot().Status; status.IsActive() {
		t.Errorf("expected idle session ready for resubmission, got %s", status)
	}
}
