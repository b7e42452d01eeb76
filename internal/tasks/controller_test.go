package tasks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/sunnify/internal/services"
	"github.com/desertthunder/sunnify/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	completeTwoTracks = `{"event":"complete","data":{"playlistName":"Chill","tracks":[` +
		`{"id":"1","title":"Song A","artists":"Artist A","album":"Album","releaseDate":"2020-01-01","cover":"https://i.scdn.co/a"},` +
		`{"id":"2","title":"Song B","artists":"Artist B"}]}}`
	progressOne = `{"event":"progress","data":{"progress":50,"currentTrack":{"id":"1","title":"Song A","artists":"Artist A"}}}`
	progressTwo = `{"event":"progress","data":{"progress":75,"currentTrack":{"id":"2","title":"Song B","artists":"Artist B"}}}`
)

func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, f := range frames {
			io.WriteString(w, f)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func serverController(t *testing.T, h http.Handler, opts ControllerOpts) *Controller {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	opts.Client = services.NewAPIService(server.URL, server.Client())
	return NewController(opts)
}

func TestControllerScenarios(t *testing.T) {
	t.Run("Invalid Input Issues No Request", func(t *testing.T) {
		client := newMockScrapeClient()
		c := NewController(ControllerOpts{Client: client})

		err := c.Process(context.Background(), "not a url")
		assert.ErrorIs(t, err, ErrUnrecognizedSource)
		assert.Zero(t, client.calls())

		snap := c.Snapshot()
		assert.Equal(t, StatusFailed, snap.Status)
		assert.Equal(t, ErrUnrecognizedSource.Error(), snap.ErrorMessage)
	})

	t.Run("Buffered Complete", func(t *testing.T) {
		c := serverController(t, jsonHandler(http.StatusOK,
			`{"event":"complete","data":{"playlistName":"Chill","tracks":[{"id":"1","title":"Song A","artists":"Artist A"}]}}`,
		), ControllerOpts{})

		require.NoError(t, c.Process(context.Background(), playlistURL))

		snap := c.Snapshot()
		assert.Equal(t, StatusComplete, snap.Status)
		assert.Equal(t, services.TransportBuffered, snap.Transport)
		assert.Equal(t, "Chill", snap.PlaylistName)
		require.Len(t, snap.Tracks, 1)
		assert.Equal(t, "1", snap.SelectedID)
		assert.Equal(t, 100, snap.ProgressPercent)
		assert.Equal(t, 1, snap.ProcessedCount)
		assert.Equal(t, 1, snap.TotalCount)
	})

	t.Run("Streamed Progress Then Complete", func(t *testing.T) {
		c := serverController(t, sseHandler(frame(progressOne), frame(completeTwoTracks)), ControllerOpts{})

		require.NoError(t, c.Process(context.Background(), playlistURL))

		snap := c.Snapshot()
		assert.Equal(t, StatusComplete, snap.Status)
		assert.Equal(t, services.TransportStreamed, snap.Transport)
		assert.Len(t, snap.Tracks, 2)
		assert.Equal(t, 100, snap.ProgressPercent)
		assert.Equal(t, "1", snap.SelectedID)
	})

	t.Run("Malformed Frame Is Skipped", func(t *testing.T) {
		c := serverController(t, sseHandler(
			frame(progressOne),
			frame(`{"event":"progress","data":{`),
			frame(progressTwo),
			frame(`{"event":"complete","data":{"playlistName":"Mixed"}}`),
		), ControllerOpts{})

		require.NoError(t, c.Process(context.Background(), playlistURL))

		snap := c.Snapshot()
		assert.Equal(t, StatusComplete, snap.Status)
		assert.Equal(t, []string{"1", "2"}, trackIDs(snap))
		assert.Equal(t, "Mixed", snap.PlaylistName)
	})
}

func TestControllerSubmit(t *testing.T) {
	t.Run("Sends Request Body", func(t *testing.T) {
		client := newMockScrapeClient(buffered(completeTwoTracks))
		c := NewController(ControllerOpts{Client: client, DownloadPath: "/music"})

		require.NoError(t, c.Submit(context.Background(), playlistURL))
		require.Equal(t, 1, client.calls())
		assert.Equal(t, services.ScrapeRequest{PlaylistURL: playlistURL, DownloadPath: "/music"}, client.requests[0])
	})

	t.Run("Rejects Submission While In Flight", func(t *testing.T) {
		client := newMockScrapeClient(scripted{block: true})
		c := NewController(ControllerOpts{Client: client})

		done := make(chan error, 1)
		go func() { done <- c.Submit(context.Background(), playlistURL) }()

		require.Eventually(t, func() bool { return client.calls() == 1 }, time.Second, 5*time.Millisecond)
		before := c.Snapshot()
		require.Equal(t, StatusRequesting, before.Status)

		assert.ErrorIs(t, c.Submit(context.Background(), trackURL), ErrSessionBusy)
		assert.ErrorIs(t, c.Process(context.Background(), trackURL), ErrSessionBusy)
		assert.Equal(t, before, c.Snapshot())
		assert.Equal(t, 1, client.calls())

		require.True(t, c.Cancel())
		assert.ErrorIs(t, <-done, ErrCancelled)
		assert.Equal(t, StatusIdle, c.Snapshot().Status)
	})

	t.Run("Cancel Discards Stale Results", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			io.WriteString(w, frame(progressOne))
			w.(http.Flusher).Flush()
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		c := NewController(ControllerOpts{Client: services.NewAPIService(server.URL, server.Client())})

		done := make(chan error, 1)
		go func() { done <- c.Submit(context.Background(), playlistURL) }()

		require.Eventually(t, func() bool { return len(c.Snapshot().Tracks) == 1 }, time.Second, 5*time.Millisecond)
		require.True(t, c.Cancel())
		assert.ErrorIs(t, <-done, ErrCancelled)

		snap := c.Snapshot()
		assert.Equal(t, StatusIdle, snap.Status)
		assert.Empty(t, snap.Tracks)
		assert.False(t, c.Cancel())
	})

	t.Run("Times Out", func(t *testing.T) {
		c := NewController(ControllerOpts{
			Client:  newMockScrapeClient(scripted{block: true}),
			Timeout: 20 * time.Millisecond,
		})

		err := c.Submit(context.Background(), playlistURL)
		assert.ErrorIs(t, err, shared.ErrTimeout)
		assert.Equal(t, StatusFailed, c.Snapshot().Status)
	})

	t.Run("Resubmits After Failure", func(t *testing.T) {
		client := newMockScrapeClient(scripted{err: errors.New("dial tcp: connection refused")}, buffered(completeTwoTracks))
		c := NewController(ControllerOpts{Client: client})

		err := c.Submit(context.Background(), playlistURL)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		failed := c.Snapshot()
		assert.Equal(t, StatusFailed, failed.Status)
		assert.Equal(t, "Error - try again", failed.StatusMessage)

		require.NoError(t, c.Submit(context.Background(), playlistURL))
		snap := c.Snapshot()
		assert.Equal(t, StatusComplete, snap.Status)
		assert.NotEqual(t, failed.ID, snap.ID)
		assert.Empty(t, snap.ErrorMessage)
	})

	t.Run("Arbitrary Chunk Splits Reach The Same State", func(t *testing.T) {
		stream := frame(progressOne) + frame(`{"event":"error","data":{"message":"skip"}}`) + frame(progressTwo) + frame(completeTwoTracks)

		c := NewController(ControllerOpts{Client: newMockScrapeClient(streamed(stream))})
		require.NoError(t, c.Submit(context.Background(), playlistURL))
		want := c.Snapshot().Tracks

		for _, size := range []int{1, 2, 5, 13, 64, 257} {
			c := NewController(ControllerOpts{Client: newMockScrapeClient(streamed(chunkify(stream, size)...))})
			require.NoError(t, c.Submit(context.Background(), playlistURL), "chunk size %d", size)
			assert.Equal(t, want, c.Snapshot().Tracks, "chunk size %d", size)
		}
	})
}

func TestControllerFailures(t *testing.T) {
	tc := []struct {
		name    string
		reply   scripted
		want    error
		message string
	}{
		{
			name:    "Buffered Remote Error",
			reply:   buffered(`{"event":"error","data":{"message":"Playlist not found"}}`),
			message: "Playlist not found",
		},
		{
			name:  "Buffered Invalid JSON",
			reply: buffered(`<html>gateway</html>`),
			want:  ErrMalformedPayload,
		},
		{
			name:  "Buffered Progress Event",
			reply: buffered(progressOne),
			want:  ErrMalformedPayload,
		},
		{
			name:    "Error Status With Message",
			reply:   scripted{status: http.StatusBadRequest, contentType: "application/json", chunks: []string{`{"error":"Invalid download path"}`}},
			want:    ErrRemoteStatus,
			message: "remote service returned an error status (400): Invalid download path",
		},
		{
			name:  "Error Status Without Body",
			reply: scripted{status: http.StatusBadGateway},
			want:  ErrRemoteStatus,
		},
		{
			name:  "Network Failure",
			reply: scripted{err: errors.New("connection reset")},
			want:  shared.ErrAPIRequest,
		},
		{
			name:  "Stream Ends Without Complete",
			reply: streamed(frame(progressOne)),
			want:  ErrIncompleteStream,
		},
		{
			name:    "Stream Ends With Remote Error",
			reply:   streamed(frame(progressOne), frame(`{"event":"error","data":{"message":"Rate limited"}}`)),
			message: "Rate limited",
		},
		{
			name:    "Fatal Stream Error",
			reply:   streamed(frame(`{"event":"error","data":{"message":"Playlist is private","fatal":true}}`), frame(progressOne)),
			message: "Playlist is private",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memoryRecorder{}
			c := NewController(ControllerOpts{Client: newMockScrapeClient(tt.reply), Recorder: rec})

			err := c.Submit(context.Background(), playlistURL)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}

			snap := c.Snapshot()
			assert.Equal(t, StatusFailed, snap.Status)
			assert.NotEmpty(t, snap.ErrorMessage)
			if tt.message != "" {
				assert.Equal(t, tt.message, snap.ErrorMessage)
			}

			recorded := rec.recorded()
			require.Len(t, recorded, 1)
			assert.Equal(t, StatusFailed, recorded[0].Status)
		})
	}
}

func TestControllerUpdates(t *testing.T) {
	t.Run("Publishes Snapshots And Notices", func(t *testing.T) {
		updates := make(chan Update, 32)
		c := NewController(ControllerOpts{
			Client: newMockScrapeClient(streamed(
				frame(progressOne),
				frame(`{"event":"error","data":{"message":"Song C unavailable"}}`),
				frame(completeTwoTracks),
			)),
			Updates: updates,
		})

		require.NoError(t, c.Process(context.Background(), playlistURL))
		close(updates)

		var statuses []Status
		var notices []Notice
		for u := range updates {
			statuses = append(statuses, u.Snapshot.Status)
			if !u.Notice.IsZero() {
				notices = append(notices, u.Notice)
			}
		}

		assert.Equal(t, StatusValidating, statuses[0])
		assert.Contains(t, statuses, StatusRequesting)
		assert.Contains(t, statuses, StatusStreaming)
		assert.Equal(t, StatusComplete, statuses[len(statuses)-1])
		assert.Equal(t, []Notice{
			{Level: NoticeWarning, Message: "Song C unavailable"},
			{Level: NoticeSuccess, Message: "Loaded 2 tracks!"},
		}, notices)
	})

	t.Run("Error Status Never Enters Streaming", func(t *testing.T) {
		updates := make(chan Update, 32)
		reply := streamed(`{"error":"Rate limited"}`)
		reply.status = http.StatusTooManyRequests
		c := NewController(ControllerOpts{Client: newMockScrapeClient(reply), Updates: updates})

		err := c.Process(context.Background(), playlistURL)
		close(updates)
		require.ErrorIs(t, err, ErrRemoteStatus)

		for u := range updates {
			assert.NotEqual(t, StatusStreaming, u.Snapshot.Status)
		}
		assert.Equal(t, StatusFailed, c.Snapshot().Status)
		assert.Contains(t, c.Snapshot().ErrorMessage, "Rate limited")
	})

	t.Run("Full Channel Does Not Block", func(t *testing.T) {
		updates := make(chan Update)
		c := NewController(ControllerOpts{
			Client:  newMockScrapeClient(buffered(completeTwoTracks)),
			Updates: updates,
		})

		require.NoError(t, c.Submit(context.Background(), playlistURL))
	})

	t.Run("Records Terminal Snapshot", func(t *testing.T) {
		rec := &memoryRecorder{err: errors.New("disk full")}
		c := NewController(ControllerOpts{Client: newMockScrapeClient(buffered(completeTwoTracks)), Recorder: rec})

		require.NoError(t, c.Submit(context.Background(), playlistURL))

		recorded := rec.recorded()
		require.Len(t, recorded, 1)
		assert.Equal(t, StatusComplete, recorded[0].Status)
		assert.Equal(t, "Chill", recorded[0].PlaylistName)
	})

	t.Run("Select Track", func(t *testing.T) {
		c := NewController(ControllerOpts{Client: newMockScrapeClient(buffered(completeTwoTracks))})
		require.NoError(t, c.Submit(context.Background(), playlistURL))

		require.NoError(t, c.SelectTrack("2"))
		track, ok := c.Snapshot().Selected()
		require.True(t, ok)
		assert.Equal(t, "Song B", track.Title)

		assert.ErrorIs(t, c.SelectTrack("9"), shared.ErrTrackNotFound)
		assert.Equal(t, "2", c.Snapshot().SelectedID)
	})
}
