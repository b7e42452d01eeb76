package tasks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/desertthunder/sunnify/internal/services"
	tu "github.com/desertthunder/sunnify/internal/testing"
)

const (
	playlistURL = "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"
	trackURL    = "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"
)

// scripted is one reply of [mockScrapeClient].
type scripted struct {
	status      int
	contentType string
	chunks      []string
	err         error
	block       bool // wait for the request context to end
}

// mockScrapeClient replays scripted responses in order and records requests.
type mockScrapeClient struct {
	mu        sync.Mutex
	responses []scripted
	requests  []services.ScrapeRequest
}

func newMockScrapeClient(responses ...scripted) *mockScrapeClient {
	return &mockScrapeClient{responses: responses}
}

func (m *mockScrapeClient) Scrape(ctx context.Context, req services.ScrapeRequest) (*services.ScrapeResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		m.mu.Unlock()
		return nil, errors.New("no scripted response")
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	m.mu.Unlock()

	if next.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if next.err != nil {
		return nil, next.err
	}

	status := next.status
	if status == 0 {
		status = http.StatusOK
	}
	h := http.Header{}
	if next.contentType != "" {
		h.Set("Content-Type", next.contentType)
	}
	return &services.ScrapeResponse{
		StatusCode: status,
		Header:     h,
		Transport:  services.DetectTransport(h),
		Body:       io.NopCloser(tu.NewChunkReader(next.chunks...)),
	}, nil
}

func (m *mockScrapeClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func buffered(body string) scripted {
	return scripted{contentType: "application/json", chunks: []string{body}}
}

func streamed(chunks ...string) scripted {
	return scripted{contentType: "text/event-stream", chunks: chunks}
}

func frame(payload string) string {
	return "data: " + payload + "\n\n"
}

// chunkify splits s into pieces of at most size bytes.
func chunkify(s string, size int) []string {
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	return append(out, s)
}

func trackIDs(snap Snapshot) []string {
	ids := make([]string, 0, len(snap.Tracks))
	for _, t := range snap.Tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

// memoryRecorder collects recorded snapshots.
type memoryRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (r *memoryRecorder) RecordSession(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return r.err
}

func (r *memoryRecorder) recorded() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

