package tasks

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/sunnify/internal/models"
	"github.com/desertthunder/sunnify/internal/services"
	"github.com/desertthunder/sunnify/internal/shared"
)

const defaultPlaylistName = "Playlist"

// Status is the lifecycle state of a [Session].
type Status int

const (
	StatusIdle Status = iota
	StatusValidating
	StatusRequesting
	StatusStreaming
	StatusComplete
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusValidating:
		return "validating"
	case StatusRequesting:
		return "requesting"
	case StatusStreaming:
		return "streaming"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	default:
		return ""
	}
}

// IsActive reports whether an attempt is in flight.
func (s Status) IsActive() bool {
	return s == StatusValidating || s == StatusRequesting || s == StatusStreaming
}

// IsTerminal reports whether the attempt has finished.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Session is the state of one processing attempt.
//
// It is mutated only by a [Controller]; readers use [Session.Snapshot].
// Every mutation carries the attempt generation it belongs to and is dropped when stale.
type Session struct {
	mu           sync.RWMutex
	gen          uint64
	id           string
	inputURL     string
	status       Status
	playlistName string
	tracks       []models.Track
	index        map[string]int
	progress     int
	processed    int
	total        int
	totalKnown   bool
	message      string
	selected     string
	errMessage   string
	warnings     []string
	transport    services.TransportKind
	startedAt    time.Time
	finishedAt   time.Time
}

// Snapshot is a read-only copy of a [Session].
type Snapshot struct {
	ID              string
	InputURL        string
	Status          Status
	PlaylistName    string
	Tracks          []models.Track
	ProgressPercent int
	ProcessedCount  int
	TotalCount      int
	TotalKnown      bool
	StatusMessage   string
	SelectedID      string
	ErrorMessage    string
	Warnings        []string
	Transport       services.TransportKind
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Selected returns the selected track, if any.
func (s Snapshot) Selected() (models.Track, bool) {
	if s.SelectedID == "" {
		return models.Track{}, false
	}
	for _, t := range s.Tracks {
		if t.ID == s.SelectedID {
			return t, true
		}
	}
	return models.Track{}, false
}

// Playlist returns the snapshot's tracks as a [models.Playlist].
func (s Snapshot) Playlist() *models.Playlist {
	return &models.Playlist{Name: s.PlaylistName, SourceURL: s.InputURL, Tracks: s.Tracks}
}

// Elapsed returns the attempt duration so far.
func (s Snapshot) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func NewSession() *Session {
	return &Session{index: map[string]int{}, message: "Paste a Spotify playlist URL"}
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		ID:              s.id,
		InputURL:        s.inputURL,
		Status:          s.status,
		PlaylistName:    s.playlistName,
		Tracks:          slices.Clone(s.tracks),
		ProgressPercent: s.progress,
		ProcessedCount:  s.processed,
		TotalCount:      s.total,
		TotalKnown:      s.totalKnown,
		StatusMessage:   s.message,
		SelectedID:      s.selected,
		ErrorMessage:    s.errMessage,
		Warnings:        slices.Clone(s.warnings),
		Transport:       s.transport,
		StartedAt:       s.startedAt,
		FinishedAt:      s.finishedAt,
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// begin starts a new attempt in state next, unless one is in flight.
func (s *Session) begin(inputURL string, next Status) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsActive() {
		return 0, ErrSessionBusy
	}

	s.clear()
	s.id = shared.GenerateID()
	s.inputURL = inputURL
	s.status = next
	s.message = statusMessage(next)
	s.startedAt = time.Now()
	return s.gen, nil
}

// reset abandons the current attempt and returns to idle.
func (s *Session) reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.IsActive() {
		return false
	}
	s.clear()
	s.id = ""
	s.inputURL = ""
	s.status = StatusIdle
	s.message = "Cancelled"
	return true
}

// clear zeroes per-attempt state and starts a new generation. Callers hold mu.
func (s *Session) clear() {
	s.gen++
	s.playlistName = ""
	s.tracks = nil
	s.index = map[string]int{}
	s.progress = 0
	s.processed = 0
	s.total = 0
	s.totalKnown = false
	s.selected = ""
	s.errMessage = ""
	s.warnings = nil
	s.transport = services.TransportBuffered
	s.startedAt = time.Time{}
	s.finishedAt = time.Time{}
}

func (s *Session) current(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen == gen
}

// advance moves an active attempt to next.
func (s *Session) advance(gen uint64, next Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || !s.status.IsActive() {
		return false
	}
	s.status = next
	s.message = statusMessage(next)
	return true
}

// setTransport records the response transport; a streamed response enters [StatusStreaming].
func (s *Session) setTransport(gen uint64, kind services.TransportKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || !s.status.IsActive() {
		return false
	}
	s.transport = kind
	if kind == services.TransportStreamed {
		s.status = StatusStreaming
		s.message = statusMessage(StatusStreaming)
	}
	return true
}

// fail moves an active attempt to [StatusFailed].
func (s *Session) fail(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || !s.status.IsActive() {
		return false
	}
	s.status = StatusFailed
	s.errMessage = userMessage(err)
	s.message = "Error - try again"
	s.finishedAt = time.Now()
	return true
}

// apply folds ev into the session. It is shared by the buffered and streamed transports.
func (s *Session) apply(gen uint64, ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || !s.status.IsActive() {
		return false
	}

	switch ev.Kind {
	case EventProgress:
		s.applyProgress(ev.Data)
	case EventError:
		msg := (&RemoteError{Message: ev.Data.Message}).Error()
		s.warnings = append(s.warnings, msg)
		s.message = msg
	case EventComplete:
		s.applyComplete(ev.Data)
	}
	return true
}

// applyProgress folds a progress event into the session.
//
// processed counts distinct track ids rather than events: a re-emitted id updates
// its track in place and events without a track move only the percentage, so
// processed never exceeds the number of tracks held.
func (s *Session) applyProgress(d EventData) {
	if d.Progress != nil {
		if p := clampPercent(*d.Progress); p > s.progress {
			s.progress = p
		}
	}

	if d.Total != nil && *d.Total >= 0 {
		s.total = *d.Total
		s.totalKnown = true
	}

	if d.CurrentTrack != nil {
		if t, added := s.upsert(*d.CurrentTrack); t != nil {
			if added {
				s.processed++
			}
			s.message = fmt.Sprintf("Processing: %s", trackLabel(*t))
		}
	}

	if s.totalKnown && s.processed > s.total {
		s.total = s.processed
	}
}

func (s *Session) applyComplete(d EventData) {
	if d.PlaylistName != "" {
		s.playlistName = d.PlaylistName
	}
	if s.playlistName == "" {
		s.playlistName = defaultPlaylistName
	}

	if len(d.Tracks) > 0 {
		s.tracks = nil
		s.index = map[string]int{}
		for _, t := range d.Tracks {
			s.upsert(t)
		}
	}

	s.progress = 100
	s.processed = len(s.tracks)
	s.total = len(s.tracks)
	s.totalKnown = true
	s.status = StatusComplete
	s.message = fmt.Sprintf("Loaded %d tracks", len(s.tracks))
	s.finishedAt = time.Now()

	if _, ok := s.index[s.selected]; !ok {
		s.selected = ""
		if len(s.tracks) > 0 {
			s.selected = s.tracks[0].ID
		}
	}
}

// upsert inserts t or merges it into the entry with the same id.
//
// Tracks without an id are keyed by title and artists. A track with neither is dropped.
func (s *Session) upsert(t models.Track) (*models.Track, bool) {
	if t.ID == "" {
		if t.Title == "" && t.Artists == "" {
			return nil, false
		}
		t.ID = shared.NormalizeTrackKey(t.Title, t.Artists)
	}

	if i, ok := s.index[t.ID]; ok {
		s.tracks[i].Merge(t)
		return &s.tracks[i], false
	}

	s.index[t.ID] = len(s.tracks)
	s.tracks = append(s.tracks, t)
	return &s.tracks[len(s.tracks)-1], true
}

// selectTrack points the selection at id.
func (s *Session) selectTrack(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	s.selected = id
	return nil
}

func clampPercent(p float64) int {
	if math.IsNaN(p) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, p))))
}

func trackLabel(t models.Track) string {
	if t.Artists == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Title, t.Artists)
}

func statusMessage(s Status) string {
	switch s {
	case StatusValidating:
		return "Validating URL..."
	case StatusRequesting:
		return "Fetching playlist..."
	case StatusStreaming:
		return "Processing tracks..."
	default:
		return ""
	}
}
