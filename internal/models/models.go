// package models defines the data model for the Sunnify client
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	GetID() string           // GetID returns the unique identifier for this model
	GetCreatedAt() time.Time // GetCreatedAt returns when this model was created
	GetUpdatedAt() time.Time // GetUpdatedAt returns when this model was last updated
	Validate() error         // Validate checks if the model's data is valid and returns an error if not
}

// Track is one song result as reported by the scrape service.
type Track struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Artists      string `json:"artists"`
	Album        string `json:"album"`
	ReleaseDate  string `json:"releaseDate"`
	Cover        string `json:"cover"`
	DownloadLink string `json:"downloadLink"`
}

// Merge overlays the non-empty fields of other onto t.
func (t *Track) Merge(other Track) {
	if other.Title != "" {
		t.Title = other.Title
	}
	if other.Artists != "" {
		t.Artists = other.Artists
	}
	if other.Album != "" {
		t.Album = other.Album
	}
	if other.ReleaseDate != "" {
		t.ReleaseDate = other.ReleaseDate
	}
	if other.Cover != "" {
		t.Cover = other.Cover
	}
	if other.DownloadLink != "" {
		t.DownloadLink = other.DownloadLink
	}
}

// Playlist is a resolved playlist with its tracks in arrival order.
type Playlist struct {
	Name      string  `json:"playlistName"`
	SourceURL string  `json:"sourceUrl,omitempty"`
	Tracks    []Track `json:"tracks"`
}

// SessionRecord is the persisted outcome of a processing attempt.
type SessionRecord struct {
	ID             string
	Sequence       int
	InputURL       string
	SourceKind     string
	SourceID       string
	PlaylistName   string
	Status         string
	Transport      string
	Progress       int
	ProcessedCount int
	TotalCount     int
	Message        string
	ErrorMessage   string
	StartedAt      time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
	Tracks         []Track
}

var _ Model = (*SessionRecord)(nil)

func (r *SessionRecord) GetID() string           { return r.ID }
func (r *SessionRecord) GetCreatedAt() time.Time { return r.CreatedAt }
func (r *SessionRecord) GetUpdatedAt() time.Time { return r.UpdatedAt }

// Validate checks required fields before persistence.
func (r *SessionRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if r.InputURL == "" {
		return fmt.Errorf("input url is required")
	}
	if r.Status == "" {
		return fmt.Errorf("status is required")
	}
	if r.Progress < 0 || r.Progress > 100 {
		return fmt.Errorf("progress %d out of range", r.Progress)
	}
	return nil
}

// Playlist returns the record's tracks as a [Playlist].
func (r *SessionRecord) Playlist() *Playlist {
	return &Playlist{Name: r.PlaylistName, SourceURL: r.InputURL, Tracks: r.Tracks}
}
