package tasks

import (
	"regexp"
	"strings"
)

// SourceKind is the kind of Spotify resource a URL references.
type SourceKind string

const (
	SourcePlaylist SourceKind = "playlist"
	SourceTrack    SourceKind = "track"
)

// Source identifies the resource behind a validated URL.
type Source struct {
	Kind SourceKind
	ID   string
}

var sourcePattern = regexp.MustCompile(`^https?://open\.spotify\.com/(?:intl-[A-Za-z-]+/)?(playlist|track)/([A-Za-z0-9]+)(?:[/?#].*)?$`)

// ValidateURL checks that raw references a Spotify playlist or track.
//
// On success raw is returned unmodified for use as the outbound payload.
func ValidateURL(raw string) (string, error) {
	if _, err := ParseSource(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// ParseSource validates raw and returns the resource it references.
func ParseSource(raw string) (Source, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Source{}, ErrEmptyInput
	}

	m := sourcePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Source{}, ErrUnrecognizedSource
	}
	return Source{Kind: SourceKind(m[1]), ID: m[2]}, nil
}
