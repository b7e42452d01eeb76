package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/sunnify/internal/models"
)

// EventKind is the tag of a remote event.
type EventKind int

const (
	EventProgress EventKind = iota + 1
	EventError
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventError:
		return "error"
	case EventComplete:
		return "complete"
	default:
		return ""
	}
}

// ParseEventKind maps a wire tag to an [EventKind].
func ParseEventKind(s string) (EventKind, bool) {
	switch s {
	case "progress":
		return EventProgress, true
	case "error":
		return EventError, true
	case "complete":
		return EventComplete, true
	default:
		return 0, false
	}
}

// Event is one decoded unit of remote-reported state, regardless of transport.
type Event struct {
	Kind EventKind
	Data EventData
}

// EventData is the union of every event payload.
type EventData struct {
	PlaylistName string         `json:"playlistName,omitempty"` // complete
	Tracks       []models.Track `json:"tracks,omitempty"`       // complete
	Message      string         `json:"message,omitempty"`      // error
	Fatal        bool           `json:"fatal,omitempty"`        // error
	Progress     *float64       `json:"progress,omitempty"`     // progress
	CurrentTrack *models.Track  `json:"currentTrack,omitempty"` // progress
	Total        *int           `json:"total,omitempty"`        // progress
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// DecodeEvent decodes one JSON event document.
//
// Failures are returned as [*DecodeError].
func DecodeEvent(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, &DecodeError{Frame: string(payload), Err: err}
	}

	kind, ok := ParseEventKind(env.Event)
	if !ok {
		return Event{}, &DecodeError{Frame: string(payload), Err: fmt.Errorf("unknown event %q", env.Event)}
	}

	ev := Event{Kind: kind}
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &ev.Data); err != nil {
			return Event{}, &DecodeError{Frame: string(payload), Err: err}
		}
	}
	return ev, nil
}

// remoteMessage extracts a message from an error response body.
//
// Both {"event":"error","data":{"message":...}} and {"error":...} shapes are accepted.
func remoteMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	var data EventData
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil {
		return data.Message
	}
	return ""
}
