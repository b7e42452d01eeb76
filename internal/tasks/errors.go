package tasks

import (
	"errors"
	"fmt"

	"github.com/desertthunder/sunnify/internal/shared"
)

var (
	// Validation errors, never reach the network
	ErrEmptyInput         = fmt.Errorf("%w: playlist url is empty", shared.ErrInvalidInput)
	ErrUnrecognizedSource = fmt.Errorf("%w: not a Spotify playlist or track url", shared.ErrInvalidInput)

	// Session errors
	ErrSessionBusy = fmt.Errorf("a playlist is already being processed")
	ErrCancelled   = fmt.Errorf("processing cancelled")

	// Transport and payload errors
	ErrRemoteStatus     = fmt.Errorf("remote service returned an error status")
	ErrMalformedPayload = fmt.Errorf("malformed payload")
	ErrIncompleteStream = fmt.Errorf("stream ended before completion")
	ErrReconcilerClosed = fmt.Errorf("reconciler is closed")
)

// DecodeError reports a frame that could not be decoded into an [Event].
//
// It matches [ErrMalformedPayload] with [errors.Is].
type DecodeError struct {
	Frame string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame %q: %v", shared.Truncate(e.Frame, 80), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformedPayload }

// RemoteError is an error event reported by the scrape service.
type RemoteError struct {
	Message string
	Fatal   bool
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "remote service reported an unknown error"
	}
	return e.Message
}

// userMessage returns the text shown to a user for err.
func userMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Error()
	}
	return err.Error()
}
