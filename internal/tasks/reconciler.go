package tasks

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"strings"
)

const readBufferSize = 4096

var (
	lfSeparator   = []byte("\n\n")
	crlfSeparator = []byte("\r\n\r\n")
)

// Reconciler decodes a chunked event stream into [Event] values.
//
// Chunk boundaries do not matter: incomplete trailing data is buffered until its separator arrives.
// A Reconciler is single-use; after [Reconciler.Close] every call returns [ErrReconcilerClosed].
type Reconciler struct {
	buf           []byte
	closed        bool
	onDecodeError func(error)
}

// NewReconciler creates a Reconciler. onDecodeError, if set, receives each skipped frame's [*DecodeError].
func NewReconciler(onDecodeError func(error)) *Reconciler {
	return &Reconciler{onDecodeError: onDecodeError}
}

// Feed appends chunk to the buffer and returns the events of every frame it completes.
func (r *Reconciler) Feed(chunk []byte) ([]Event, error) {
	if r.closed {
		return nil, ErrReconcilerClosed
	}
	r.buf = append(r.buf, chunk...)

	var events []Event
	for {
		frame, rest, ok := cutFrame(r.buf)
		if !ok {
			break
		}
		if ev, ok := r.decode(frame); ok {
			events = append(events, ev)
		}
		r.buf = rest
	}

	if len(r.buf) == 0 {
		r.buf = nil
	}
	return events, nil
}

// Close decodes any trailing unterminated frame and closes the reconciler.
func (r *Reconciler) Close() ([]Event, error) {
	if r.closed {
		return nil, ErrReconcilerClosed
	}
	r.closed = true

	frame := r.buf
	r.buf = nil
	if len(bytes.TrimSpace(frame)) == 0 {
		return nil, nil
	}
	if ev, ok := r.decode(frame); ok {
		return []Event{ev}, nil
	}
	return nil, nil
}

// Stream returns a lazy sequence of the events read from src.
//
// The sequence ends at EOF; a read error is yielded as its final element.
func (r *Reconciler) Stream(src io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		buf := make([]byte, readBufferSize)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				events, ferr := r.Feed(buf[:n])
				if ferr != nil {
					yield(Event{}, ferr)
					return
				}
				for _, ev := range events {
					if !yield(ev, nil) {
						return
					}
				}
			}

			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				r.closed = true
				yield(Event{}, err)
				return
			}
		}

		events, err := r.Close()
		if err != nil {
			yield(Event{}, err)
			return
		}
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// decode parses one frame, reporting and skipping it when malformed.
func (r *Reconciler) decode(frame []byte) (Event, bool) {
	payload, ok := framePayload(frame)
	if !ok {
		return Event{}, false
	}

	ev, err := DecodeEvent([]byte(payload))
	if err != nil {
		if r.onDecodeError != nil {
			r.onDecodeError(err)
		}
		return Event{}, false
	}
	return ev, true
}

// cutFrame splits buf at the first blank-line separator.
func cutFrame(buf []byte) (frame, rest []byte, ok bool) {
	i, size := bytes.Index(buf, lfSeparator), len(lfSeparator)
	if j := bytes.Index(buf, crlfSeparator); j >= 0 && (i < 0 || j < i) {
		i, size = j, len(crlfSeparator)
	}
	if i < 0 {
		return nil, buf, false
	}
	return buf[:i], buf[i+size:], true
}

// framePayload joins the data lines of a frame.
//
// Comment lines and the event, id and retry fields are ignored.
func framePayload(frame []byte) (string, bool) {
	var data []string
	for line := range strings.SplitSeq(string(frame), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		data = append(data, strings.TrimPrefix(value, " "))
	}

	if len(data) == 0 {
		return "", false
	}
	return strings.Join(data, "\n"), true
}
