package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sunnify/internal/services"
	"github.com/desertthunder/sunnify/internal/shared"
)

const (
	DefaultTimeout  = 2 * time.Minute
	maxBufferedBody = 16 << 20
	maxErrorBody    = 64 << 10
)

// SessionRecorder persists the terminal state of an attempt.
type SessionRecorder interface {
	RecordSession(ctx context.Context, snap Snapshot) error
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Client       services.ScrapeClient
	Session      *Session    // defaults to a new session
	Logger       *log.Logger // defaults to a discarding logger
	Recorder     SessionRecorder
	Timeout      time.Duration // per attempt, defaults to [DefaultTimeout]
	DownloadPath string
	Updates      chan<- Update
}

// Controller owns the lifecycle of processing attempts against one [Session].
//
// At most one attempt is in flight; [Controller.Submit] and [Controller.Process] block until it ends.
type Controller struct {
	client       services.ScrapeClient
	session      *Session
	logger       *log.Logger
	recorder     SessionRecorder
	timeout      time.Duration
	downloadPath string
	updates      chan<- Update

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelGen uint64
}

func NewController(opts ControllerOpts) *Controller {
	if opts.Session == nil {
		opts.Session = NewSession()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Controller{
		client:       opts.Client,
		session:      opts.Session,
		logger:       opts.Logger,
		recorder:     opts.Recorder,
		timeout:      opts.Timeout,
		downloadPath: opts.DownloadPath,
		updates:      opts.Updates,
	}
}

// Session returns the controlled session.
func (c *Controller) Session() *Session { return c.session }

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot { return c.session.Snapshot() }

// Process validates raw and, if it is a recognized URL, submits it.
//
// A validation failure fails the session without issuing a request.
func (c *Controller) Process(ctx context.Context, raw string) error {
	gen, err := c.session.begin(raw, StatusValidating)
	if err != nil {
		return err
	}
	c.publish(Notice{})

	validURL, err := ValidateURL(raw)
	if err != nil {
		return c.abort(ctx, gen, err, false)
	}

	if !c.session.advance(gen, StatusRequesting) {
		return ErrCancelled
	}
	c.publish(Notice{})
	return c.run(ctx, gen, validURL)
}

// Submit issues one request for validURL and applies the response to the session.
//
// It returns [ErrSessionBusy] without touching the session when an attempt is in flight,
// and the attempt's failure otherwise.
func (c *Controller) Submit(ctx context.Context, validURL string) error {
	gen, err := c.session.begin(validURL, StatusRequesting)
	if err != nil {
		return err
	}
	c.publish(Notice{})
	return c.run(ctx, gen, validURL)
}

// SelectTrack points the session's selection at the track with id.
func (c *Controller) SelectTrack(id string) error {
	if err := c.session.selectTrack(id); err != nil {
		return err
	}
	c.publish(Notice{})
	return nil
}

// Cancel aborts the in-flight attempt and resets the session to idle.
//
// It reports whether an attempt was cancelled.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	cancelled := c.session.reset()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	if cancelled {
		c.logger.Info("processing cancelled")
		c.publish(Notice{Level: NoticeInfo, Message: "Cancelled"})
	}
	return cancelled
}

func (c *Controller) run(parent context.Context, gen uint64, url string) error {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	c.mu.Lock()
	if !c.session.current(gen) {
		c.mu.Unlock()
		return ErrCancelled
	}
	c.cancel, c.cancelGen = cancel, gen
	c.mu.Unlock()
	defer c.release(gen)

	c.logger.Debug("submitting playlist", "url", url)

	resp, err := c.client.Scrape(ctx, services.ScrapeRequest{PlaylistURL: url, DownloadPath: c.downloadPath})
	if err != nil {
		return c.abort(parent, gen, c.transportError(ctx, err), true)
	}
	defer resp.Body.Close()

	if !resp.OK() {
		return c.abort(parent, gen, c.statusError(ctx, resp), true)
	}

	if !c.session.setTransport(gen, resp.Transport) {
		return ErrCancelled
	}

	c.logger.Debug("response received", "status", resp.StatusCode, "transport", resp.Transport)
	c.publish(Notice{})

	if resp.Transport == services.TransportStreamed {
		return c.consumeStream(ctx, parent, gen, resp.Body)
	}
	return c.consumeBuffered(ctx, parent, gen, resp.Body)
}

func (c *Controller) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelGen == gen {
		c.cancel = nil
	}
}

// consumeBuffered applies a single terminal payload. A remote error is fatal here.
func (c *Controller) consumeBuffered(ctx, parent context.Context, gen uint64, body io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBufferedBody))
	if err != nil {
		return c.abort(parent, gen, c.transportError(ctx, err), true)
	}

	ev, err := DecodeEvent(data)
	if err != nil {
		return c.abort(parent, gen, err, true)
	}

	switch ev.Kind {
	case EventComplete:
		return c.complete(parent, gen, ev)
	case EventError:
		return c.abort(parent, gen, &RemoteError{Message: ev.Data.Message, Fatal: true}, true)
	default:
		return c.abort(parent, gen, fmt.Errorf("%w: unexpected %s event in buffered response", ErrMalformedPayload, ev.Kind), true)
	}
}

// consumeStream applies events as they arrive.
//
// Remote errors are warnings unless flagged fatal or no event follows them.
func (c *Controller) consumeStream(ctx, parent context.Context, gen uint64, body io.Reader) error {
	rec := NewReconciler(func(err error) {
		c.logger.Warn("skipping malformed frame", "error", err)
	})

	var lastRemote *RemoteError
	for ev, err := range rec.Stream(body) {
		if err != nil {
			return c.abort(parent, gen, c.transportError(ctx, err), true)
		}

		switch ev.Kind {
		case EventComplete:
			return c.complete(parent, gen, ev)
		case EventError:
			re := &RemoteError{Message: ev.Data.Message, Fatal: ev.Data.Fatal}
			if re.Fatal {
				return c.abort(parent, gen, re, true)
			}
			if !c.session.apply(gen, ev) {
				return ErrCancelled
			}
			lastRemote = re
			c.logger.Warn("remote reported an error", "message", re.Message)
			c.publish(Notice{Level: NoticeWarning, Message: re.Error()})
		default:
			if !c.session.apply(gen, ev) {
				return ErrCancelled
			}
			lastRemote = nil
			c.publish(Notice{})
		}
	}

	if lastRemote != nil {
		return c.abort(parent, gen, lastRemote, true)
	}
	return c.abort(parent, gen, ErrIncompleteStream, true)
}

func (c *Controller) complete(parent context.Context, gen uint64, ev Event) error {
	if !c.session.apply(gen, ev) {
		return ErrCancelled
	}

	snap := c.session.Snapshot()
	c.logger.Info("playlist loaded",
		"playlist", snap.PlaylistName,
		"tracks", len(snap.Tracks),
		"transport", snap.Transport,
		"elapsed", snap.Elapsed().Round(time.Millisecond),
	)
	sendUpdate(c.updates, Update{
		Snapshot: snap,
		Notice:   Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Loaded %d tracks!", len(snap.Tracks))},
	})
	c.record(parent, snap)
	return nil
}

// abort fails the attempt with err. Stale attempts are discarded.
func (c *Controller) abort(parent context.Context, gen uint64, err error, record bool) error {
	if !c.session.fail(gen, err) {
		return ErrCancelled
	}

	snap := c.session.Snapshot()
	c.logger.Error("processing failed", "url", snap.InputURL, "error", err)
	sendUpdate(c.updates, Update{
		Snapshot: snap,
		Notice:   Notice{Level: NoticeError, Message: snap.ErrorMessage},
	})
	if record {
		c.record(parent, snap)
	}
	return err
}

func (c *Controller) record(parent context.Context, snap Snapshot) {
	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), 5*time.Second)
	defer cancel()

	if err := c.recorder.RecordSession(ctx, snap); err != nil {
		c.logger.Warn("failed to record session", "id", snap.ID, "error", err)
	}
}

func (c *Controller) publish(n Notice) {
	sendUpdate(c.updates, Update{Snapshot: c.session.Snapshot(), Notice: n})
}

// transportError classifies a failure of the request or of reading its body.
func (c *Controller) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: no result after %s", shared.ErrTimeout, c.timeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return ErrCancelled
	case errors.Is(err, shared.ErrAPIRequest):
		return err
	default:
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
}

// statusError builds the failure for a non-2xx response, surfacing the remote message when present.
func (c *Controller) statusError(ctx context.Context, resp *services.ScrapeResponse) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return c.transportError(ctx, err)
	}
	if msg := remoteMessage(body); msg != "" {
		return fmt.Errorf("%w (%d): %s", ErrRemoteStatus, resp.StatusCode, msg)
	}
	return fmt.Errorf("%w (%d)", ErrRemoteStatus, resp.StatusCode)
}
