package call

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/emeghara/dialctl/internal/observability"
)

// CallAPI is the remote call-control surface the controller depends on.
type CallAPI interface {
	StartCall(ctx context.Context, to, from string) (string, error)
	StopCall(ctx context.Context, connectionID string) error
	FetchTranscript(ctx context.Context, connectionID string) ([]string, error)
}

// Sink receives presentation events. The controller never touches display
// state directly; the presentation layer renders what arrives here.
type Sink interface {
	StatusChanged(status string)
	TranscriptUpdated(lines []string)
}

// ValidationError reports bad operator input caught before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	// ErrCallInProgress rejects a start intent while a call is non-idle.
	ErrCallInProgress = errors.New("a call is already in progress")
	// ErrNoActiveCall rejects a stop intent when no call is active.
	ErrNoActiveCall = errors.New("no active call")
)

var dialableRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Controller owns the single call session. It wires operator intents to the
// remote service, drives the session state machine, and starts and stops the
// transcript poller. Intents are serialized: a start resolves fully before
// any stop or poll cycle is admitted.
type Controller struct {
	api     CallAPI
	sink    Sink
	metrics *observability.Metrics

	fromNumber string
	poller     *Poller

	// baseCtx scopes transcript fetches to the controller's lifetime rather
	// than to the HTTP request that triggered the start intent.
	baseCtx context.Context

	mu      sync.Mutex
	session *Session
	handle  *Handle
}

func NewController(baseCtx context.Context, api CallAPI, sink Sink, metrics *observability.Metrics, fromNumber string, pollInterval time.Duration) *Controller {
	return &Controller{
		api:        api,
		sink:       sink,
		metrics:    metrics,
		fromNumber: fromNumber,
		poller:     NewPoller(api, pollInterval),
		baseCtx:    baseCtx,
		session:    NewSession(),
	}
}

// StartCall validates the target number, places the call, and on success
// starts transcript polling. On any failure the session is back in idle and
// the error is returned; nothing is retried.
func (c *Controller) StartCall(ctx context.Context, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	target = strings.TrimSpace(target)
	if target == "" {
		return &ValidationError{Field: "target number", Reason: "must not be empty"}
	}
	if !dialableRe.MatchString(target) {
		return &ValidationError{Field: "target number", Reason: "must be a dialable E.164 number"}
	}

	if c.session.State() != StateIdle {
		c.metrics.CallEvents.WithLabelValues("rejected").Inc()
		return ErrCallInProgress
	}
	if err := c.session.BeginDial(target); err != nil {
		return err
	}
	c.sink.StatusChanged("dialing " + target)

	began := time.Now()
	connectionID, err := c.api.StartCall(ctx, target, c.fromNumber)
	c.metrics.ObserveStartCallLatency(time.Since(began))
	if err != nil {
		_ = c.session.FailDial()
		c.metrics.CallEvents.WithLabelValues("start_failed").Inc()
		c.sink.StatusChanged("call failed: " + err.Error())
		return fmt.Errorf("start call: %w", err)
	}

	if err := c.session.Connect(connectionID); err != nil {
		return err
	}
	c.metrics.CallEvents.WithLabelValues("started").Inc()
	c.metrics.CallActive.Set(1)
	c.sink.StatusChanged("connected")

	c.handle = c.poller.Start(c.baseCtx, connectionID, c.publishTranscript, func(err error) {
		// Transient fetch failures are reported but never end the call.
		c.metrics.PollCycles.WithLabelValues("error").Inc()
		log.Printf("transcript poll for %s: %v", connectionID, err)
	})
	return nil
}

// StopCall hangs up the active call. The local session always ends: a remote
// stop failure is returned as a warning, with the session already back in
// idle. Whether the remote leg stays connected in that case is unknown; the
// warning is the operator's cue to check.
func (c *Controller) StopCall(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State() != StateActive {
		return ErrNoActiveCall
	}
	connectionID := c.session.ConnectionID()
	if err := c.session.BeginHangup(); err != nil {
		return err
	}
	c.sink.StatusChanged("ending call")

	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}

	stopErr := c.api.StopCall(ctx, connectionID)

	_ = c.session.Finish()
	c.metrics.CallActive.Set(0)
	c.metrics.TranscriptLines.Set(0)
	c.sink.StatusChanged("call ended")

	if stopErr != nil {
		c.metrics.CallEvents.WithLabelValues("stop_warning").Inc()
		log.Printf("stop call %s: remote hangup failed, call ended locally anyway: %v", connectionID, stopErr)
		return fmt.Errorf("remote hangup failed: %w", stopErr)
	}
	c.metrics.CallEvents.WithLabelValues("stopped").Inc()
	return nil
}

// Status returns a snapshot of the session.
func (c *Controller) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

func (c *Controller) publishTranscript(lines []string) {
	c.metrics.PollCycles.WithLabelValues("ok").Inc()
	c.metrics.TranscriptLines.Set(float64(len(lines)))
	c.sink.TranscriptUpdated(lines)
}
