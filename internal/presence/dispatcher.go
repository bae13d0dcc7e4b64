package presence

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"dawpresence/internal/frame"
	"dawpresence/internal/logging"
)

// State is the last-known presence tuple. It is never persisted.
type State struct {
	Details   string
	State     string
	StartedAt time.Time
	Updates   int
	Failures  int
	LastError string
}

// Dispatcher forwards decoded events to a presence client.
type Dispatcher struct {
	client Client
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher builds a dispatcher around client. A nil logger discards
// output.
func NewDispatcher(client Client, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: client,
		logger: logging.NewComponentLogger(logger, "presence"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch records ev as the current state and pushes it to the client with
// a fresh start timestamp. Duplicates are forwarded as-is. Client errors are
// logged and absorbed.
func (d *Dispatcher) Dispatch(ev frame.Event) {
	activity := Activity{Details: ev.Details, State: ev.State, StartedAt: d.now()}

	d.mu.Lock()
	d.state.Details = activity.Details
	d.state.State = activity.State
	d.state.StartedAt = activity.StartedAt
	d.state.Updates++
	d.mu.Unlock()

	if d.client == nil {
		d.logger.Debug("presence update dropped; no client",
			logging.String(logging.FieldDetails, ev.Details),
			logging.String(logging.FieldState, ev.State))
		return
	}

	err := d.client.SetPresence(activity)
	if err == nil {
		d.logger.Info("presence updated",
			logging.String(logging.FieldEventType, "presence_updated"),
			logging.String(logging.FieldDetails, ev.Details),
			logging.String(logging.FieldState, ev.State))
		return
	}

	d.mu.Lock()
	d.state.Failures++
	d.state.LastError = err.Error()
	d.mu.Unlock()

	if errors.Is(err, ErrClientNotReady) {
		d.logger.Debug("presence update dropped; client not ready",
			logging.String(logging.FieldDetails, ev.Details),
			logging.String(logging.FieldState, ev.State))
		return
	}
	logging.WarnWithContext(d.logger, "presence client rejected update", "presence_client_error",
		logging.String(logging.FieldDetails, ev.Details),
		logging.String(logging.FieldState, ev.State),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the presence display application is running"),
	)
}

// State returns a snapshot of the last dispatched presence.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
