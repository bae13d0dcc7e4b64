package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dawpresence/internal/channel"
	"dawpresence/internal/frame"
	"dawpresence/internal/logging"
	"dawpresence/internal/presence"
)

// acceptRetryDelay spaces accept attempts after an unexpected failure.
const acceptRetryDelay = 100 * time.Millisecond

// LoopState names the listener loop's current state.
type LoopState string

const (
	LoopStopped   LoopState = "stopped"
	LoopListening LoopState = "listening"
	LoopServing   LoopState = "serving"
)

// Dispatcher receives every decoded event in arrival order.
type Dispatcher interface {
	Dispatch(frame.Event)
	State() presence.State
}

// Options configures a Daemon.
type Options struct {
	ChannelPath   string
	Dispatcher    Dispatcher
	Logger        *slog.Logger
	MaxFrameBytes int
}

// Daemon serves one channel, one connection at a time.
type Daemon struct {
	path       string
	dispatcher Dispatcher
	logger     *slog.Logger
	maxFrame   int

	mu       sync.Mutex
	listener *channel.Listener
	cancel   context.CancelFunc
	done     chan struct{}

	running  atomic.Bool
	state    atomic.Value // LoopState
	connID   atomic.Value // string
	conns    atomic.Int64
	accepted atomic.Int64
	rejected atomic.Int64
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	LoopState      LoopState
	ChannelPath    string
	ConnectionID   string
	Connections    int64
	FramesAccepted int64
	FramesRejected int64
	Presence       presence.State
}

// New constructs a daemon for the channel at opts.ChannelPath.
func New(opts Options) (*Daemon, error) {
	if strings.TrimSpace(opts.ChannelPath) == "" {
		return nil, errors.New("daemon requires a channel path")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("daemon requires a dispatcher")
	}
	d := &Daemon{
		path:       opts.ChannelPath,
		dispatcher: opts.Dispatcher,
		logger:     logging.NewComponentLogger(opts.Logger, "daemon"),
		maxFrame:   opts.MaxFrameBytes,
	}
	d.state.Store(LoopStopped)
	d.connID.Store("")
	return d, nil
}

// Start claims the channel and launches the listener loop on its own
// goroutine. The loop runs until ctx is cancelled or Stop is called.
// Start fails with channel.ErrChannelBusy when another daemon serves the
// channel.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ln, err := channel.Listen(d.path)
	if err != nil {
		return fmt.Errorf("listen on channel: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.listener = ln
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)
	d.state.Store(LoopListening)

	go d.loop(loopCtx, ln, d.done)

	d.logger.Info("relay daemon listening",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String(logging.FieldChannel, d.path))
	return nil
}

// Stop cancels the loop, waits for it to exit, and releases the channel.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	d.cancel()
	<-d.done
	if err := d.listener.Close(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release channel", "channel_cleanup_failed",
			logging.String(logging.FieldChannel, d.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually if the next start fails"),
		)
	}
	d.listener = nil
	d.cancel = nil
	d.done = nil
	d.running.Store(false)
	d.logger.Info("relay daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		LoopState:      d.state.Load().(LoopState),
		ChannelPath:    d.path,
		ConnectionID:   d.connID.Load().(string),
		Connections:    d.conns.Load(),
		FramesAccepted: d.accepted.Load(),
		FramesRejected: d.rejected.Load(),
		Presence:       d.dispatcher.State(),
	}
}

func (d *Daemon) loop(ctx context.Context, ln *channel.Listener, done chan struct{}) {
	defer close(done)
	defer d.state.Store(LoopStopped)

	for {
		d.state.Store(LoopListening)
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.WarnWithContext(d.logger, "accept failed; retrying", "channel_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the runtime directory and socket permissions"),
				logging.String(logging.FieldImpact, "emitters may fail to connect"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}
		d.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Daemon) frameLimit() int {
	if d.maxFrame <= 0 {
		return frame.DefaultMaxLineBytes
	}
	return d.maxFrame
}

func (d *Daemon) serve(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	logger := d.logger.With(logging.String(logging.FieldConnID, id))

	d.state.Store(LoopServing)
	d.connID.Store(id)
	d.conns.Add(1)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
		d.connID.Store("")
	}()
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "connection handler panicked; connection dropped", "connection_panic",
				logging.Any("panic", r))
		}
	}()

	logger.Info("client connected", logging.String(logging.FieldEventType, "client_connected"))

	reader := frame.NewReader(conn, d.maxFrame)
	for {
		line, err := reader.ReadLine()
		if errors.Is(err, frame.ErrLineTooLong) {
			d.rejected.Add(1)
			logging.WarnWithContext(logger, "discarding oversized frame", "frame_format_error",
				logging.Error(err),
				logging.Int("limit_bytes", d.frameLimit()),
				logging.String(logging.FieldErrorHint, "raise channel.max_frame_bytes or shorten the update"),
				logging.String(logging.FieldImpact, "this update is dropped"),
			)
			continue
		}
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, io.EOF):
				logger.Info("client disconnected", logging.String(logging.FieldEventType, "client_disconnected"))
			default:
				logging.WarnWithContext(logger, "connection read failed; dropping client", "connection_read_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "updates from this emitter stop until it reconnects"),
				)
			}
			return
		}

		ev, err := frame.Decode(line)
		if err != nil {
			d.rejected.Add(1)
			logging.WarnWithContext(logger, "discarding malformed frame", "frame_format_error",
				logging.String("line", line),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "emitter must send \"details;state\" lines"),
				logging.String(logging.FieldImpact, "this update is dropped"),
			)
			continue
		}
		d.accepted.Add(1)
		logger.Debug("frame received",
			logging.String(logging.FieldDetails, ev.Details),
			logging.String(logging.FieldState, ev.State))
		d.dispatcher.Dispatch(ev)
	}
}
