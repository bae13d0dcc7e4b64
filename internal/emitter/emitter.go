package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"dawpresence/internal/channel"
	"dawpresence/internal/config"
	"dawpresence/internal/daemonctl"
	"dawpresence/internal/frame"
	"dawpresence/internal/logging"
)

// Lifecycle frame text.
const (
	DetailsInitialized = "Initialized VST Plugin"
	DetailsProcessing  = "Processing Audio"
)

// ErrNotConnected reports a send attempted without a daemon connection.
var ErrNotConnected = errors.New("not connected to relay daemon")

// Spawner starts the relay daemon for a host.
type Spawner interface {
	Spawn(ctx context.Context, host string) (daemonctl.SpawnResult, error)
}

// DialFunc opens a channel connection with a bounded wait.
type DialFunc func(ctx context.Context, path string, timeout time.Duration) (net.Conn, error)

// Options configures an Emitter.
type Options struct {
	ChannelPath    string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	// MaxFrameBytes must not exceed the daemon's limit; oversized updates
	// are refused locally so the session stays usable.
	MaxFrameBytes int
	Spawner        Spawner
	Dial           DialFunc
	Logger         *slog.Logger
}

// Emitter owns the client side of one channel session.
type Emitter struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	host   string
	conn   net.Conn
	writer *frame.Writer
}

// New creates an emitter. A nil Dial uses channel.Dial; a nil Spawner skips
// spawning.
func New(opts Options) *Emitter {
	if opts.Dial == nil {
		opts.Dial = channel.Dial
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = channel.DefaultConnectTimeout
	}
	return &Emitter{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "emitter"),
	}
}

// NewFromConfig wires an emitter to the configured channel and daemon
// executable. configPath is forwarded to spawned daemons.
func NewFromConfig(cfg *config.Config, configPath string, logger *slog.Logger) *Emitter {
	return New(Options{
		ChannelPath:    cfg.ChannelPath(),
		ConnectTimeout: cfg.ConnectTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		MaxFrameBytes:  cfg.Channel.MaxFrameBytes,
		Spawner: daemonctl.Launcher{
			Executable:   cfg.Paths.DaemonExecutable,
			ChannelPath:  cfg.ChannelPath(),
			ConfigPath:   configPath,
			CheckRunning: cfg.Spawn.CheckRunning,
		},
		Logger: logger,
	})
}

// Initialize records host, makes sure a daemon is running, connects, and
// announces readiness. A spawn failure does not prevent the connect attempt
// since a daemon may already be serving the channel.
func (e *Emitter) Initialize(ctx context.Context, host string) {
	e.mu.Lock()
	e.host = host
	e.mu.Unlock()

	e.logger.Info("host application detected",
		logging.String(logging.FieldEventType, "emitter_initialize"),
		logging.String(logging.FieldHost, host))

	e.spawn(ctx, host)
	e.connect(ctx)
	_ = e.Send(DetailsInitialized, "Ready in "+host)
}

// Activate reports a processing state change.
func (e *Emitter) Activate(active bool) {
	host := e.Host()
	if active {
		_ = e.Send(DetailsProcessing, "Active in "+host)
		return
	}
	_ = e.Send(DetailsInitialized, "Inactive in "+host)
}

// Terminate closes the connection without sending a frame. It is safe to
// call more than once.
func (e *Emitter) Terminate() {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.writer = nil
	e.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		e.logger.Debug("close channel connection", logging.Error(err))
	}
	e.logger.Info("disconnected from relay daemon", logging.String(logging.FieldEventType, "emitter_terminate"))
}

// Host returns the host name captured at initialization.
func (e *Emitter) Host() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.host
}

// Connected reports whether a daemon connection is open.
func (e *Emitter) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

// Send writes one frame. It is fire-and-forget: the error is informational,
// already logged, and callers may discard it. Without a connection the
// update is dropped; it is never queued or retried.
func (e *Emitter) Send(details, state string) error {
	e.mu.Lock()
	writer := e.writer
	e.mu.Unlock()

	if writer == nil {
		e.logger.Info("presence update not sent; no connection",
			logging.String(logging.FieldDetails, details),
			logging.String(logging.FieldState, state))
		return ErrNotConnected
	}

	if err := writer.Write(frame.Event{Details: details, State: state}); err != nil {
		logging.WarnWithContext(e.logger, "presence update not sent", "emitter_send_failed",
			logging.String(logging.FieldDetails, details),
			logging.String(logging.FieldState, state),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the relay daemon log"),
		)
		return err
	}
	e.logger.Info("sent presence update",
		logging.String(logging.FieldDetails, details),
		logging.String(logging.FieldState, state))
	return nil
}

func (e *Emitter) spawn(ctx context.Context, host string) {
	if e.opts.Spawner == nil {
		return
	}
	res, err := e.opts.Spawner.Spawn(ctx, host)
	switch {
	case errors.Is(err, daemonctl.ErrExecutableMissing):
		logging.WarnWithContext(e.logger, "relay daemon executable not found; not spawning", "spawn_executable_missing",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install dawpresenced at paths.daemon_executable"),
		)
	case err != nil:
		logging.WarnWithContext(e.logger, "could not start relay daemon", "spawn_failed",
			logging.Error(err),
		)
	case res.Reused:
		e.logger.Info("relay daemon already running", logging.String(logging.FieldEventType, "spawn_reused"))
	default:
		e.logger.Info("relay daemon spawned",
			logging.String(logging.FieldEventType, "spawn_started"),
			logging.Int("pid", res.PID))
	}
}

func (e *Emitter) connect(ctx context.Context) {
	conn, err := e.opts.Dial(ctx, e.opts.ChannelPath, e.opts.ConnectTimeout)
	if err != nil {
		logging.WarnWithContext(e.logger, "could not connect to relay daemon", "connect_failed",
			logging.String(logging.FieldChannel, e.opts.ChannelPath),
			logging.Error(fmt.Errorf("connect: %w", err)),
			logging.String(logging.FieldErrorHint, "check that dawpresenced is running for this host"),
		)
		return
	}

	e.mu.Lock()
	if e.conn != nil {
		_ = e.conn.Close()
	}
	e.conn = conn
	e.writer = frame.NewWriter(conn, e.opts.WriteTimeout, e.opts.MaxFrameBytes)
	e.mu.Unlock()

	e.logger.Info("connected to relay daemon",
		logging.String(logging.FieldEventType, "emitter_connected"),
		logging.String(logging.FieldChannel, e.opts.ChannelPath))
}
