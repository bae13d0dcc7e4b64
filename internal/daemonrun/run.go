package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"dawpresence/internal/channel"
	"dawpresence/internal/config"
	"dawpresence/internal/daemon"
	"dawpresence/internal/daemonctl"
	"dawpresence/internal/logging"
	"dawpresence/internal/presence"
	"dawpresence/internal/presence/discord"
)

// LogFileName is the daemon's log file inside paths.log_dir.
const LogFileName = "dawpresenced.log"

// ErrHostMissing reports a daemon started without a host application name.
var ErrHostMissing = errors.New("host application name not provided")

// PresenceClient is a presence client with its own session loop.
type PresenceClient interface {
	presence.Client
	Run(ctx context.Context) error
}

// PresenceFactory builds the presence client for a resolved identifier.
type PresenceFactory func(clientID string, events presence.Events) PresenceClient

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Console receives human-oriented diagnostics. Defaults to stdout.
	Console io.Writer
	// NewPresenceClient defaults to the Discord adapter.
	NewPresenceClient PresenceFactory
	// Started, when set, is called once the listener loop is running.
	Started func(*daemon.Daemon)
}

// Run starts the relay daemon for host and blocks until ctx is cancelled or
// the process receives SIGINT/SIGTERM. An unmapped host idles without
// listening; a channel already served by another daemon returns nil.
func Run(cmdCtx context.Context, cfg *config.Config, host string, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	host = strings.TrimSpace(host)
	if host == "" {
		fmt.Fprintln(console, ErrHostMissing.Error())
		return ErrHostMissing
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "warn: %v\n", err)
	}

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, logPath := newLogger(cfg, console, level, opts.Development)
	logger = logger.With(logging.String(logging.FieldHost, host))

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "*.log", Exclude: []string{logPath, emitterLogPath(cfg)}},
	)

	clientID, err := presence.ClientTable(cfg.Clients).Lookup(host)
	if err != nil {
		fmt.Fprintf(console, "No client ID configured for host: %s\n", host)
		logging.WarnWithContext(logger, "host not mapped; idling without relay", "unmapped_host",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "add the host to the [clients] table"),
			logging.String(logging.FieldImpact, "no presence updates this session"),
		)
		<-signalCtx.Done()
		return nil
	}

	factory := opts.NewPresenceClient
	if factory == nil {
		factory = func(id string, events presence.Events) PresenceClient {
			return discord.New(id, events)
		}
	}
	client := factory(clientID, presenceEvents(logger))
	dispatcher := presence.NewDispatcher(client, logger)

	d, err := daemon.New(daemon.Options{
		ChannelPath:   cfg.ChannelPath(),
		Dispatcher:    dispatcher,
		Logger:        logger,
		MaxFrameBytes: cfg.Channel.MaxFrameBytes,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, channel.ErrChannelBusy) {
			fmt.Fprintln(console, "Relay daemon already running for this channel.")
			logger.Info("channel already served; exiting",
				logging.String(logging.FieldEventType, "channel_busy"),
				logging.String(logging.FieldChannel, cfg.ChannelPath()))
			return nil
		}
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Close()

	pidPath := cfg.PIDPath()
	if err := daemonctl.WritePIDFile(pidPath); err != nil {
		logging.WarnWithContext(logger, "write pid file failed", "pid_file_failed",
			logging.String("path", pidPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "status and stop commands cannot find this daemon"),
		)
	}
	defer os.Remove(pidPath)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := client.Run(signalCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("presence client stopped", logging.Error(err))
		}
	}()
	defer wg.Wait()

	fmt.Fprintln(console, "Relay daemon is running...")
	logger.Info("relay daemon running",
		logging.String(logging.FieldEventType, "daemon_running"),
		logging.String("client_id", clientID),
		logging.String("log_path", logPath))
	if opts.Started != nil {
		opts.Started(d)
	}

	<-signalCtx.Done()
	logger.Info("relay daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	d.Stop()
	return nil
}

func newLogger(cfg *config.Config, console io.Writer, level string, development bool) (*slog.Logger, string) {
	consoleLogger, err := logging.NewWriterLogger(console, "console", level)
	if err != nil {
		consoleLogger = logging.NewNop()
	}

	logPath := filepath.Join(cfg.Paths.LogDir, LogFileName)
	fileLogger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logPath},
		Development: development,
		SessionID:   uuid.NewString(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to open daemon log %s: %v\n", logPath, err)
		return consoleLogger, logPath
	}
	return logging.TeeLogger(consoleLogger, fileLogger), logPath
}

func presenceEvents(logger *slog.Logger) presence.Events {
	log := logging.NewComponentLogger(logger, "presence-client")
	return presence.Events{
		OnReady: func(clientID string) {
			log.Info("presence client ready",
				logging.String(logging.FieldEventType, "presence_client_ready"),
				logging.String("client_id", clientID))
		},
		OnError: func(err error) {
			logging.WarnWithContext(log, "presence client error", "presence_client_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "make sure Discord is running and logged in"),
			)
		},
		OnPresenceUpdated: func(a presence.Activity) {
			log.Debug("presence client acknowledged update",
				logging.String(logging.FieldDetails, a.Details),
				logging.String(logging.FieldState, a.State))
		},
	}
}

func emitterLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, EmitterLogFileName)
}

// EmitterLogFileName is the emitter's log file inside paths.log_dir.
const EmitterLogFileName = "emitter.log"
