package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dawpresence/internal/config"
	"dawpresence/internal/daemonrun"
	"dawpresence/internal/emitter"
	"dawpresence/internal/logging"
)

func newEmitCommand(ctx *commandContext) *cobra.Command {
	var activeFor time.Duration
	var verbose bool

	cmd := &cobra.Command{
		Use:   "emit <host-application-name>",
		Short: "Run the emitter lifecycle as an audio host would",
		Long: "Initializes the emitter for the host (spawning the daemon and connecting), " +
			"reports processing as active, then inactive, and terminates. " +
			"With --active-for=0 the session stays active until interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			var console io.Writer
			if verbose {
				console = cmd.ErrOrStderr()
			}
			logger := emitterLogger(cfg, console)

			e := emitter.NewFromConfig(cfg, ctx.spawnConfigPath(), logger)
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runEmitSession(runCtx, e, args[0], activeFor, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&activeFor, "active-for", 5*time.Second, "How long to report active processing (0 waits for interrupt)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print emitter log lines to stderr")
	return cmd
}

// runEmitSession drives the four lifecycle hooks in host order.
func runEmitSession(ctx context.Context, e *emitter.Emitter, host string, activeFor time.Duration, out io.Writer) error {
	e.Initialize(ctx, host)
	defer e.Terminate()
	if !e.Connected() {
		fmt.Fprintln(out, "Relay daemon unreachable; presence disabled for this session")
		return nil
	}

	e.Activate(true)
	fmt.Fprintf(out, "Active in %s\n", host)

	if activeFor > 0 {
		timer := time.NewTimer(activeFor)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	} else {
		<-ctx.Done()
	}

	e.Activate(false)
	fmt.Fprintf(out, "Inactive in %s\n", host)
	return nil
}

func emitterLogger(cfg *config.Config, console io.Writer) *slog.Logger {
	path := filepath.Join(cfg.Paths.LogDir, daemonrun.EmitterLogFileName)
	fileLogger := logging.NewFileOrNop(path, cfg.Logging.Format, cfg.Logging.Level)
	if console == nil {
		return fileLogger
	}
	consoleLogger, err := logging.NewWriterLogger(console, "console", cfg.Logging.Level)
	if err != nil {
		return fileLogger
	}
	return logging.TeeLogger(fileLogger, consoleLogger)
}
