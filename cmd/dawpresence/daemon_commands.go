package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dawpresence/internal/channel"
	"dawpresence/internal/config"
	"dawpresence/internal/daemonctl"
	"dawpresence/internal/daemonrun"
	"dawpresence/internal/presence"
)

const (
	stopGracePeriod       = 5 * time.Second
	channelReleaseTimeout = 2 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	spawnCmd := &cobra.Command{
		Use:   "spawn <host-application-name>",
		Short: "Start a relay daemon for an audio host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			launcher := daemonctl.Launcher{
				Executable:   cfg.Paths.DaemonExecutable,
				ChannelPath:  cfg.ChannelPath(),
				ConfigPath:   ctx.spawnConfigPath(),
				CheckRunning: cfg.Spawn.CheckRunning,
			}
			result, err := launcher.Spawn(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if result.Reused {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintf(stdout, "Daemon launched (pid %d)\n", result.PID)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the relay daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cfg.PIDPath(), stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			if err := daemonctl.WaitForShutdown(cfg.ChannelPath(), channelReleaseTimeout); err != nil {
				return fmt.Errorf("channel not released: %w", err)
			}
			fmt.Fprintln(stdout, "Channel released")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show relay daemon and configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			writeSection(stdout, "Relay Daemon", daemonStatusLines(cmd.Context(), cfg), colorize)
			fmt.Fprintln(stdout)
			writeSection(stdout, "Configuration", configStatusLines(cfg, ctx.configPath, ctx.configExists), colorize)
			return nil
		},
	}

	var logLevel string
	runCmd := &cobra.Command{
		Use:   "daemon <host-application-name>",
		Short: "Run the relay daemon in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return daemonrun.Run(cmd.Context(), ctx.configValue(), args[0], daemonrun.Options{
				LogLevel: logLevel,
				Console:  cmd.OutOrStdout(),
			})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	return []*cobra.Command{spawnCmd, stopCmd, statusCmd, runCmd}
}

func daemonStatusLines(ctx context.Context, cfg *config.Config) []statusLine {
	lines := make([]statusLine, 0, 4)

	alive, pid, err := daemonctl.ProcessInfo(cfg.PIDPath())
	switch {
	case err != nil:
		lines = append(lines, statusLine{Label: "Process", Kind: statusError, Detail: err.Error()})
	case alive:
		lines = append(lines, statusLine{Label: "Process", Kind: statusOK, Detail: fmt.Sprintf("Running (pid %d)", pid)})
	case pid > 0:
		lines = append(lines, statusLine{Label: "Process", Kind: statusWarn, Detail: fmt.Sprintf("Stale pid file (pid %d)", pid)})
	default:
		lines = append(lines, statusLine{Label: "Process", Kind: statusWarn, Detail: "Not running (run `dawpresence spawn <host>`)"})
	}

	path := cfg.ChannelPath()
	inUse, err := channel.InUse(path)
	switch {
	case err != nil:
		lines = append(lines, statusLine{Label: "Channel", Kind: statusError, Detail: err.Error()})
	case !inUse:
		lines = append(lines, statusLine{Label: "Channel", Kind: statusInfo, Detail: "Unclaimed " + path})
	case daemonctl.Reachable(ctx, path, daemonctl.DefaultReachTimeout):
		lines = append(lines, statusLine{Label: "Channel", Kind: statusOK, Detail: "Accepting " + path})
	default:
		lines = append(lines, statusLine{Label: "Channel", Kind: statusWarn, Detail: "Claimed but not accepting " + path})
	}

	if err := daemonctl.CheckExecutable(cfg.Paths.DaemonExecutable); err != nil {
		lines = append(lines, statusLine{Label: "Executable", Kind: statusError, Detail: "Missing " + cfg.Paths.DaemonExecutable})
	} else {
		lines = append(lines, statusLine{Label: "Executable", Kind: statusOK, Detail: cfg.Paths.DaemonExecutable})
	}

	logPath := filepath.Join(cfg.Paths.LogDir, daemonrun.LogFileName)
	if info, err := os.Stat(logPath); err == nil {
		detail := fmt.Sprintf("%s (%s, updated %s)", logPath, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
		lines = append(lines, statusLine{Label: "Log", Kind: statusInfo, Detail: detail})
	} else {
		lines = append(lines, statusLine{Label: "Log", Kind: statusInfo, Detail: "No log yet"})
	}
	return lines
}

func configStatusLines(cfg *config.Config, path string, exists bool) []statusLine {
	source := statusLine{Label: "Config file", Kind: statusOK, Detail: path}
	if !exists {
		source = statusLine{Label: "Config file", Kind: statusInfo, Detail: "Defaults (run `dawpresence config init`)"}
	}
	kind := statusOK
	if len(cfg.Clients) == 0 {
		kind = statusWarn
	}
	return []statusLine{
		source,
		{Label: "Channel name", Kind: statusInfo, Detail: cfg.Channel.Name},
		{Label: "Check running", Kind: statusInfo, Detail: yesNo(cfg.Spawn.CheckRunning)},
		{Label: "Mapped hosts", Kind: kind, Detail: fmt.Sprintf("%d", len(presence.ClientTable(cfg.Clients).Hosts()))},
	}
}
