package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"dawpresence/internal/channel"
)

// ConfigEnv carries the configuration path to a spawned daemon, whose only
// positional argument is the host name.
const ConfigEnv = "DAWPRESENCE_CONFIG"

// DefaultReachTimeout bounds the liveness dial that precedes an optional
// spawn.
const DefaultReachTimeout = 250 * time.Millisecond

var (
	// ErrExecutableMissing reports that the daemon executable is absent or
	// not executable. No process is started.
	ErrExecutableMissing = errors.New("daemon executable missing")
	// ErrSpawnFailure reports that the daemon process could not be started.
	ErrSpawnFailure = errors.New("daemon spawn failed")
	// ErrDaemonNotRunning indicates no live daemon was found.
	ErrDaemonNotRunning = errors.New("daemon not running")
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
}

// Launch starts a detached daemon process for host and returns its pid.
// The process inherits no stdio and is released immediately.
func Launch(executablePath, host string, opts LaunchOptions) (int, error) {
	executablePath = strings.TrimSpace(executablePath)
	if err := CheckExecutable(executablePath); err != nil {
		return 0, err
	}

	proc := exec.Command(executablePath, host)
	proc.SysProcAttr = sysProcAttr()
	proc.Env = os.Environ()
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		proc.Env = append(proc.Env, ConfigEnv+"="+cfg)
	}
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSpawnFailure, err)
	}
	pid := proc.Process.Pid
	if err := proc.Process.Release(); err != nil {
		return pid, fmt.Errorf("%w: release process: %w", ErrSpawnFailure, err)
	}
	return pid, nil
}

// CheckExecutable verifies that path names a file the current user may
// execute. Failures wrap ErrExecutableMissing.
func CheckExecutable(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: executable path is empty", ErrExecutableMissing)
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExecutableMissing, path, err)
	}
	return nil
}

// Reachable reports whether a daemon accepts connections on the channel within
// timeout.
func Reachable(ctx context.Context, channelPath string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultReachTimeout
	}
	conn, err := channel.Dial(ctx, channelPath, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// SpawnResult captures the outcome of a spawn request.
type SpawnResult struct {
	PID    int
	Reused bool
}

// Launcher applies the spawn policy for one channel. By default every call
// starts a new daemon; with CheckRunning a live daemon is reused.
type Launcher struct {
	Executable   string
	ChannelPath  string
	ConfigPath   string
	CheckRunning bool
	ReachTimeout time.Duration
}

// Spawn ensures a daemon for host is starting or running.
func (l Launcher) Spawn(ctx context.Context, host string) (SpawnResult, error) {
	if l.CheckRunning && l.ChannelPath != "" && Reachable(ctx, l.ChannelPath, l.ReachTimeout) {
		return SpawnResult{Reused: true}, nil
	}
	pid, err := Launch(l.Executable, host, LaunchOptions{ConfigPath: l.ConfigPath})
	if err != nil {
		return SpawnResult{}, err
	}
	return SpawnResult{PID: pid}, nil
}

// WaitForShutdown waits until the channel no longer has an owner.
func WaitForShutdown(channelPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		inUse, err := channel.InUse(channelPath)
		if err != nil {
			return err
		}
		if !inUse {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not release %s within %s", channelPath, timeout)
}
