package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"dawpresence/internal/channel"
	"dawpresence/internal/daemonctl"
	"dawpresence/internal/testsupport"
)

// recordingDaemon is a stub daemon body that records its argument and the
// inherited config path next to itself.
const recordingDaemon = `out="$(dirname "$0")/spawned"
printf '%s\n%s\n' "$1" "$DAWPRESENCE_CONFIG" > "$out.tmp"
mv "$out.tmp" "$out"`

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data)
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
	return ""
}

func TestLaunchMissingExecutable(t *testing.T) {
	_, err := daemonctl.Launch(filepath.Join(t.TempDir(), "dawpresenced"), "Bitwig Studio", daemonctl.LaunchOptions{})
	if !errors.Is(err, daemonctl.ErrExecutableMissing) {
		t.Fatalf("expected ErrExecutableMissing, got %v", err)
	}

	_, err = daemonctl.Launch("  ", "Bitwig Studio", daemonctl.LaunchOptions{})
	if !errors.Is(err, daemonctl.ErrExecutableMissing) {
		t.Fatalf("expected ErrExecutableMissing for empty path, got %v", err)
	}
}

func TestLaunchNonExecutableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dawpresenced")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := daemonctl.Launch(path, "Bitwig Studio", daemonctl.LaunchOptions{})
	if !errors.Is(err, daemonctl.ErrExecutableMissing) {
		t.Fatalf("expected ErrExecutableMissing, got %v", err)
	}
}

func TestLaunchPassesHostAsSoleArgument(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDaemon(recordingDaemon))

	pid, err := daemonctl.Launch(cfg.Paths.DaemonExecutable, "Bitwig Studio", daemonctl.LaunchOptions{ConfigPath: "/etc/dawpresence.toml"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("expected a pid, got %d", pid)
	}

	got := waitForFile(t, filepath.Join(filepath.Dir(cfg.Paths.DaemonExecutable), "spawned"))
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 || lines[0] != "Bitwig Studio" || lines[1] != "/etc/dawpresence.toml" {
		t.Fatalf("unexpected spawn record %q", got)
	}
}

func TestLauncherSpawnsUnconditionallyByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDaemon(recordingDaemon))
	ln, err := channel.Listen(cfg.ChannelPath())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	l := daemonctl.Launcher{Executable: cfg.Paths.DaemonExecutable, ChannelPath: cfg.ChannelPath()}
	res, err := l.Spawn(context.Background(), "Bitwig Studio")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if res.Reused || res.PID == 0 {
		t.Fatalf("expected a fresh spawn, got %+v", res)
	}
	waitForFile(t, filepath.Join(filepath.Dir(cfg.Paths.DaemonExecutable), "spawned"))
}

func TestLauncherReusesLiveDaemonWhenChecking(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDaemon(recordingDaemon), testsupport.WithCheckRunning(true))
	ln, err := channel.Listen(cfg.ChannelPath())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept(context.Background())
		if err == nil {
			_ = conn.Close()
		}
	}()

	l := daemonctl.Launcher{
		Executable:   cfg.Paths.DaemonExecutable,
		ChannelPath:  cfg.ChannelPath(),
		CheckRunning: cfg.Spawn.CheckRunning,
	}
	res, err := l.Spawn(context.Background(), "Bitwig Studio")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if !res.Reused {
		t.Fatalf("expected live daemon to be reused, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cfg.Paths.DaemonExecutable), "spawned")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expected no process to be spawned")
	}
}

func TestLauncherCheckRunningSpawnsWhenAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubDaemon(recordingDaemon))
	l := daemonctl.Launcher{
		Executable:   cfg.Paths.DaemonExecutable,
		ChannelPath:  cfg.ChannelPath(),
		CheckRunning: true,
		ReachTimeout: 50 * time.Millisecond,
	}
	res, err := l.Spawn(context.Background(), "Bitwig Studio")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if res.Reused {
		t.Fatal("expected a spawn when nothing is listening")
	}
}

func TestReachable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if daemonctl.Reachable(context.Background(), cfg.ChannelPath(), 50*time.Millisecond) {
		t.Fatal("expected dial to fail without a listener")
	}
}

func TestWaitForShutdown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ln, err := channel.Listen(cfg.ChannelPath())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := daemonctl.WaitForShutdown(cfg.ChannelPath(), 100*time.Millisecond); err == nil {
		t.Fatal("expected timeout while channel is held")
	}
	_ = ln.Close()
	if err := daemonctl.WaitForShutdown(cfg.ChannelPath(), time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestProcessInfo(t *testing.T) {
	dir := t.TempDir()

	alive, pid, err := daemonctl.ProcessInfo(filepath.Join(dir, "missing.pid"))
	if err != nil || alive || pid != 0 {
		t.Fatalf("missing pid file: alive=%v pid=%d err=%v", alive, pid, err)
	}

	own := filepath.Join(dir, "own.pid")
	if err := daemonctl.WritePIDFile(own); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}
	alive, pid, err = daemonctl.ProcessInfo(own)
	if err != nil || !alive || pid != os.Getpid() {
		t.Fatalf("own pid: alive=%v pid=%d err=%v", alive, pid, err)
	}

	bad := filepath.Join(dir, "bad.pid")
	if err := os.WriteFile(bad, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := daemonctl.ProcessInfo(bad); err == nil {
		t.Fatal("expected error for invalid pid file")
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	pidPath := filepath.Join(t.TempDir(), "DiscordPipe.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	res, err := daemonctl.Stop(pidPath, 2*time.Second)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.PID != cmd.Process.Pid {
		t.Fatalf("expected pid %d, got %d", cmd.Process.Pid, res.PID)
	}
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("process still running after Stop")
	}
	if _, err := os.Stat(pidPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	_, err := daemonctl.Stop(filepath.Join(t.TempDir(), "none.pid"), time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}
