package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dawpresence/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The runtime directory lives directly under the system temp dir so channel
// socket paths stay within the Unix socket length limit.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	runtimeDir, err := os.MkdirTemp("", "dp")
	if err != nil {
		t.Fatalf("create runtime dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(runtimeDir) })

	cfgVal := config.Default()
	cfgVal.Paths.DataDir = base
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RuntimeDir = runtimeDir
	cfgVal.Paths.DaemonExecutable = filepath.Join(base, "bin", "dawpresenced")
	cfgVal.Channel.ConnectTimeoutSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithClient maps host to a presence client identifier.
func WithClient(host, clientID string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Clients == nil {
			b.cfg.Clients = map[string]string{}
		}
		b.cfg.Clients[host] = clientID
	}
}

// WithCheckRunning toggles the spawn liveness check.
func WithCheckRunning(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Spawn.CheckRunning = enabled
	}
}

// WithStubDaemon writes an executable shell script at the configured daemon
// path. The script body runs with the host name as $1.
func WithStubDaemon(body string) ConfigOption {
	return func(b *configBuilder) {
		target := b.cfg.Paths.DaemonExecutable
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\n" + body + "\n")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub daemon: %v", err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}
