package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dawpresence/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(tempHome, "run"))
	t.Setenv("DAWPRESENCE_RUNTIME_DIR", "")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "dawpresence")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.DaemonExecutable != filepath.Join(wantData, "bin", "dawpresenced") {
		t.Fatalf("unexpected daemon executable: %q", cfg.Paths.DaemonExecutable)
	}
	if cfg.Paths.RuntimeDir != filepath.Join(tempHome, "run") {
		t.Fatalf("expected runtime dir from XDG_RUNTIME_DIR, got %q", cfg.Paths.RuntimeDir)
	}
	if cfg.Channel.Name != "DiscordPipe" {
		t.Fatalf("unexpected channel name: %q", cfg.Channel.Name)
	}
	if cfg.ConnectTimeout() != 5*time.Second {
		t.Fatalf("unexpected connect timeout: %s", cfg.ConnectTimeout())
	}
	if cfg.Spawn.CheckRunning {
		t.Fatal("expected unconditional spawn by default")
	}
	if got := cfg.Clients["Bitwig Studio"]; got != "1244793162887594121" {
		t.Fatalf("expected Bitwig client id, got %q", got)
	}
	if got := cfg.ChannelPath(); got != filepath.Join(tempHome, "run", "DiscordPipe.sock") {
		t.Fatalf("unexpected channel path: %q", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dawpresence.toml")

	type payload struct {
		Paths struct {
			DataDir    string `toml:"data_dir"`
			RuntimeDir string `toml:"runtime_dir"`
		} `toml:"paths"`
		Channel struct {
			Name                  string `toml:"name"`
			ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
		} `toml:"channel"`
		Spawn struct {
			CheckRunning bool `toml:"check_running"`
		} `toml:"spawn"`
		Clients map[string]string `toml:"clients"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Paths.RuntimeDir = filepath.Join(tempDir, "run")
	custom.Channel.Name = "TestPipe"
	custom.Channel.ConnectTimeoutSeconds = 2
	custom.Spawn.CheckRunning = true
	custom.Clients = map[string]string{" Ableton Live ": " 42 "}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
	t.Setenv("DAWPRESENCE_RUNTIME_DIR", "")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Channel.Name != "TestPipe" {
		t.Fatalf("expected channel name from file, got %q", cfg.Channel.Name)
	}
	if cfg.ConnectTimeout() != 2*time.Second {
		t.Fatalf("expected 2s connect timeout, got %s", cfg.ConnectTimeout())
	}
	if !cfg.Spawn.CheckRunning {
		t.Fatal("expected check_running to be enabled")
	}
	if cfg.Paths.LogDir != filepath.Join(tempDir, "data", "logs") {
		t.Fatalf("expected log dir under data dir, got %q", cfg.Paths.LogDir)
	}
	if len(cfg.Clients) != 1 || cfg.Clients["Ableton Live"] != "42" {
		t.Fatalf("expected file client table to replace defaults, got %v", cfg.Clients)
	}
	if cfg.WriteTimeout() != time.Second {
		t.Fatalf("expected default write timeout, got %s", cfg.WriteTimeout())
	}
}

func TestRuntimeDirEnvOverridesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dawpresence.toml")
	content := "[paths]\nruntime_dir = \"" + filepath.Join(tempDir, "file-run") + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DAWPRESENCE_RUNTIME_DIR", filepath.Join(tempDir, "env-run"))

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.RuntimeDir != filepath.Join(tempDir, "env-run") {
		t.Fatalf("expected runtime dir from env, got %q", cfg.Paths.RuntimeDir)
	}
	if got := cfg.Clients["Bitwig Studio"]; got == "" {
		t.Fatal("expected default clients when file has no [clients] table")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[channel\nname ="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "DiscordPipe") {
		t.Fatalf("sample config missing channel name: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Clients["Bitwig Studio"] == "" {
		t.Fatalf("expected sample to map Bitwig Studio, got %v", cfg.Clients)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Channel.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty channel name")
	}

	cfg = config.Default()
	cfg.Channel.Name = "a/b"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for channel name with separator")
	}

	cfg = config.Default()
	cfg.Channel.ConnectTimeoutSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative connect timeout")
	}

	cfg = config.Default()
	cfg.Channel.MaxFrameBytes = 8
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for tiny frame limit")
	}

	cfg = config.Default()
	cfg.Clients["Cubase"] = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty client id")
	}

	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
