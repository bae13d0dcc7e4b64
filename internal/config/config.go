package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dawpresence/internal/channel"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and install location configuration.
type Paths struct {
	DataDir          string `toml:"data_dir"`
	LogDir           string `toml:"log_dir"`
	RuntimeDir       string `toml:"runtime_dir"`
	DaemonExecutable string `toml:"daemon_executable"`
}

// Channel contains the local byte-stream channel settings shared by the
// emitter and the daemon.
type Channel struct {
	Name                  string `toml:"name"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
	WriteTimeoutSeconds   int    `toml:"write_timeout_seconds"`
	MaxFrameBytes         int    `toml:"max_frame_bytes"`
}

// Spawn controls how the emitter starts the daemon.
type Spawn struct {
	// CheckRunning checks the channel before spawning and reuses a live
	// daemon. When false every activation starts a new daemon process.
	CheckRunning bool `toml:"check_running"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dawpresence.
//
// Configuration sections:
//   - Paths: data, log, and runtime directories plus the daemon executable
//   - Channel: channel name, connect/write timeouts, frame size limit
//   - Spawn: daemon spawn policy
//   - Logging: log format, level, and retention
//   - Clients: audio host name to presence client identifier table
type Config struct {
	Paths   Paths             `toml:"paths"`
	Channel Channel           `toml:"channel"`
	Spawn   Spawn             `toml:"spawn"`
	Logging Logging           `toml:"logging"`
	Clients map[string]string `toml:"clients"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dawpresence/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A [clients] table in the file replaces the built-in one.
		cfg.Clients = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if cfg.Clients == nil {
			cfg.Clients = Default().Clients
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dawpresence.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon and emitter write to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.RuntimeDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ChannelPath returns the filesystem location of the channel socket.
func (c *Config) ChannelPath() string {
	return channel.Path(c.Paths.RuntimeDir, c.Channel.Name)
}

// PIDPath returns the pid file written by a running daemon.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.RuntimeDir, c.Channel.Name+".pid")
}

// ConnectTimeout returns the emitter's bounded connect wait.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Channel.ConnectTimeoutSeconds) * time.Second
}

// WriteTimeout returns the per-frame write deadline used by the emitter.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Channel.WriteTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
