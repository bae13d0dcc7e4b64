package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const runtimeDirEnv = "DAWPRESENCE_RUNTIME_DIR"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeChannel()
	c.normalizeLogging()
	c.normalizeClients()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	if value, ok := os.LookupEnv(runtimeDirEnv); ok && strings.TrimSpace(value) != "" {
		c.Paths.RuntimeDir = value
	}
	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		c.Paths.RuntimeDir = defaultRuntimeDir()
	}
	if c.Paths.RuntimeDir, err = expandPath(strings.TrimSpace(c.Paths.RuntimeDir)); err != nil {
		return fmt.Errorf("paths.runtime_dir: %w", err)
	}

	if strings.TrimSpace(c.Paths.DaemonExecutable) == "" {
		c.Paths.DaemonExecutable = filepath.Join(c.Paths.DataDir, "bin", defaultDaemonBinaryName)
	}
	if c.Paths.DaemonExecutable, err = expandPath(strings.TrimSpace(c.Paths.DaemonExecutable)); err != nil {
		return fmt.Errorf("paths.daemon_executable: %w", err)
	}
	return nil
}

func (c *Config) normalizeChannel() {
	c.Channel.Name = strings.TrimSpace(c.Channel.Name)
	if c.Channel.Name == "" {
		c.Channel.Name = defaultChannelName
	}
	if c.Channel.ConnectTimeoutSeconds == 0 {
		c.Channel.ConnectTimeoutSeconds = defaultConnectTimeoutSeconds
	}
	if c.Channel.WriteTimeoutSeconds == 0 {
		c.Channel.WriteTimeoutSeconds = defaultWriteTimeoutSeconds
	}
	if c.Channel.MaxFrameBytes == 0 {
		c.Channel.MaxFrameBytes = defaultMaxFrameBytes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeClients() {
	normalized := make(map[string]string, len(c.Clients))
	for host, id := range c.Clients {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		normalized[host] = strings.TrimSpace(id)
	}
	c.Clients = normalized
}

func defaultRuntimeDir() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return base
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("dawpresence-%d", os.Getuid()))
}
