package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateChannel(); err != nil {
		return err
	}
	if err := c.validateClients(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateChannel() error {
	name := strings.TrimSpace(c.Channel.Name)
	if name == "" {
		return errors.New("channel.name must be set")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("channel.name %q must not contain path separators", name)
	}
	if c.Channel.ConnectTimeoutSeconds <= 0 {
		return errors.New("channel.connect_timeout_seconds must be positive")
	}
	if c.Channel.WriteTimeoutSeconds <= 0 {
		return errors.New("channel.write_timeout_seconds must be positive")
	}
	if c.Channel.MaxFrameBytes < 64 {
		return errors.New("channel.max_frame_bytes must be at least 64")
	}
	return nil
}

func (c *Config) validateClients() error {
	for host, id := range c.Clients {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("clients.%q: client id must not be empty", host)
		}
	}
	return nil
}
