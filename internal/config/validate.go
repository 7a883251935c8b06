package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable. A missing topic is not an error
// here because inbox and reply commands never talk to ntfy; use ValidateDaemon
// before starting the relay.
func (c *Config) Validate() error {
	if err := c.validateNtfy(); err != nil {
		return err
	}
	if err := c.validateBridge(); err != nil {
		return err
	}
	if err := c.validateQuery(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateDaemon ensures the settings needed by the relay daemon are present.
func (c *Config) ValidateDaemon() error {
	if c.ListenTopic() == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("ntfy.topic is required. Set NTFY_BRIDGE_TOPIC, pass --topic, or edit %s (create with 'ntfybridge config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateNtfy() error {
	parsed, err := url.Parse(c.Ntfy.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("ntfy.base_url %q must be an absolute URL", c.Ntfy.BaseURL)
	}
	if c.Ntfy.RequestTimeout <= 0 {
		return errors.New("ntfy.request_timeout must be positive (seconds)")
	}
	if _, err := time.ParseDuration(c.Ntfy.PollWindow); err != nil && !isUnixTimestamp(c.Ntfy.PollWindow) {
		return fmt.Errorf("ntfy.poll_window %q must be a duration such as 30s", c.Ntfy.PollWindow)
	}
	return nil
}

func (c *Config) validateBridge() error {
	if c.Bridge.PollInterval <= 0 {
		return errors.New("bridge.poll_interval must be positive (seconds)")
	}
	if c.Bridge.SeenCapacity < 0 {
		return errors.New("bridge.seen_capacity must not be negative")
	}
	return nil
}

func (c *Config) validateQuery() error {
	if c.Query.CommandTimeout <= 0 {
		return errors.New("query.command_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation settings must not be negative")
	}
	return nil
}

func isUnixTimestamp(value string) bool {
	if value == "" {
		return false
	}
	return strings.Trim(value, "0123456789") == ""
}
