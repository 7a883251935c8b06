package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Ntfy contains connection settings for the push-notification service.
type Ntfy struct {
	BaseURL        string `toml:"base_url" env:"NTFY_BRIDGE_BASE_URL"`
	Topic          string `toml:"topic" env:"NTFY_BRIDGE_TOPIC"`
	NotifyTopic    string `toml:"notify_topic" env:"NTFY_BRIDGE_NOTIFY_TOPIC"`
	RequestTimeout int    `toml:"request_timeout"`
	PollWindow     string `toml:"poll_window"`
}

// Paths contains mailbox file locations and the daemon state directory.
type Paths struct {
	Inbox  string `toml:"inbox" env:"NTFY_BRIDGE_INBOX"`
	Outbox string `toml:"outbox" env:"NTFY_BRIDGE_OUTBOX"`
	LogDir string `toml:"log_dir"`
}

// Bridge contains relay loop timing and deduplication settings.
type Bridge struct {
	PollInterval  int    `toml:"poll_interval"`
	SeenCapacity  int    `toml:"seen_capacity"`
	StartupMarker string `toml:"startup_marker"`
	StartupTitle  string `toml:"startup_title"`
}

// Query contains settings for the inbound query mini-protocol.
type Query struct {
	Enabled         bool     `toml:"enabled"`
	TrainingLog     string   `toml:"training_log" env:"TRAINING_LOG"`
	TrainingProcess string   `toml:"training_process" env:"TRAINING_PROCESS"`
	MonitorProcess  string   `toml:"monitor_process" env:"MONITOR_PROCESS"`
	BridgeProcess   string   `toml:"bridge_process"`
	Interpreter     string   `toml:"interpreter"`
	ProcessKeywords []string `toml:"process_keywords"`
	CommandTimeout  int      `toml:"command_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for ntfybridge.
//
// Configuration sections by subsystem:
//   - Ntfy: topic names and transport timeouts
//   - Paths: inbox/outbox files and the daemon state directory
//   - Bridge: poll interval and deduplication bounds
//   - Query: query routing and system introspection targets
//   - Logging: log format, level, and rotation
type Config struct {
	Ntfy    Ntfy    `toml:"ntfy"`
	Paths   Paths   `toml:"paths"`
	Bridge  Bridge  `toml:"bridge"`
	Query   Query   `toml:"query"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
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
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ntfybridge.toml")
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

// EnsureDirectories creates the directories holding the mailbox files and daemon state.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, filepath.Dir(c.Paths.Inbox), filepath.Dir(c.Paths.Outbox)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ListenTopic returns the topic polled for inbound messages.
func (c *Config) ListenTopic() string {
	return strings.TrimSpace(c.Ntfy.Topic)
}

// ReplyTopic returns the topic that receives query responses. It falls back
// to the listen topic when no notify topic is configured.
func (c *Config) ReplyTopic() string {
	if topic := strings.TrimSpace(c.Ntfy.NotifyTopic); topic != "" {
		return topic
	}
	return c.ListenTopic()
}

// RequestTimeout returns the per-request ntfy timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Ntfy.RequestTimeout) * time.Second
}

// PollInterval returns the delay between bridge cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Bridge.PollInterval) * time.Second
}

// CommandTimeout bounds each system inspector subprocess.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Query.CommandTimeout) * time.Second
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "ntfybridge.lock")
}

// PIDPath returns the daemon pid file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "ntfybridge.pid")
}

// LogPath returns the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "ntfybridge.log")
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
