package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

func (c *Config) normalize() error {
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("apply environment overrides: %w", err)
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNtfy()
	c.normalizeBridge()
	c.normalizeQuery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.Inbox) == "" {
		c.Paths.Inbox = defaultInboxPath
	}
	if c.Paths.Inbox, err = expandPath(strings.TrimSpace(c.Paths.Inbox)); err != nil {
		return fmt.Errorf("paths.inbox: %w", err)
	}
	if strings.TrimSpace(c.Paths.Outbox) == "" {
		c.Paths.Outbox = defaultOutboxPath
	}
	if c.Paths.Outbox, err = expandPath(strings.TrimSpace(c.Paths.Outbox)); err != nil {
		return fmt.Errorf("paths.outbox: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNtfy() {
	c.Ntfy.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ntfy.BaseURL), "/")
	if c.Ntfy.BaseURL == "" {
		c.Ntfy.BaseURL = defaultNtfyBaseURL
	}
	c.Ntfy.Topic = strings.TrimSpace(c.Ntfy.Topic)
	c.Ntfy.NotifyTopic = strings.TrimSpace(c.Ntfy.NotifyTopic)
	c.Ntfy.PollWindow = strings.TrimSpace(c.Ntfy.PollWindow)
	if c.Ntfy.PollWindow == "" {
		c.Ntfy.PollWindow = defaultPollWindow
	}
}

func (c *Config) normalizeBridge() {
	c.Bridge.StartupMarker = strings.TrimSpace(c.Bridge.StartupMarker)
	if c.Bridge.StartupMarker == "" {
		c.Bridge.StartupMarker = defaultStartupMarker
	}
	c.Bridge.StartupTitle = strings.TrimSpace(c.Bridge.StartupTitle)
	if c.Bridge.StartupTitle == "" {
		c.Bridge.StartupTitle = defaultStartupTitle
	}
}

func (c *Config) normalizeQuery() {
	c.Query.TrainingLog = strings.TrimSpace(c.Query.TrainingLog)
	if c.Query.TrainingLog == "" {
		c.Query.TrainingLog = defaultTrainingLog
	}
	if expanded, err := expandPath(c.Query.TrainingLog); err == nil {
		c.Query.TrainingLog = expanded
	}
	c.Query.TrainingProcess = strings.TrimSpace(c.Query.TrainingProcess)
	if c.Query.TrainingProcess == "" {
		c.Query.TrainingProcess = defaultTrainingProcess
	}
	c.Query.MonitorProcess = strings.TrimSpace(c.Query.MonitorProcess)
	if c.Query.MonitorProcess == "" {
		c.Query.MonitorProcess = defaultMonitorProcess
	}
	c.Query.BridgeProcess = strings.TrimSpace(c.Query.BridgeProcess)
	if c.Query.BridgeProcess == "" {
		c.Query.BridgeProcess = defaultBridgeProcess
	}
	c.Query.Interpreter = strings.ToLower(strings.TrimSpace(c.Query.Interpreter))
	if c.Query.Interpreter == "" {
		c.Query.Interpreter = defaultInterpreter
	}

	keywords := make([]string, 0, len(c.Query.ProcessKeywords))
	for _, keyword := range c.Query.ProcessKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	c.Query.ProcessKeywords = keywords
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
