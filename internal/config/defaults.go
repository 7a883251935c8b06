package config

const (
	defaultConfigPath      = "~/.config/ntfybridge/config.toml"
	defaultNtfyBaseURL     = "https://ntfy.sh"
	defaultRequestTimeout  = 10
	defaultPollWindow      = "30s"
	defaultInboxPath       = "~/.ntfy_inbox"
	defaultOutboxPath      = "~/.ntfy_outbox"
	defaultLogDir          = "~/.local/share/ntfybridge"
	defaultPollInterval    = 5
	defaultSeenCapacity    = 10000
	defaultStartupMarker   = "Bridge started"
	defaultStartupTitle    = "Remote Bridge"
	defaultTrainingLog     = "/tmp/training.log"
	defaultTrainingProcess = "train"
	defaultMonitorProcess  = "training_monitor"
	defaultBridgeProcess   = "ntfybridge"
	defaultInterpreter     = "python"
	defaultCommandTimeout  = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultLogMaxAgeDays   = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Ntfy: Ntfy{
			BaseURL:        defaultNtfyBaseURL,
			RequestTimeout: defaultRequestTimeout,
			PollWindow:     defaultPollWindow,
		},
		Paths: Paths{
			Inbox:  defaultInboxPath,
			Outbox: defaultOutboxPath,
			LogDir: defaultLogDir,
		},
		Bridge: Bridge{
			PollInterval:  defaultPollInterval,
			SeenCapacity:  defaultSeenCapacity,
			StartupMarker: defaultStartupMarker,
			StartupTitle:  defaultStartupTitle,
		},
		Query: Query{
			Enabled:         true,
			TrainingLog:     defaultTrainingLog,
			TrainingProcess: defaultTrainingProcess,
			MonitorProcess:  defaultMonitorProcess,
			BridgeProcess:   defaultBridgeProcess,
			Interpreter:     defaultInterpreter,
			ProcessKeywords: []string{"train", "bridge", "yolo"},
			CommandTimeout:  defaultCommandTimeout,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
