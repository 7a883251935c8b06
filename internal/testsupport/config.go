package testsupport

import (
	"path/filepath"
	"testing"

	"ntfybridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The listen topic defaults to "bridge-test".
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Ntfy.Topic = "bridge-test"
	cfgVal.Ntfy.RequestTimeout = 2
	cfgVal.Paths.Inbox = filepath.Join(base, "mail", "inbox")
	cfgVal.Paths.Outbox = filepath.Join(base, "mail", "outbox")
	cfgVal.Paths.LogDir = filepath.Join(base, "state")
	cfgVal.Query.TrainingLog = filepath.Join(base, "training.log")
	cfgVal.Bridge.PollInterval = 1

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

// WithNtfy points the config at a fake server.
func WithNtfy(server *FakeNtfy) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ntfy.BaseURL = server.URL()
	}
}

// WithTopics sets the listen and reply topics.
func WithTopics(listen, reply string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ntfy.Topic = listen
		b.cfg.Ntfy.NotifyTopic = reply
	}
}

// WithQueriesDisabled turns off query routing.
func WithQueriesDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Query.Enabled = false
	}
}

// WithEnsuredDirectories creates the mailbox and state directories.
func WithEnsuredDirectories() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
	}
}
