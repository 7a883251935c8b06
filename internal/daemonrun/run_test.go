package daemonrun

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ntfybridge/internal/config"
	"ntfybridge/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ntfy.Topic = "alerts"
	cfg.Paths.Inbox = filepath.Join(dir, "inbox")
	cfg.Paths.Outbox = filepath.Join(dir, "outbox")
	cfg.Paths.LogDir = filepath.Join(dir, "state")
	return &cfg
}

func TestBuildWiresQueryEngine(t *testing.T) {
	cfg := testConfig(t)
	components, err := Build(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if components.Engine == nil || components.Bridge == nil || components.Store == nil {
		t.Fatalf("expected all components, got %+v", components)
	}
	if components.Store.InboxPath() != cfg.Paths.Inbox {
		t.Fatalf("unexpected inbox path %q", components.Store.InboxPath())
	}
}

func TestBuildWithoutQueries(t *testing.T) {
	cfg := testConfig(t)
	cfg.Query.Enabled = false
	components, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if components.Engine != nil {
		t.Fatal("expected no query engine when queries are disabled")
	}
}

func TestQuerySettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Query.CommandTimeout = 7
	settings := QuerySettings(cfg)
	if settings.CommandTimeout != 7*time.Second {
		t.Fatalf("unexpected timeout %s", settings.CommandTimeout)
	}
	if settings.TrainingLog != cfg.Query.TrainingLog || settings.BridgeProcess != "ntfybridge" {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func TestRunRequiresTopic(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ntfy.Topic = ""
	if err := Run(context.Background(), cfg, Options{Offline: true}); err == nil {
		t.Fatal("expected missing topic error")
	}
}
