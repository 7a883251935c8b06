package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"ntfybridge/internal/bridge"
	"ntfybridge/internal/config"
	"ntfybridge/internal/daemon"
	"ntfybridge/internal/deps"
	"ntfybridge/internal/logging"
	"ntfybridge/internal/mailbox"
	"ntfybridge/internal/notifications"
	"ntfybridge/internal/ntfy"
	"ntfybridge/internal/preflight"
	"ntfybridge/internal/query"
	"ntfybridge/internal/sysinspect"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Offline skips the ntfy reachability probe in the startup snapshot.
	Offline bool
}

// Components holds the wired relay pieces for one daemon run.
type Components struct {
	Client   *ntfy.Client
	Store    *mailbox.Store
	Engine   *query.Engine
	Bridge   *bridge.Bridge
	Notifier notifications.Service
}

// Run starts the ntfybridge relay and blocks until SIGINT/SIGTERM or cmdCtx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.ValidateDaemon(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, closer, err := logging.NewFromConfig(cfg, opts.LogLevel, opts.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()

	runID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	logDependencySnapshot(signalCtx, logger, cfg, opts.Offline)

	components, err := Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}

	d, err := daemon.New(cfg, components.Bridge, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	started := time.Now()
	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "stop the running instance with 'ntfybridge stop'"),
				logging.String(logging.FieldImpact, "this process will exit without polling"),
			)
		}
		return err
	}

	select {
	case <-signalCtx.Done():
		logger.Info("ntfybridge daemon shutting down")
	case <-d.Done():
	}
	d.Stop()

	notifyCtx, notifyCancel := context.WithTimeout(context.WithoutCancel(cmdCtx), cfg.RequestTimeout())
	defer notifyCancel()
	if runErr := d.Err(); runErr != nil {
		_ = components.Notifier.NotifyError(notifyCtx, runErr, "relay loop")
		return runErr
	}
	final := d.Status()
	logger.Info("relay loop finished",
		logging.String("state", final.State.String()),
		logging.Int64("cycles", final.Bridge.Cycles),
		logging.Int64("received", final.Bridge.Received),
		logging.Int64("sent", final.Bridge.Sent),
	)
	if err := components.Notifier.NotifyStopped(notifyCtx, final.Bridge.Cycles, final.Bridge.Received, time.Since(started)); err != nil {
		logger.Debug("shutdown notification not delivered", logging.Error(err))
	}
	return nil
}

// Build wires the ntfy client, mailbox store, query engine, and relay loop
// described by cfg. The query engine is omitted when queries are disabled.
func Build(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := ntfy.NewClient(cfg.Ntfy.BaseURL, cfg.RequestTimeout(), ntfy.WithLogger(logger))
	store := mailbox.NewStore(cfg.Paths.Inbox, cfg.Paths.Outbox)
	components := &Components{
		Client:   client,
		Store:    store,
		Notifier: notifications.NewService(cfg, client),
	}

	var router bridge.Router
	if cfg.Query.Enabled {
		components.Engine = query.NewEngine(QuerySettings(cfg), sysinspect.New(logger), query.WithLogger(logger))
		router = components.Engine
	}

	b, err := bridge.New(bridge.Settings{
		ListenTopic:   cfg.ListenTopic(),
		ReplyTopic:    cfg.ReplyTopic(),
		PollWindow:    cfg.Ntfy.PollWindow,
		PollInterval:  cfg.PollInterval(),
		SeenCapacity:  cfg.Bridge.SeenCapacity,
		StartupMarker: cfg.Bridge.StartupMarker,
		StartupTitle:  cfg.Bridge.StartupTitle,
	}, client, store, router, logger)
	if err != nil {
		return nil, err
	}
	components.Bridge = b
	return components, nil
}

// QuerySettings maps the query section of cfg onto engine settings.
func QuerySettings(cfg *config.Config) query.Settings {
	return query.Settings{
		TrainingLog:     cfg.Query.TrainingLog,
		TrainingProcess: cfg.Query.TrainingProcess,
		MonitorProcess:  cfg.Query.MonitorProcess,
		BridgeProcess:   cfg.Query.BridgeProcess,
		Interpreter:     cfg.Query.Interpreter,
		ProcessKeywords: cfg.Query.ProcessKeywords,
		CommandTimeout:  cfg.CommandTimeout(),
	}
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config, offline bool) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := preflight.CheckSystemDeps(cfg)
	summary := deps.Summarize(statuses)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String(logging.FieldTopic, cfg.ListenTopic()),
		logging.String("reply_topic", cfg.ReplyTopic()),
		logging.Bool("query_enabled", cfg.Query.Enabled),
		logging.String("dependencies", summary.Detail),
		logging.Int("pid", os.Getpid()),
	}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(status.Name+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, result := range preflight.RunAll(ctx, cfg, offline) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "the bridge will keep retrying each cycle"),
		)
	}
}
