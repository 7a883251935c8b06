package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"ntfybridge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check for cfg. The ntfy reachability
// check is skipped when offline is true.
func RunAll(ctx context.Context, cfg *config.Config, offline bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckTopic(cfg)}
	for _, dir := range MailboxDirectories(cfg) {
		results = append(results, CheckDirectoryAccess(dir.Name, dir.Path))
	}
	if !offline {
		results = append(results, CheckNtfy(ctx, cfg.Ntfy.BaseURL, cfg.RequestTimeout()))
	}
	return results
}

// Directory names a directory the bridge writes to.
type Directory struct {
	Name string
	Path string
}

// MailboxDirectories returns the parent directories of the inbox and outbox
// plus the log directory, skipping duplicates.
func MailboxDirectories(cfg *config.Config) []Directory {
	candidates := []Directory{
		{Name: "Inbox directory", Path: filepath.Dir(cfg.Paths.Inbox)},
		{Name: "Outbox directory", Path: filepath.Dir(cfg.Paths.Outbox)},
		{Name: "Log directory", Path: cfg.Paths.LogDir},
	}
	seen := make(map[string]struct{}, len(candidates))
	dirs := make([]Directory, 0, len(candidates))
	for _, dir := range candidates {
		if strings.TrimSpace(dir.Path) == "" {
			continue
		}
		if _, ok := seen[dir.Path]; ok {
			continue
		}
		seen[dir.Path] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

// CheckTopic reports whether a listen topic is configured.
func CheckTopic(cfg *config.Config) Result {
	const name = "Topic"
	topic := cfg.ListenTopic()
	if topic == "" {
		return Result{Name: name, Detail: "not configured (set ntfy.topic or NTFY_BRIDGE_TOPIC)"}
	}
	detail := topic
	if reply := cfg.ReplyTopic(); reply != topic {
		detail = topic + " (replies to " + reply + ")"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
