package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ntfybridge/internal/daemonctl"
	"ntfybridge/internal/deps"
	"ntfybridge/internal/mailbox"
	"ntfybridge/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the relay daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDaemon(); err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cfg, exe, daemonLaunchOptions(ctx), 10*time.Second)
			if err != nil {
				return err
			}
			printStartResult(cmd, result)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the relay daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed process (pid %d)\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var offline bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, mailbox, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			info, infoErr := daemonctl.ProcessInfo(cfg)
			fmt.Fprintln(stdout, daemonStatusLine(info, infoErr, colorize))
			for _, result := range preflight.RunAll(cmd.Context(), cfg, offline) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					if result.Name == "ntfy server" {
						kind = statusWarn
					}
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Mailbox", colorize) {
				fmt.Fprintln(stdout, line)
			}
			store := mailbox.NewStore(cfg.Paths.Inbox, cfg.Paths.Outbox)
			for _, line := range mailboxLines(store, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(preflight.CheckSystemDeps(cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&offline, "offline", false, "Skip the ntfy server reachability check")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func daemonStatusLine(info daemonctl.Info, err error, colorize bool) string {
	switch {
	case err != nil:
		return renderStatusLine("Daemon", statusError, err.Error(), colorize)
	case info.Running && info.PID > 0:
		return renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", info.PID), colorize)
	case info.Running:
		return renderStatusLine("Daemon", statusOK, "Running", colorize)
	default:
		return renderStatusLine("Daemon", statusWarn, "Not running (run `ntfybridge start`)", colorize)
	}
}

func mailboxLines(store *mailbox.Store, colorize bool) []string {
	lines := make([]string, 0, 2)
	summary, err := store.Summary()
	if err != nil {
		lines = append(lines, renderStatusLine("Inbox", statusError, err.Error(), colorize))
	} else {
		kind := statusInfo
		if summary.Unread > 0 {
			kind = statusWarn
		}
		detail := fmt.Sprintf("%d message(s), %d unread (%s)", summary.Total, summary.Unread, store.InboxPath())
		lines = append(lines, renderStatusLine("Inbox", kind, detail, colorize))
	}

	pending, err := store.PendingOutbox()
	if err != nil {
		lines = append(lines, renderStatusLine("Outbox", statusError, err.Error(), colorize))
	} else {
		detail := fmt.Sprintf("%d pending (%s)", len(pending), store.OutboxPath())
		lines = append(lines, renderStatusLine("Outbox", statusInfo, detail, colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	summary := deps.Summarize(statuses)
	lines := make([]string, 0, len(statuses)+1)
	lines = append(lines, renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize))
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, statusKindFromSeverity(dep.Severity()), detail, colorize))
	}
	return lines
}

func printStartResult(cmd *cobra.Command, result daemonctl.StartResult) {
	stdout := cmd.OutOrStdout()
	switch result.State {
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
	default:
		fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}
	if ctx.logLevelFlag != nil {
		opts.LogLevel = strings.TrimSpace(*ctx.logLevelFlag)
	}
	return opts
}
