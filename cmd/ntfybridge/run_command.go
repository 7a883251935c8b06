package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ntfybridge/internal/config"
	"ntfybridge/internal/daemonctl"
	"ntfybridge/internal/daemonrun"
)

type runOverrides struct {
	topic        string
	notifyTopic  string
	inbox        string
	outbox       string
	pollInterval int
}

// apply copies non-empty overrides onto cfg and revalidates it.
func (o runOverrides) apply(cfg *config.Config) error {
	if topic := strings.TrimSpace(o.topic); topic != "" {
		cfg.Ntfy.Topic = topic
	}
	if topic := strings.TrimSpace(o.notifyTopic); topic != "" {
		cfg.Ntfy.NotifyTopic = topic
	}
	if path := strings.TrimSpace(o.inbox); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return fmt.Errorf("resolve --inbox: %w", err)
		}
		cfg.Paths.Inbox = expanded
	}
	if path := strings.TrimSpace(o.outbox); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return fmt.Errorf("resolve --outbox: %w", err)
		}
		cfg.Paths.Outbox = expanded
	}
	if o.pollInterval != 0 {
		cfg.Bridge.PollInterval = o.pollInterval
	}
	return cfg.Validate()
}

// args re-encodes the overrides for a detached child process.
func (o runOverrides) args() []string {
	var args []string
	add := func(flag, value string) {
		if value = strings.TrimSpace(value); value != "" {
			args = append(args, flag, value)
		}
	}
	add("--topic", o.topic)
	add("--notify-topic", o.notifyTopic)
	add("--inbox", o.inbox)
	add("--outbox", o.outbox)
	if o.pollInterval != 0 {
		args = append(args, "--poll-interval", strconv.Itoa(o.pollInterval))
	}
	return args
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var overrides runOverrides
	var background bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relay in the foreground (or detached with --daemon)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overrides.apply(cfg); err != nil {
				return err
			}
			if err := cfg.ValidateDaemon(); err != nil {
				return err
			}

			if background {
				exe, err := daemonExecutable()
				if err != nil {
					return err
				}
				opts := daemonLaunchOptions(ctx)
				opts.Args = overrides.args()
				result, err := daemonctl.EnsureStarted(cfg, exe, opts, 10*time.Second)
				if err != nil {
					return err
				}
				printStartResult(cmd, result)
				return nil
			}

			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: ctx.logLevel(cfg),
				Offline:  offline,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&overrides.topic, "topic", "t", "", "ntfy topic to listen on (overrides ntfy.topic)")
	flags.StringVar(&overrides.notifyTopic, "notify-topic", "", "Topic for query answers and lifecycle notices (defaults to --topic)")
	flags.StringVar(&overrides.inbox, "inbox", "", "Inbox file path")
	flags.StringVar(&overrides.outbox, "outbox", "", "Outbox file path")
	flags.IntVarP(&overrides.pollInterval, "poll-interval", "i", 0, "Seconds between poll cycles")
	flags.BoolVarP(&background, "daemon", "d", false, "Detach and run in the background")
	flags.BoolVar(&offline, "offline", false, "Skip the ntfy reachability check at startup")
	return cmd
}
