package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ntfybridge/internal/mailbox"
	"ntfybridge/internal/ntfy"
)

func newReplyCommand(ctx *commandContext) *cobra.Command {
	var title string
	var priority string
	var tags string

	cmd := &cobra.Command{
		Use:   "reply <message...>",
		Short: "Queue a reply in the outbox for the daemon to publish",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if strings.TrimSpace(message) == "" {
				return errors.New("reply message is empty")
			}
			level, ok := ntfy.ParsePriority(priority)
			if !ok {
				return fmt.Errorf("invalid priority %q (use min, low, default, high, max, or 1-5)", priority)
			}
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if err := store.AppendOutbox(mailbox.OutboxEntry{
				Message:  message,
				Title:    title,
				Priority: level,
				Tags:     tags,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued: %s\n", message)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "Reply", "Reply title")
	cmd.Flags().StringVarP(&priority, "priority", "p", "default", "Priority: min, low, default, high, max, or 1-5")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated ntfy tags")
	return cmd
}
