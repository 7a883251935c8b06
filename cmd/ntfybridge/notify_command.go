package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ntfybridge/internal/notifications"
	"ntfybridge/internal/ntfy"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Publish a test notification to the reply topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDaemon(); err != nil {
				return err
			}
			client := ntfy.NewClient(cfg.Ntfy.BaseURL, cfg.RequestTimeout(), ntfy.WithLogger(ctx.cliLogger(cmd)))
			if err := notifications.NewService(cfg, client).TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", client.TopicURL(cfg.ReplyTopic()))
			return nil
		},
	})
	return notifyCmd
}
