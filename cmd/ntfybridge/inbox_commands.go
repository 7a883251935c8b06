package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ntfybridge/internal/mailbox"
)

const listMessageWidth = 60

func newInboxCommand(ctx *commandContext) *cobra.Command {
	var peek bool
	var all bool

	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Print unread inbox messages and mark them read",
		Long: "Print unread inbox messages and mark them read.\n\n" +
			"This is the entry point for editor hooks: output is a short\n" +
			"\"=== N new message(s) ===\" block or \"No new messages.\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			entries, err := store.ReadInbox(mailbox.ReadOptions{UnreadOnly: !all, MarkRead: !peek})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mailbox.FormatEntries(entries))
			return nil
		},
	}
	inboxCmd.Flags().BoolVar(&peek, "peek", false, "Do not mark messages as read")
	inboxCmd.Flags().BoolVar(&all, "all", false, "Include messages already read")

	inboxCmd.AddCommand(newInboxListCommand(ctx))
	inboxCmd.AddCommand(newInboxSummaryCommand(ctx))
	inboxCmd.AddCommand(newInboxClearCommand(ctx))
	return inboxCmd
}

func newInboxListCommand(ctx *commandContext) *cobra.Command {
	var unreadOnly bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List inbox messages in a table without marking them read",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			entries, err := store.ReadInbox(mailbox.ReadOptions{UnreadOnly: unreadOnly})
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(stdout, "Inbox is empty")
				return nil
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"#", "Received", "Pri", "Title", "Message", "Read"},
				inboxRows(entries),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&unreadOnly, "unread", "u", false, "Only list unread messages")
	return cmd
}

func inboxRows(entries []mailbox.InboxEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		received := entry.Timestamp
		if t := entry.Time(); !t.IsZero() {
			received = t.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			received,
			strconv.Itoa(entry.Level()),
			entry.Title,
			truncateDisplay(entry.Message, listMessageWidth),
			yesNo(entry.Read),
		})
	}
	return rows
}

func newInboxSummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show inbox totals and the latest message",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			summary, err := store.Summary()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Total:  %d\n", summary.Total)
			fmt.Fprintf(stdout, "Unread: %d\n", summary.Unread)
			if summary.Latest == nil {
				fmt.Fprintln(stdout, "Latest: none")
				return nil
			}
			latest := summary.Latest.Message
			if title := strings.TrimSpace(summary.Latest.Title); title != "" {
				latest = title + ": " + latest
			}
			fmt.Fprintf(stdout, "Latest: [%s] %s\n", summary.Latest.Timestamp, truncateDisplay(latest, listMessageWidth))
			return nil
		},
	}
}

func newInboxClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every inbox message",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if err := store.ClearInbox(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Inbox cleared")
			return nil
		},
	}
}

func truncateDisplay(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if limit <= 3 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
