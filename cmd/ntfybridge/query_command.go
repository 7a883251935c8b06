package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ntfybridge/internal/daemonrun"
	"ntfybridge/internal/query"
	"ntfybridge/internal/sysinspect"
)

func newQueryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "query <key...>",
		Short: "Answer a query locally, exactly as the daemon would",
		Long: "Answer a query locally, exactly as the daemon would.\n\n" +
			"The argument may be a bare key (\"disk\", \"logs 20\") or a full\n" +
			"message body (\"query: disk\").",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			body := strings.TrimSpace(strings.Join(args, " "))
			if _, ok := query.Parse(body); !ok {
				body = "query: " + body
			}

			logger := ctx.cliLogger(cmd)
			engine := query.NewEngine(daemonrun.QuerySettings(cfg), sysinspect.New(logger), query.WithLogger(logger))
			result, _ := engine.Handle(cmd.Context(), body)

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "%s [%s]\n", result.Title, result.Tags)
			fmt.Fprintln(stdout, result.Response)
			return nil
		},
	}
}
