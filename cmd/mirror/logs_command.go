package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mirror/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: limit, Level: level})
				if err != nil {
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(stdout, line)
				}
				if !follow {
					return nil
				}

				offset := resp.Offset
				for {
					select {
					case <-cmd.Context().Done():
						return nil
					default:
					}
					next, err := client.LogTail(ipc.LogTailRequest{
						Offset:     offset,
						Follow:     true,
						WaitMillis: 1000,
						Level:      level,
					})
					if err != nil {
						return err
					}
					for _, line := range next.Lines {
						fmt.Fprintln(stdout, line)
					}
					offset = next.Offset
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of trailing lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Only show lines at or above this severity (debug, info, warn, error)")
	return cmd
}
