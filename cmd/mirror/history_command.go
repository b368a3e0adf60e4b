package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mirror/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recognition events",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if len(resp.Events) == 0 {
					fmt.Fprintln(stdout, "No recognition events recorded")
					return nil
				}

				rows := make([][]string, 0, len(resp.Events))
				for _, event := range resp.Events {
					rows = append(rows, []string{
						event.OccurredAt.Local().Format(time.DateTime),
						event.PersonID,
						fmt.Sprintf("%.3f", event.Distance),
						yesNo(event.Announced),
					})
				}
				table := renderTable([]string{"Time", "Person", "Distance", "Announced"}, rows, 2)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events to show")
	return cmd
}
