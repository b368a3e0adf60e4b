package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mirror/internal/ipc"
)

func newAnnounceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "announce <person-id>",
		Short: "Trigger a greeting for a person (for demos and testing)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Announce(args[0])
				if err != nil {
					return err
				}
				if !resp.Announced {
					return fmt.Errorf("announce failed: %s", resp.Message)
				}
				fmt.Fprintf(stdout, "Greeting triggered for %s\n", args[0])
				return nil
			})
		},
	}
}
