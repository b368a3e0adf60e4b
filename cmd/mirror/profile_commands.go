package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mirror/internal/ipc"
	"mirror/internal/profiles"
	"mirror/internal/recognize"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage enrolled people",
	}

	profileCmd.AddCommand(newProfileListCommand(ctx))
	profileCmd.AddCommand(newProfileImportCommand(ctx))
	profileCmd.AddCommand(newProfileRemoveCommand(ctx))

	return profileCmd
}

func newProfileListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled people",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			people, err := listProfiles(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			if len(people) == 0 {
				fmt.Fprintln(stdout, "No people enrolled")
				return nil
			}

			rows := make([][]string, 0, len(people))
			for _, person := range people {
				rows = append(rows, []string{
					person.ID,
					person.DisplayName,
					person.Relationship,
					strings.Join(person.Languages, ", "),
				})
			}
			table := renderTable([]string{"ID", "Name", "Relationship", "Languages"}, rows)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

// listProfiles prefers the running daemon and falls back to reading the
// profile store directly when the daemon is offline.
func listProfiles(cmdCtx context.Context, ctx *commandContext) ([]ipc.PersonSummary, error) {
	var people []ipc.PersonSummary
	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.ProfileList()
		if err != nil {
			return err
		}
		people = resp.People
		return nil
	})
	if err == nil {
		return people, nil
	}

	cfg, cfgErr := ctx.ensureConfig()
	if cfgErr != nil {
		return nil, cfgErr
	}
	store, storeErr := profiles.Open(cfg)
	if storeErr != nil {
		return nil, storeErr
	}
	defer store.Close()

	loaded, loadErr := store.LoadAll(cmdCtx)
	if loadErr != nil {
		return nil, loadErr
	}
	ids := make([]string, 0, len(loaded))
	for id := range loaded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	people = make([]ipc.PersonSummary, 0, len(ids))
	for _, id := range ids {
		person := loaded[id]
		people = append(people, ipc.PersonSummary{
			ID:           person.ID,
			DisplayName:  person.DisplayName,
			Relationship: person.Relationship,
			Language:     person.Language,
			Languages:    person.Languages(),
		})
	}
	return people, nil
}

func newProfileImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <directory>",
		Short: "Import people and face photos from an enrollment directory",
		Long: "Import reads people.json and the known_faces/ photo tree from the given\n" +
			"directory, embedding every photo through the configured embedding service.\n" +
			"Restart the daemon afterwards so it picks up the new profiles.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := profiles.Open(cfg)
			if err != nil {
				return fmt.Errorf("open profile store: %w", err)
			}
			defer store.Close()

			embedder := recognize.NewEmbeddingClient(cfg.Recognition.EmbedServiceURL, cfg.Recognition.EmbedDim)
			result, err := store.ImportDirectory(cmd.Context(), args[0], embedder)
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "Imported %d people with %d face encodings\n", result.People, result.Encodings)
			if len(result.Skipped) > 0 {
				fmt.Fprintf(stdout, "Skipped (no photos): %s\n", strings.Join(result.Skipped, ", "))
			}
			fmt.Fprintln(stdout, "Restart the daemon with `mirror restart` to load the new profiles")
			return nil
		},
	}
}

func newProfileRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <person-id>",
		Short: "Remove an enrolled person and their face encodings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := profiles.Open(cfg)
			if err != nil {
				return fmt.Errorf("open profile store: %w", err)
			}
			defer store.Close()

			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Removed %s\n", args[0])
			fmt.Fprintln(stdout, "Restart the daemon with `mirror restart` to apply the change")
			return nil
		},
	}
}
