package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kinbridge/internal/api"
	"kinbridge/internal/attach"
	"kinbridge/internal/config"
	"kinbridge/internal/journal"
)

func newJournalCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and maintain the attach journal",
	}

	cmd.AddCommand(
		newJournalListCmd(cfg, jsonOutput),
		newJournalMigrateCmd(cfg, jsonOutput),
		newJournalPruneCmd(cfg, jsonOutput),
	)
	return cmd
}

func requireJournalPath(cfg *config.Config) (string, error) {
	if cfg.JournalPath == "" {
		return "", &config.MissingError{Keys: []string{"journal_path"}}
	}
	return cfg.JournalPath, nil
}

func newJournalListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		state    string
		recordID string
		limit    int
		remote   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attach attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if state != "" {
				if _, ok := attach.ParseState(state); !ok {
					return fmt.Errorf("invalid state %q", state)
				}
			}

			var attempts []attach.Attempt
			if remote {
				resp, err := api.NewClient(cfg.APIURL).ListAttempts(cmd.Context(), state, recordID, limit)
				if err != nil {
					return err
				}
				attempts = resp.Attempts
			} else {
				path, err := requireJournalPath(cfg)
				if err != nil {
					return err
				}
				j, err := journal.Open(path)
				if err != nil {
					return err
				}
				defer j.Close()

				attempts, err = j.List(cmd.Context(), journal.Filter{State: attach.State(state), RecordID: recordID, Limit: limit})
				if err != nil {
					return err
				}
			}

			if *jsonOutput {
				if attempts == nil {
					attempts = []attach.Attempt{}
				}
				return writeJSON(api.AttemptsResponse{Attempts: attempts})
			}
			if len(attempts) == 0 {
				return writePlain("No attempts.\n")
			}
			return writeTable(attemptRows(attempts))
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by state (e.g. upload_failed, attach_failed)")
	cmd.Flags().StringVar(&recordID, "record", "", "filter by record id")
	cmd.Flags().IntVar(&limit, "limit", journal.DefaultListLimit, "maximum attempts to list")
	cmd.Flags().BoolVar(&remote, "remote", false, "read through the running server instead of the local database")
	return cmd
}

func newJournalMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect journal schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := requireJournalPath(cfg)
			if err != nil {
				return err
			}

			if !inspect && !dryRun {
				// Open applies pending migrations.
				j, err := journal.Open(path)
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if err := j.Close(); err != nil {
					return err
				}
				if !*jsonOutput {
					return writePlain("Migrations applied successfully.\n")
				}
			}

			plan, err := journal.Inspect(path)
			if err != nil {
				return fmt.Errorf("inspect migrations: %w", err)
			}
			if *jsonOutput {
				return writeJSON(plan)
			}

			if err := writePlain("Current version: %d\nAvailable version: %d\n", plan.CurrentVersion, plan.AvailableVersion); err != nil {
				return err
			}
			if len(plan.Pending) == 0 {
				return writePlain("No pending migrations.\n")
			}
			if err := writePlain("Pending migrations: %d\n", len(plan.Pending)); err != nil {
				return err
			}
			for _, m := range plan.Pending {
				if err := writePlain("  %d: %s\n", m.Version, m.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")
	return cmd
}

func newJournalPruneCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete attached attempts older than a cutoff; failed attempts are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			path, err := requireJournalPath(cfg)
			if err != nil {
				return err
			}
			j, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer j.Close()

			cutoff := time.Now().Add(-olderThan)
			deleted, err := j.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(map[string]any{"deleted": deleted, "cutoff": cutoff.UTC().Format(time.RFC3339)})
			}
			return writePlain("Pruned %d attempts updated before %s.\n", deleted, formatTime(cutoff))
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of attached attempts to delete")
	return cmd
}
