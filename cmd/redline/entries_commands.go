package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redline/internal/localstore"
	"redline/internal/pipeline"
	"redline/internal/services"
	"redline/internal/transcript"
)

func newEntriesCommand(ctx *commandContext, jsonFlag *bool) *cobra.Command {
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Inspect and manage transcription entries",
	}

	entriesCmd.AddCommand(newEntriesListCommand(ctx, jsonFlag))
	entriesCmd.AddCommand(newEntriesShowCommand(ctx, jsonFlag))
	entriesCmd.AddCommand(newEntriesDeleteCommand(ctx))

	return entriesCmd
}

func newEntriesListCommand(ctx *commandContext, jsonFlag *bool) *cobra.Command {
	var limitFlag int
	var offsetFlag int
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries known to the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if localOnly {
				return ctx.withStore(func(store *localstore.Store) error {
					entries, err := store.List(cmd.Context())
					if err != nil {
						return err
					}
					if *jsonFlag {
						return writeJSON(cmd.OutOrStdout(), entries)
					}
					if len(entries) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No local entries")
						return nil
					}
					rows := make([][]string, 0, len(entries))
					for _, entry := range entries {
						rows = append(rows, []string{entry.ID, entry.Filename, entry.UploadedAt.Format("2006-01-02 15:04")})
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(
						[]string{"ID", "Filename", "Uploaded"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft},
					))
					return nil
				})
			}

			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			entries, err := client.ListEntries(cmd.Context(), limitFlag, offsetFlag)
			if err != nil {
				return fmt.Errorf("list entries: %s", services.UserMessage(err))
			}
			if *jsonFlag {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries")
				return nil
			}
			colorize := shouldColorize(cmd.OutOrStdout(), "auto")
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.ID,
					entry.OriginalFilename,
					statusCell(entry.TranscriptionStatus, colorize),
					statusCell(entry.CleanupStatus, colorize),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Filename", "Transcription", "Cleanup"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum number of entries to return")
	cmd.Flags().IntVar(&offsetFlag, "offset", 0, "Number of entries to skip")
	cmd.Flags().BoolVar(&localOnly, "local", false, "List only entries uploaded from this machine")

	return cmd
}

func newEntriesShowCommand(ctx *commandContext, jsonFlag *bool) *cobra.Command {
	var resumeFlag bool

	cmd := &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show one entry's transcript and analyses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(client,
				pipeline.WithLogger(ctx.ensureLogger()),
				pipeline.WithPollInterval(ctx.pollInterval()),
			)
			if err := runner.LoadEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("load entry: %s", services.UserMessage(err))
			}

			if runner.Status() != pipeline.StatusComplete && resumeFlag {
				fmt.Fprintln(cmd.OutOrStdout(), "Entry still processing, waiting...")
				runner.ResumePolling(cmd.Context())
				runner.Wait()
			}

			switch runner.Status() {
			case pipeline.StatusComplete:
			case pipeline.StatusError:
				return fmt.Errorf("entry failed: %s", runner.ErrorMessage())
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Entry is %s; re-run with --wait to poll\n", runner.Status())
				return nil
			}

			if *jsonFlag {
				return writeJSON(cmd.OutOrStdout(), entryView{
					EntryID:   runner.EntryID(),
					CleanupID: runner.CleanupID(),
					Segments:  runner.Segments(),
					Analyses:  runner.Analyses(),
				})
			}
			printTranscript(cmd, runner)
			if analyses := runner.Analyses(); len(analyses) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				for _, record := range analyses {
					fmt.Fprintf(cmd.OutOrStdout(), "Analysis %s (%s): %s\n", record.ID, record.ProfileID, record.Status)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&resumeFlag, "wait", false, "Poll until processing finishes before showing")

	return cmd
}

type entryView struct {
	EntryID   string                    `json:"entry_id"`
	CleanupID string                    `json:"cleaned_entry_id,omitempty"`
	Segments  []transcript.Segment      `json:"segments"`
	Analyses  []services.AnalysisRecord `json:"analyses,omitempty"`
}

func newEntriesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry and all associated data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			if err := client.DeleteEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete entry: %s", services.UserMessage(err))
			}
			if err := ctx.withStore(func(store *localstore.Store) error {
				return store.Forget(cmd.Context(), args[0])
			}); err != nil {
				ctx.ensureLogger().Warn("failed to forget entry locally", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
			return nil
		},
	}
}
