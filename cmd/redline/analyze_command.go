package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redline/internal/analysis"
	"redline/internal/pipeline"
	"redline/internal/services"
)

func newAnalyzeCommand(ctx *commandContext, jsonFlag *bool) *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "analyze <entry-id>",
		Short: "Run (or fetch) an analysis of an entry's cleaned transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			logger := ctx.ensureLogger()

			runner := pipeline.NewRunner(client, pipeline.WithLogger(logger))
			if err := runner.LoadEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("load entry: %s", services.UserMessage(err))
			}
			cleanupID := runner.CleanupID()
			if cleanupID == "" {
				return fmt.Errorf("entry %s has no cleaned transcript to analyze", args[0])
			}

			catalog := analysis.NewCatalog(client)
			resolver := analysis.NewResolver(client, catalog, cleanupID,
				analysis.WithLogger(logger),
				analysis.WithPollInterval(ctx.pollInterval()),
			)
			defer resolver.Stop()

			profileID := profileFlag
			if profileID == "" {
				profileID = cfg.Analysis.DefaultProfile
			}

			result, err := resolver.SelectProfile(cmd.Context(), profileID)
			if err != nil {
				return fmt.Errorf("analyze: %s", services.UserMessage(err))
			}

			if *jsonFlag {
				return writeJSON(cmd.OutOrStdout(), analysisView{
					Profile:   profileID,
					Summary:   result.Summary,
					Topics:    result.Topics,
					KeyPoints: result.KeyPoints,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", catalog.Label(cmd.Context(), profileID))
			if result.Summary != "" {
				fmt.Fprintln(out, result.Summary)
			}
			if len(result.Topics) > 0 {
				fmt.Fprintln(out, "\nTopics:")
				for _, topic := range result.Topics {
					fmt.Fprintf(out, "  - %s\n", topic)
				}
			}
			if len(result.KeyPoints) > 0 {
				fmt.Fprintln(out, "\nKey points:")
				for _, point := range result.KeyPoints {
					fmt.Fprintf(out, "  - %s\n", point)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "Analysis profile id (default from config)")

	return cmd
}

type analysisView struct {
	Profile   string   `json:"profile_id"`
	Summary   string   `json:"summary,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
}

func newProfilesCommand(ctx *commandContext, jsonFlag *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List available analysis profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			profiles, err := analysis.NewCatalog(client).Profiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("list profiles: %s", services.UserMessage(err))
			}
			if *jsonFlag {
				return writeJSON(cmd.OutOrStdout(), profiles)
			}
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles available")
				return nil
			}
			rows := make([][]string, 0, len(profiles))
			for _, profile := range profiles {
				rows = append(rows, []string{profile.ID, profile.Label, yesNo(profile.IsDefault)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Label", "Default"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
