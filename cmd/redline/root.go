package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "redline",
		Short:         "Upload, review, and analyze audio transcriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit machine-readable JSON output")

	rootCmd.AddCommand(newUploadCommand(ctx, &jsonFlag))
	rootCmd.AddCommand(newEntriesCommand(ctx, &jsonFlag))
	rootCmd.AddCommand(newDiffCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx, &jsonFlag))
	rootCmd.AddCommand(newProfilesCommand(ctx, &jsonFlag))
	rootCmd.AddCommand(newDemoCommand(ctx))
	rootCmd.AddCommand(newLimitsCommand(ctx, &jsonFlag))
	rootCmd.AddCommand(newFeedbackCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
