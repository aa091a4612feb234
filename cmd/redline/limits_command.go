package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"redline/internal/services"
)

func newLimitsCommand(ctx *commandContext, jsonFlag *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show current upload rate limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			status, err := client.RateLimits(cmd.Context())
			if err != nil {
				return fmt.Errorf("rate limits: %s", services.UserMessage(err))
			}
			if *jsonFlag {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			rows := [][]string{
				limitRow("hour", status.Hour),
				limitRow("day", status.Day),
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Window", "Limit", "Remaining", "Resets"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func limitRow(window string, info services.LimitInfo) []string {
	resets := ""
	if info.Reset > 0 {
		resets = time.Unix(info.Reset, 0).Local().Format("15:04:05")
	}
	return []string{window, strconv.Itoa(info.Limit), strconv.Itoa(info.Remaining), resets}
}

func newFeedbackCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var ratingFlag int
	var textFlag string

	cmd := &cobra.Command{
		Use:   "feedback <entry-id>",
		Short: "Rate the quality of an entry's processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := services.FeedbackKind(kindFlag)
			switch kind {
			case services.FeedbackTranscription, services.FeedbackCleanup, services.FeedbackAnalysis:
			default:
				return fmt.Errorf("feedback kind must be transcription, cleanup, or analysis")
			}
			if ratingFlag < 1 || ratingFlag > 5 {
				return fmt.Errorf("rating must be between 1 and 5")
			}
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			if err := client.SubmitFeedback(cmd.Context(), args[0], kind, ratingFlag, textFlag); err != nil {
				return fmt.Errorf("submit feedback: %s", services.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Feedback recorded")
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "transcription", "What the rating applies to: transcription, cleanup, analysis")
	cmd.Flags().IntVar(&ratingFlag, "rating", 0, "Rating from 1 (poor) to 5 (excellent)")
	cmd.Flags().StringVar(&textFlag, "comment", "", "Free-form comment")
	_ = cmd.MarkFlagRequired("rating")

	return cmd
}
