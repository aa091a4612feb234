package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"redline/internal/language"
	"redline/internal/localstore"
	"redline/internal/pipeline"
	"redline/internal/services"
)

func newUploadCommand(ctx *commandContext, jsonFlag *bool) *cobra.Command {
	var languageFlag string
	var speakersFlag int
	var noDiarization bool
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "upload <audio-file>",
		Short: "Upload an audio file and wait for transcription and cleanup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			cfg := ctx.configValue()

			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open audio file: %w", err)
			}
			defer file.Close()

			opts := services.UploadOptions{
				Language:          cfg.Upload.Language,
				SpeakerCount:      cfg.Upload.SpeakerCount,
				EnableDiarization: cfg.Upload.EnableDiarization && !noDiarization,
				AnalysisProfile:   profileFlag,
			}
			if languageFlag != "" {
				tag, err := language.Normalize(languageFlag)
				if err != nil {
					return fmt.Errorf("language: %w", err)
				}
				opts.Language = tag
			}
			if speakersFlag > 0 {
				opts.SpeakerCount = speakersFlag
			}

			runner := pipeline.NewRunner(client,
				pipeline.WithLogger(ctx.ensureLogger()),
				pipeline.WithPollInterval(ctx.pollInterval()),
			)

			out := cmd.OutOrStdout()
			if !*jsonFlag {
				fmt.Fprintf(out, "Uploading %s (%s)...\n", filepath.Base(path), language.DisplayName(opts.Language))
			}
			if err := runner.Upload(cmd.Context(), filepath.Base(path), file, opts); err != nil {
				return fmt.Errorf("upload: %s", services.UserMessage(err))
			}
			if !*jsonFlag {
				fmt.Fprintln(out, "Transcribing and cleaning up...")
			}
			runner.Wait()

			if runner.Status() == pipeline.StatusError {
				return fmt.Errorf("processing failed: %s", runner.ErrorMessage())
			}

			if err := ctx.withStore(func(store *localstore.Store) error {
				return store.Remember(cmd.Context(), runner.EntryID(), filepath.Base(path))
			}); err != nil {
				// History is a convenience; the upload itself succeeded.
				ctx.ensureLogger().Warn("failed to record entry locally", "error", err)
			}

			if *jsonFlag {
				return writeJSON(cmd.OutOrStdout(), uploadResult{
					EntryID:   runner.EntryID(),
					CleanupID: runner.CleanupID(),
					Segments:  len(runner.Segments()),
				})
			}

			fmt.Fprintf(out, "Done. Entry %s, %d segments.\n", runner.EntryID(), len(runner.Segments()))
			printTranscript(cmd, runner)
			return nil
		},
	}

	cmd.Flags().StringVar(&languageFlag, "language", "", "Audio language tag (default from config)")
	cmd.Flags().IntVar(&speakersFlag, "speakers", 0, "Expected speaker count (default from config)")
	cmd.Flags().BoolVar(&noDiarization, "no-diarization", false, "Disable speaker diarization")
	cmd.Flags().StringVar(&profileFlag, "profile", "", "Analysis profile to request with the upload")

	return cmd
}

type uploadResult struct {
	EntryID   string `json:"entry_id"`
	CleanupID string `json:"cleaned_entry_id"`
	Segments  int    `json:"segments"`
}

func printTranscript(cmd *cobra.Command, runner *pipeline.Runner) {
	out := cmd.OutOrStdout()
	for _, segment := range runner.Segments() {
		fmt.Fprintf(out, "[%s] S%d  %s\n", formatTimestamp(segment.Start), segment.SpeakerIndex+1, segment.CurrentText)
	}
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
