package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"redline/internal/diff"
	"redline/internal/pipeline"
	"redline/internal/services"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiStrike = "\x1b[9m"
)

func newDiffCommand(ctx *commandContext) *cobra.Command {
	var segmentFlag string
	var colorFlag string

	cmd := &cobra.Command{
		Use:   "diff <entry-id>",
		Short: "Show what cleanup changed, word by word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(client, pipeline.WithLogger(ctx.ensureLogger()))
			if err := runner.LoadEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("load entry: %s", services.UserMessage(err))
			}
			if runner.Status() != pipeline.StatusComplete {
				return fmt.Errorf("entry is %s; diff needs a completed entry", runner.Status())
			}

			colorize := shouldColorize(cmd.OutOrStdout(), colorFlag)
			memo := diff.NewMemo()
			out := cmd.OutOrStdout()
			for _, segment := range runner.Segments() {
				if segmentFlag != "" && segment.ID != segmentFlag {
					continue
				}
				tokens := memo.Diff(segment.ID, segment.OriginalText, segment.CurrentText)
				fmt.Fprintf(out, "[%s] %s\n", formatTimestamp(segment.Start), renderDiff(tokens, colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentFlag, "segment", "", "Limit output to one segment id")
	cmd.Flags().StringVar(&colorFlag, "color", "auto", "Colorize output: auto, always, never")

	return cmd
}

// renderDiff lays out one combined line: deletions struck out, insertions
// highlighted, shared text plain. Without color, bracket markers carry the
// same information.
func renderDiff(tokens []diff.Token, colorize bool) string {
	var b strings.Builder
	for _, token := range tokens {
		switch token.Op {
		case diff.Deleted:
			if colorize {
				b.WriteString(ansiRed + ansiStrike + token.Text + ansiReset)
			} else {
				b.WriteString("[-" + token.Text + "-]")
			}
		case diff.Inserted:
			if colorize {
				b.WriteString(ansiGreen + token.Text + ansiReset)
			} else {
				b.WriteString("{+" + token.Text + "+}")
			}
		default:
			b.WriteString(token.Text)
		}
	}
	return b.String()
}

func shouldColorize(writer io.Writer, colorFlag string) bool {
	switch colorFlag {
	case "always":
		return true
	case "never":
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
