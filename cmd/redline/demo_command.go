package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"redline/internal/analysis"
	"redline/internal/demo"
	"redline/internal/services"
)

func newDemoCommand(ctx *commandContext) *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Manage pre-seeded demo entries",
	}
	demoCmd.AddCommand(newDemoSyncCommand(ctx))
	return demoCmd
}

// demo sync lists entries, auto-triggers cleanup for eligible demo entries,
// then waits for every triggered job to settle.
func newDemoSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Trigger processing for demo entries that need it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if !cfg.Demo.Enabled {
				return fmt.Errorf("demo mode is disabled in the configuration")
			}
			client, err := ctx.serviceClient()
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			orchestrator := demo.New(client, analysis.NewCatalog(client), cfg.Demo.FilenamePrefix,
				demo.WithLogger(ctx.ensureLogger()),
				demo.WithPollInterval(ctx.pollInterval()),
				demo.WithRefresh(func() {
					fmt.Fprintln(out, "Entry finished processing")
				}),
			)
			defer orchestrator.Close()

			entries, err := client.ListEntries(runCtx, 0, 0)
			if err != nil {
				return fmt.Errorf("list entries: %s", services.UserMessage(err))
			}

			eligible := 0
			for _, entry := range entries {
				if orchestrator.Eligible(entry) {
					eligible++
				}
			}
			if eligible == 0 {
				fmt.Fprintln(out, "All demo entries are up to date")
				return nil
			}
			fmt.Fprintf(out, "Triggering processing for %d demo entries...\n", eligible)

			orchestrator.Reconcile(runCtx, entries)
			for orchestrator.Processing() {
				select {
				case <-runCtx.Done():
					return runCtx.Err()
				case <-time.After(100 * time.Millisecond):
				}
			}
			fmt.Fprintln(out, "Done")
			return nil
		},
	}
}
