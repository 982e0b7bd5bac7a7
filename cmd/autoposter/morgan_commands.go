package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoposter/internal/pipeline"
)

func newMorganCommand(ctx *commandContext) *cobra.Command {
	morganCmd := &cobra.Command{
		Use:   "morgan",
		Short: "Pipeline monitor",
	}
	morganCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Recover stale claims, reset errored items, and grade health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				result, err := rt.RunMorgan(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if result.Skipped {
					fmt.Fprintf(out, "morgan: skipped (%s)\n", result.Reason)
					return nil
				}
				summary := result.Summary
				fmt.Fprintf(out, "Stale claims recovered: %d\n", summary.StaleClaimsRecovered)
				for _, r := range summary.Recoveries {
					fmt.Fprintf(out, "  item %d released from %s (%s)\n", r.ItemID, r.PreviousWorker, r.PreviousStage)
				}
				fmt.Fprintf(out, "Errored items reset:    %d\n", summary.ErroredItemsReset)
				for _, r := range summary.Resets {
					fmt.Fprintf(out, "  item %d %s -> %s: %s\n", r.ItemID, r.FromStatus, r.ToStatus, r.PreviousError)
				}
				printHealthReport(cmd, summary.Health)
				return nil
			})
		},
	})
	return morganCmd
}
