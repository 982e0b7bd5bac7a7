package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autoposter/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var itemID int64

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the autoposter log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if itemID > 0 && !logs.MatchesItem(line, itemID) {
					return
				}
				fmt.Fprintln(out, line)
			}

			// With an item filter, scan the whole file so the last N matches
			// are not lost among unrelated lines.
			window := lines
			if itemID > 0 {
				window = 0
			}
			var tail []string
			var offset int64
			if window > 0 {
				tail, offset, err = logs.Last(cfg.LogPath(), window)
			} else if itemID > 0 {
				tail, offset, err = logs.Since(cfg.LogPath(), 0)
			} else {
				_, offset, err = logs.Last(cfg.LogPath(), 0)
			}
			if err != nil {
				return err
			}
			if itemID > 0 {
				tail = filterItem(tail, itemID, lines)
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, cfg.LogPath(), offset, 500*time.Millisecond, emit)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().Int64Var(&itemID, "item", 0, "Only print lines for this item id")
	return cmd
}

func filterItem(lines []string, id int64, limit int) []string {
	var out []string
	for _, line := range lines {
		if logs.MatchesItem(line, id) {
			out = append(out, line)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
