package main

import (
	"github.com/spf13/cobra"

	"autoposter/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var development bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			level := ""
			if ctx.logLevelFlag != nil {
				level = *ctx.logLevelFlag
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    level,
				Development: development,
				Version:     version,
			})
		},
	}
	cmd.Flags().BoolVar(&development, "dev", false, "Use development logging")
	return cmd
}
