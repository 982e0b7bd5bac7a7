package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"autoposter/internal/mode"
	"autoposter/internal/pipeline"
)

func newModeCommand(ctx *commandContext) *cobra.Command {
	modeCmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or change the pipeline mode and kill switch",
	}
	modeCmd.AddCommand(newModeShowCommand(ctx))
	modeCmd.AddCommand(newModeSetCommand(ctx))
	modeCmd.AddCommand(newKillSwitchCommand(ctx))
	return modeCmd
}

func newModeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the persisted pipeline mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				summary, err := rt.Modes().Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, summary)
				}
				printModeSummary(cmd, summary)
				return nil
			})
		},
	}
}

func printModeSummary(cmd *cobra.Command, summary mode.StatusSummary) {
	out := cmd.OutOrStdout()
	p := newStatusPrinter(out)
	p.line("Pipeline mode", statusInfo, string(summary.PipelineMode))
	p.line("Kill switch", passFail(!summary.KillSwitch), onOff(summary.KillSwitch))
	p.line("Agents active", passFail(summary.V6Active), yesNo(summary.V6Active))
	p.line("Publishing", statusInfo, yesNo(summary.V6PublishingEnabled))
	p.line("Legacy active", statusInfo, yesNo(summary.LegacyActive))
	fmt.Fprintln(out)
	fmt.Fprintln(out, summary.PipelineMode.Description())
}

func newModeSetCommand(ctx *commandContext) *cobra.Command {
	names := make([]string, 0, len(mode.All()))
	for _, m := range mode.All() {
		names = append(names, string(m))
	}
	return &cobra.Command{
		Use:       "set <" + strings.Join(names, "|") + ">",
		Short:     "Persist a new pipeline mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mode.Parse(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				settings, err := rt.Modes().SetMode(cmd.Context(), m, pipeline.ActorCLI)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, mode.Summarize(settings))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pipeline mode set to %s\n", settings.Mode)
				return nil
			})
		},
	}
}

func newKillSwitchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "kill-switch <on|off>",
		Short:     "Stop or resume every agent regardless of mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				settings, err := rt.Modes().SetKillSwitch(cmd.Context(), on, pipeline.ActorCLI)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, mode.Summarize(settings))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Kill switch %s\n", onOff(settings.KillSwitch))
				return nil
			})
		},
	}
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", value)
	}
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
