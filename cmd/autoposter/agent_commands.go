package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"autoposter/internal/agents"
	"autoposter/internal/config"
	"autoposter/internal/pipeline"
	"autoposter/internal/stage"
)

func newAgentCommand(ctx *commandContext) *cobra.Command {
	agentCmd := &cobra.Command{
		Use:   "agent",
		Short: "Run or inspect stage agents",
	}
	agentCmd.AddCommand(newAgentRunCommand(ctx))
	agentCmd.AddCommand(newAgentHealthCommand(ctx))
	return agentCmd
}

func newAgentRunCommand(ctx *commandContext) *cobra.Command {
	var maxItems int

	cmd := &cobra.Command{
		Use:       "run <" + strings.Join(agents.Names(), "|") + ">",
		Short:     "Trigger one agent run now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: agents.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(strings.TrimSpace(args[0]))
			if maxItems < 0 {
				return fmt.Errorf("--max must be positive")
			}
			if maxItems > 0 {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if !overrideMaxItems(cfg, name, maxItems) {
					return fmt.Errorf("unknown agent %q (expected one of %s)", name, strings.Join(agents.Names(), ", "))
				}
			}
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				outcome, err := rt.Trigger(cmd.Context(), name)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, outcome)
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatOutcome(outcome))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxItems, "max", 0, "Override the per-run item limit")
	return cmd
}

// overrideMaxItems applies --max to the agent's limit for this invocation.
func overrideMaxItems(cfg *config.Config, agent string, limit int) bool {
	switch agent {
	case agents.NameScout:
		cfg.Pipeline.ScoutMaxItems = limit
	case agents.NameWriter:
		cfg.Pipeline.WriterMaxItems = limit
	case agents.NameEditor:
		cfg.Pipeline.EditorMaxItems = limit
	case agents.NamePublisher:
		cfg.Pipeline.PublisherMaxItems = limit
	case agents.NamePromoter:
		cfg.Pipeline.PromoterMaxItems = limit
	default:
		return false
	}
	return true
}

func formatOutcome(o stage.Outcome) string {
	if o.Reason != "" {
		return fmt.Sprintf("%s: skipped (%s)", o.Agent, o.Reason)
	}
	return fmt.Sprintf("%s: processed %d of %d attempted, %d skipped, %d failed",
		o.Agent, o.Processed, o.Attempted, o.Skipped, o.Failed)
}

func newAgentHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report whether each agent can run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				health := rt.AgentHealth(cmd.Context())
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				rows := make([][]string, 0, len(health))
				for _, h := range health {
					rows = append(rows, []string{h.Name, yesNo(h.Ready), h.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{col("Agent"), col("Ready"), textCol("Detail")},
					rows,
				))
				return nil
			})
		},
	}
}

func parseItemID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", value)
	}
	return id, nil
}
