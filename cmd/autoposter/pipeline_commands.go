package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"autoposter/internal/monitor"
	"autoposter/internal/pipeline"
	"autoposter/internal/queue"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect and manage work items",
	}
	pipelineCmd.AddCommand(newPipelineOverviewCommand(ctx))
	pipelineCmd.AddCommand(newPipelineHealthCommand(ctx))
	pipelineCmd.AddCommand(newPipelineListCommand(ctx))
	pipelineCmd.AddCommand(newPipelineShowCommand(ctx))
	pipelineCmd.AddCommand(newPipelineAddCommand(ctx))
	pipelineCmd.AddCommand(newPipelineTransitionCommand(ctx))
	pipelineCmd.AddCommand(newPipelineAuditCommand(ctx))
	return pipelineCmd
}

func newPipelineOverviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Count items per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				overview, err := rt.Overview(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, overview)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderOverview(overview))
				return nil
			})
		},
	}
}

func renderOverview(overview queue.Overview) string {
	statuses := queue.AllStatuses()
	rows := make([][]string, 0, len(statuses)+2)
	for _, status := range statuses {
		rows = append(rows, []string{string(status), strconv.Itoa(overview.Counts[status])})
	}
	rows = append(rows,
		[]string{"total", strconv.Itoa(overview.Total)},
		[]string{"claimed", strconv.Itoa(overview.Claimed)},
	)
	return renderTable([]column{col("Status"), numCol("Items")}, rows)
}

func newPipelineHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Grade pipeline health without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				report, err := rt.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, report)
				}
				printHealthReport(cmd, report)
				return nil
			})
		},
	}
}

func printHealthReport(cmd *cobra.Command, report monitor.HealthReport) {
	p := newStatusPrinter(cmd.OutOrStdout())
	p.line("Health", healthKind(report.Status), string(report.Status))
	p.line("Stale claims", countKind(report.StaleClaims), strconv.Itoa(report.StaleClaims))
	p.line("Errored items", countKind(report.ErroredItems), strconv.Itoa(report.ErroredItems))
	p.line("Stuck items", countKind(report.StuckItems), strconv.Itoa(report.StuckItems))
	p.line("Items", statusInfo, fmt.Sprintf("%d total, %d claimed", report.Overview.Total, report.Overview.Claimed))
}

func healthKind(status monitor.HealthStatus) statusKind {
	switch status {
	case monitor.Healthy:
		return statusOK
	case monitor.Degraded:
		return statusWarn
	default:
		return statusError
	}
}

func countKind(n int) statusKind {
	if n == 0 {
		return statusOK
	}
	return statusWarn
}

func newPipelineListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				items, err := rt.Store().List(cmd.Context(), queue.ListFilter{Statuses: statuses, Limit: limit})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					views := make([]itemView, 0, len(items))
					for _, item := range items {
						views = append(views, newItemView(item))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No items")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						string(item.Status),
						item.TopicKeyword,
						pillarLabel(item.PillarTheme),
						fmt.Sprintf("%d/%d", item.RevisionCount, item.MaxRevisions),
						claimLabel(item),
						relativeAge(item.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{numCol("ID"), col("Status"), textCol("Topic"), col("Pillar"), numCol("Revisions"), col("Claim"), col("Updated")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Only list items in these statuses")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of items (0 for all)")
	return cmd
}

func parseStatuses(values []string) ([]queue.Status, error) {
	out := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q (expected one of %s)", value, statusNames())
		}
		out = append(out, status)
	}
	return out, nil
}

func parseStatus(value string) (queue.Status, error) {
	status, ok := queue.ParseStatus(value)
	if !ok {
		return "", fmt.Errorf("unknown status %q (expected one of %s)", value, statusNames())
	}
	return status, nil
}

func statusNames() string {
	statuses := queue.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}

func newPipelineShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one work item with its draft and post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				store := rt.Store()
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				detail := itemDetail{Item: newItemView(item)}
				if item.DraftID != nil {
					draft, err := store.GetDraft(cmd.Context(), *item.DraftID)
					if err != nil {
						return err
					}
					if draft != nil {
						detail.Draft = &draftView{
							ID:          draft.ID,
							Format:      string(draft.Format),
							Tone:        string(draft.Tone),
							ContentBody: draft.ContentBody,
							CreatedAt:   draft.CreatedAt,
						}
					}
				}
				post, err := store.PostForItem(cmd.Context(), id)
				if err != nil {
					return err
				}
				if post != nil {
					detail.Post = &postView{
						ID:                      post.ID,
						ScheduledTime:           post.ScheduledTime,
						ManualPublishNotifiedAt: post.ManualPublishNotifiedAt,
					}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, detail)
				}
				printItemDetail(cmd, item, detail)
				return nil
			})
		},
	}
}

func printItemDetail(cmd *cobra.Command, item *queue.Item, detail itemDetail) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Item %d: %s\n", item.ID, item.TopicKeyword)
	fmt.Fprintf(out, "  Status:       %s\n", item.Status)
	fmt.Fprintf(out, "  Pillar:       %s\n", pillarLabel(item.PillarTheme))
	fmt.Fprintf(out, "  Sub-theme:    %s\n", pillarLabel(item.SubTheme))
	fmt.Fprintf(out, "  Revisions:    %d/%d\n", item.RevisionCount, item.MaxRevisions)
	fmt.Fprintf(out, "  Quality:      %s\n", formatScore(item.QualityScore))
	fmt.Fprintf(out, "  Readability:  %s\n", formatScore(item.ReadabilityScore))
	fmt.Fprintf(out, "  Fact check:   %s\n", orDash(string(item.FactCheckStatus)))
	fmt.Fprintf(out, "  Social:       %s\n", orDash(string(item.SocialStatus)))
	fmt.Fprintf(out, "  Claim:        %s\n", claimLabel(item))
	fmt.Fprintf(out, "  Last error:   %s\n", orDash(item.LastError))
	fmt.Fprintf(out, "  Updated:      %s\n", relativeAge(item.UpdatedAt))
	if detail.Post != nil {
		fmt.Fprintf(out, "  Scheduled:    %s\n", detail.Post.ScheduledTime.Format("2006-01-02 15:04 MST"))
	}
	if detail.Draft != nil {
		fmt.Fprintf(out, "\nDraft %d (%s, %s):\n%s\n", detail.Draft.ID, detail.Draft.Format, detail.Draft.Tone, detail.Draft.ContentBody)
	}
}

func newPipelineAddCommand(ctx *commandContext) *cobra.Command {
	var topic, pillar, subTheme string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a topic in the backlog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				item, err := rt.AddItem(cmd.Context(), topic, pillar, subTheme)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, newItemView(item))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added item %d to backlog (%s / %s)\n",
					item.ID, pillarLabel(item.PillarTheme), pillarLabel(item.SubTheme))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "Topic keyword")
	cmd.Flags().StringVar(&pillar, "pillar", "", "Content pillar (name or alias)")
	cmd.Flags().StringVar(&subTheme, "sub-theme", "", "Sub-theme (defaults to the pillar's first)")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newPipelineTransitionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transition <id> <from> <to>",
		Short: "Move an item between statuses by hand",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			from, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			to, err := parseStatus(args[2])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				item, err := rt.ManualTransition(cmd.Context(), id, from, to)
				if err != nil {
					return explainTransitionError(err, from, to)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, newItemView(item))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d: %s -> %s\n", item.ID, from, to)
				return nil
			})
		},
	}
}

func explainTransitionError(err error, from, to queue.Status) error {
	switch {
	case errors.Is(err, queue.ErrInvalidTransition):
		allowed := allowedTargets(from)
		return fmt.Errorf("%w (from %s the item may move to: %s)", err, from, allowed)
	case errors.Is(err, queue.ErrConcurrentModification):
		return fmt.Errorf("%w; the item is no longer in %s, check `pipeline show`", err, from)
	default:
		return err
	}
}

func allowedTargets(from queue.Status) string {
	targets := queue.AllowedTransitions(from)
	if len(targets) == 0 {
		return "nothing"
	}
	names := make([]string, 0, len(targets))
	for _, to := range targets {
		names = append(names, string(to))
	}
	return strings.Join(names, ", ")
}

func newPipelineAuditCommand(ctx *commandContext) *cobra.Command {
	var action string
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				entries, err := rt.Store().AuditEntries(cmd.Context(), strings.TrimSpace(action), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					views := make([]auditView, 0, len(entries))
					for _, entry := range entries {
						views = append(views, newAuditView(entry))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No audit entries")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						relativeAge(entry.CreatedAt),
						entry.Actor,
						entry.Action,
						orDash(entry.ResourceID),
						formatDetail(entry.Detail),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{col("When"), col("Actor"), col("Action"), numCol("Resource"), textCol("Detail")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Only show this action")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}

func formatDetail(detail map[string]any) string {
	if len(detail) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(detail))
	for key := range detail {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, detail[key]))
	}
	return strings.Join(parts, " ")
}
