package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"autoposter/internal/pipeline"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Research source material",
	}
	sourcesCmd.AddCommand(newSourcesIngestCommand(ctx))
	sourcesCmd.AddCommand(newSourcesListCommand(ctx))
	return sourcesCmd
}

func newSourcesIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Scrape the configured research sources now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				if len(rt.Config().Research.Sources) == 0 {
					return fmt.Errorf("no research sources configured (add [[research.sources]] to the config)")
				}
				result, err := rt.IngestSources(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sources: %d, new: %d, duplicate: %d, failed: %d\n",
					result.Sources, result.Created, result.Duplicate, result.Failed)
				return nil
			})
		},
	}
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored source material, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				sources, err := rt.Store().ListSources(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					views := make([]sourceView, 0, len(sources))
					for _, src := range sources {
						views = append(views, newSourceView(src))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(sources) == 0 {
					fmt.Fprintln(out, "No source material")
					return nil
				}
				rows := make([][]string, 0, len(sources))
				for _, src := range sources {
					rows = append(rows, []string{
						strconv.FormatInt(src.ID, 10),
						src.SourceName,
						src.Title,
						pillarLabel(src.PillarTheme),
						strconv.FormatFloat(src.RelevanceScore, 'f', 0, 64),
						relativeAge(src.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{numCol("ID"), col("Source"), textCol("Title"), col("Pillar"), numCol("Score"), col("Added")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sources")
	return cmd
}
