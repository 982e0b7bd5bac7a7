package research

import (
	"context"
	"log/slog"

	"autoposter/internal/config"
	"autoposter/internal/logging"
	"autoposter/internal/pillars"
	"autoposter/internal/queue"
)

const (
	maxTitleRunes   = 512
	maxURLRunes     = 1024
	maxSummaryRunes = 500
)

// SourceSink stores ingested material, ignoring URLs it already holds.
type SourceSink interface {
	AddSource(ctx context.Context, src queue.SourceMaterial) (bool, error)
}

// Fetcher returns the entries of one configured source.
type Fetcher interface {
	Fetch(ctx context.Context, src config.ResearchSource) ([]Entry, error)
}

// Result summarises one ingestion pass.
type Result struct {
	Sources   int `json:"sources"`
	Created   int `json:"created"`
	Duplicate int `json:"duplicate"`
	Failed    int `json:"failed"`
}

// Ingester scrapes configured sources into source material scored against the
// pillar catalogue.
type Ingester struct {
	sink      SourceSink
	fetcher   Fetcher
	catalogue *pillars.Catalogue
	maxItems  int
	logger    *slog.Logger
}

// NewIngester builds an Ingester. maxItems caps entries taken per source.
func NewIngester(sink SourceSink, fetcher Fetcher, catalogue *pillars.Catalogue, maxItems int, logger *slog.Logger) *Ingester {
	if catalogue == nil {
		catalogue = pillars.Default()
	}
	return &Ingester{
		sink:      sink,
		fetcher:   fetcher,
		catalogue: catalogue,
		maxItems:  maxItems,
		logger:    logging.NewComponentLogger(logger, "research"),
	}
}

// Ingest fetches each source in turn. A failing source is logged and counted;
// only store errors abort the pass.
func (in *Ingester) Ingest(ctx context.Context, sources []config.ResearchSource) (Result, error) {
	var result Result
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Sources++
		entries, err := in.fetcher.Fetch(ctx, src)
		if err != nil {
			result.Failed++
			logging.WarnWithContext(in.logger, "research source fetch failed", "research_fetch_failed",
				logging.String("source", src.Name),
				logging.String("url", src.URL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check research.sources selectors and reachability"),
			)
			continue
		}
		created, dup, err := in.store(ctx, src, entries)
		result.Created += created
		result.Duplicate += dup
		if err != nil {
			return result, err
		}
		in.logger.Info("research source ingested",
			logging.String("source", src.Name),
			logging.Int("entries", len(entries)),
			logging.Int("created", created),
			logging.Int("duplicate", dup),
		)
	}
	return result, nil
}

func (in *Ingester) store(ctx context.Context, src config.ResearchSource, entries []Entry) (int, int, error) {
	if in.maxItems > 0 && len(entries) > in.maxItems {
		entries = entries[:in.maxItems]
	}
	name := src.Name
	if name == "" {
		name = src.URL
	}
	created, dup := 0, 0
	for _, entry := range entries {
		if entry.Link == "" {
			continue
		}
		title := entry.Title
		if title == "" {
			title = "Untitled"
		}
		content := entry.Summary
		if content == "" {
			content = title
		}
		score, pillar := in.catalogue.Score(title + " " + content)
		inserted, err := in.sink.AddSource(ctx, queue.SourceMaterial{
			SourceName:     name,
			Title:          truncate(title, maxTitleRunes),
			URL:            truncate(entry.Link, maxURLRunes),
			PublishedAt:    entry.PublishedAt,
			SummaryText:    truncate(content, maxSummaryRunes),
			RelevanceScore: score,
			PillarTheme:    pillar,
		})
		if err != nil {
			return created, dup, err
		}
		if inserted {
			created++
		} else {
			dup++
		}
	}
	return created, dup, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
