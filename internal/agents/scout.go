package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"autoposter/internal/config"
	"autoposter/internal/logging"
	"autoposter/internal/mode"
	"autoposter/internal/pillars"
	"autoposter/internal/queue"
	"autoposter/internal/stage"
	"autoposter/internal/textutil"
	"autoposter/internal/tracing"
)

const (
	scoutSourceLimit = 20
	topicKeywordMax  = 256
	// Titles at or above this cosine similarity to one already seeded in
	// the same run are treated as the same story.
	scoutDuplicateThreshold = 0.8
)

// Scout seeds the backlog from recent source material. It creates items
// rather than claiming them.
type Scout struct {
	store     *queue.Store
	cfg       *config.Config
	catalogue *pillars.Catalogue
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// NewScout constructs the Scout agent.
func NewScout(deps Deps) *Scout {
	return &Scout{
		store:     deps.Store,
		cfg:       deps.config(),
		catalogue: deps.catalogue(),
		tracer:    deps.Tracer,
		logger:    deps.logger(NameScout),
		now:       deps.now,
	}
}

// Name implements stage.Agent.
func (s *Scout) Name() string { return NameScout }

// HealthCheck implements stage.Agent.
func (s *Scout) HealthCheck(ctx context.Context) stage.Health {
	if s.store == nil {
		return stage.Unhealthy(NameScout, "store unavailable")
	}
	if _, err := s.store.CountByStatus(ctx, queue.StatusBacklog); err != nil {
		return stage.Unhealthy(NameScout, "store query failed: %v", err)
	}
	if len(s.catalogue.Themes) == 0 {
		return stage.Unhealthy(NameScout, "pillar catalogue is empty")
	}
	return stage.Healthy(NameScout)
}

// Run tops the backlog up to the configured floor.
func (s *Scout) Run(ctx context.Context, settings mode.Settings) (outcome stage.Outcome, runErr error) {
	if skipped, skip := stage.Gate(NameScout, settings); skip {
		s.logger.Debug("agent run skipped", logging.String("reason", skipped.Reason))
		return skipped, nil
	}

	ctx, span := tracing.StartSpan(ctx, s.tracer, "agent."+NameScout, attribute.String("agent", NameScout))
	outcome = stage.Outcome{Agent: NameScout}
	defer func() {
		span.SetAttributes(attribute.Int("processed", outcome.Processed), attribute.Int("skipped", outcome.Skipped))
		tracing.EndSpan(span, runErr)
	}()

	floor := s.cfg.Pipeline.BacklogFloor
	backlog, err := s.store.CountByStatus(ctx, queue.StatusBacklog)
	if err != nil {
		return outcome, fmt.Errorf("scout: count backlog: %w", err)
	}
	if backlog >= floor {
		s.logger.Info("backlog at floor, nothing to seed",
			logging.Int("backlog", backlog),
			logging.Int("floor", floor),
		)
		return outcome, nil
	}
	needed := min(s.cfg.Pipeline.ScoutMaxItems, floor-backlog)

	lookback := time.Duration(s.cfg.Pipeline.SourceLookbackDays) * 24 * time.Hour
	sources, err := s.store.RecentSources(ctx, s.now().Add(-lookback), scoutSourceLimit)
	if err != nil {
		return outcome, fmt.Errorf("scout: recent sources: %w", err)
	}

	var seeded []*textutil.Fingerprint
	for _, src := range sources {
		if outcome.Processed >= needed {
			break
		}
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		outcome.Attempted++

		topic := topicKeyword(src.Title)
		inFlight, err := s.store.TopicInFlight(ctx, topic)
		if err != nil {
			return outcome, fmt.Errorf("scout: topic lookup: %w", err)
		}
		if inFlight {
			outcome.Skipped++
			continue
		}
		if strings.TrimSpace(src.PillarTheme) == "" {
			outcome.Skipped++
			continue
		}
		fp := textutil.NewFingerprint(src.Title)
		if dup, score := textutil.NearDuplicate(fp, seeded, scoutDuplicateThreshold); dup {
			s.logger.Debug("skipping near-duplicate source",
				logging.String("title", truncateRunes(src.Title, 60)),
				logging.Float64("similarity", score),
			)
			outcome.Skipped++
			continue
		}

		pillar := s.catalogue.Resolve(src.PillarTheme)
		item, err := s.store.CreateItem(ctx, queue.NewItem{
			TopicKeyword: topic,
			PillarTheme:  pillar,
			SubTheme:     s.catalogue.FirstSubTheme(pillar),
			MaxRevisions: s.cfg.Pipeline.MaxRevisions,
		})
		if err != nil {
			return outcome, fmt.Errorf("scout: create item: %w", err)
		}
		s.logger.Info("seeded backlog item",
			logging.String(logging.FieldEventType, "item_seeded"),
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("pillar", pillar),
			logging.String("topic", truncateRunes(topic, 60)),
		)
		if fp != nil {
			seeded = append(seeded, fp)
		}
		outcome.Processed++
	}

	s.logger.Info("agent run complete",
		logging.String(logging.FieldEventType, "agent_run_complete"),
		logging.Int("created", outcome.Processed),
		logging.Int("needed", needed),
		logging.Int("skipped", outcome.Skipped),
	)
	return outcome, nil
}

func topicKeyword(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "untitled"
	}
	return truncateRunes(title, topicKeywordMax)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
