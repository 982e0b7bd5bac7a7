package agents

import (
	"context"
	"fmt"

	"autoposter/internal/logging"
	"autoposter/internal/mode"
	"autoposter/internal/quality"
	"autoposter/internal/queue"
	"autoposter/internal/services"
	"autoposter/internal/stage"
)

// Editor claims review items and runs the quality battery on their drafts.
type Editor struct {
	claimAgent
	battery quality.Battery
}

// NewEditor constructs the Editor agent. Without a battery it falls back to
// the default gates built from the catalogue's author profile.
func NewEditor(deps Deps) *Editor {
	battery := deps.Battery
	if battery == nil {
		battery = quality.NewGates(deps.catalogue().Profile)
	}
	return &Editor{
		claimAgent: newClaimAgent(deps, NameEditor, queue.ClaimReview, queue.StatusReview, deps.config().Pipeline.EditorMaxItems),
		battery:    battery,
	}
}

// HealthCheck implements stage.Agent.
func (e *Editor) HealthCheck(ctx context.Context) stage.Health {
	return e.storeHealth(ctx)
}

// Run implements stage.Agent.
func (e *Editor) Run(ctx context.Context, settings mode.Settings) (stage.Outcome, error) {
	return e.claimLoop(ctx, settings, e.process)
}

func (e *Editor) process(ctx context.Context, item *queue.Item) (itemResult, error) {
	logger := logging.WithContext(ctx, e.logger)

	draft, err := loadDraft(ctx, e.store, item)
	if err != nil {
		return resultSkipped, err
	}
	if draft == nil {
		logging.WarnWithContext(logger, "item has no draft", "draft_missing",
			logging.String(logging.FieldErrorHint, "inspect the item with pipeline show"),
			logging.String(logging.FieldImpact, "item skipped"),
		)
		e.release(ctx, item.ID)
		return resultSkipped, nil
	}

	verdict, err := e.battery.Review(ctx, draft.ContentBody, item)
	if err != nil {
		if ctx.Err() != nil {
			return resultSkipped, ctx.Err()
		}
		return e.fail(ctx, item.ID, queue.StatusReview, queue.StatusTodo,
			services.Wrap(services.ErrStageFailure, NameEditor, "review", "", err))
	}

	score, readability := verdict.QualityScore, verdict.ReadabilityScore
	if verdict.Passed {
		if err := e.store.RecordReview(ctx, item.ID, &score, &readability, queue.FactCheckPassed); err != nil {
			return resultSkipped, fmt.Errorf("record review: %w", err)
		}
		if _, ok, err := e.transition(ctx, item.ID, queue.StatusReview, queue.StatusReadyToPublish); err != nil || !ok {
			e.release(ctx, item.ID)
			return resultSkipped, err
		}
		e.release(ctx, item.ID)
		logger.Info("draft passed review",
			logging.String(logging.FieldEventType, "review_passed"),
			logging.Float64("quality_score", score),
			logging.Float64("readability_score", readability),
		)
		return resultProcessed, nil
	}

	summary := verdict.FailureSummary()
	updated, err := e.store.IncrementRevision(ctx, item.ID, summary)
	if err != nil {
		return resultSkipped, fmt.Errorf("record failure: %w", err)
	}
	if err := e.store.RecordReview(ctx, item.ID, &score, &readability, queue.FactCheckFailed); err != nil {
		return resultSkipped, fmt.Errorf("record review: %w", err)
	}
	next := queue.StatusTodo
	if updated.ExceededMaxRevisions() {
		next = queue.StatusBacklog
	}
	if _, _, err := e.transition(ctx, item.ID, queue.StatusReview, next); err != nil {
		e.release(ctx, item.ID)
		return resultFailed, err
	}
	e.release(ctx, item.ID)

	logging.WarnWithContext(logger, "draft failed review", "review_failed",
		logging.String("failed_gates", summary),
		logging.Float64("quality_score", score),
		logging.Int("revision_count", updated.RevisionCount),
		logging.Int("max_revisions", updated.MaxRevisions),
		logging.String("next_status", string(next)),
		logging.String(logging.FieldErrorHint, "the writer retries with the review feedback"),
		logging.String(logging.FieldImpact, "item returned for revision"),
	)
	return resultFailed, nil
}

func loadDraft(ctx context.Context, store *queue.Store, item *queue.Item) (*queue.Draft, error) {
	if item.DraftID == nil {
		return nil, nil
	}
	draft, err := store.GetDraft(ctx, *item.DraftID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return draft, nil
}
