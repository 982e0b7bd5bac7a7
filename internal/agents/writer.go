package agents

import (
	"context"
	"fmt"
	"strings"

	"autoposter/internal/generation"
	"autoposter/internal/logging"
	"autoposter/internal/mode"
	"autoposter/internal/queue"
	"autoposter/internal/services"
	"autoposter/internal/stage"
)

const researchSourceLimit = 3

// Writer claims todo items and turns them into drafts awaiting review.
type Writer struct {
	claimAgent
	generator generation.Generator
}

// NewWriter constructs the Writer agent.
func NewWriter(deps Deps) *Writer {
	return &Writer{
		claimAgent: newClaimAgent(deps, NameWriter, queue.ClaimWriting, queue.StatusTodo, deps.config().Pipeline.WriterMaxItems),
		generator:  deps.Generator,
	}
}

// HealthCheck implements stage.Agent.
func (w *Writer) HealthCheck(ctx context.Context) stage.Health {
	if w.generator == nil {
		return stage.Unhealthy(NameWriter, "generator not configured")
	}
	return w.storeHealth(ctx)
}

// Run implements stage.Agent.
func (w *Writer) Run(ctx context.Context, settings mode.Settings) (stage.Outcome, error) {
	return w.claimLoop(ctx, settings, w.process)
}

func (w *Writer) process(ctx context.Context, item *queue.Item) (itemResult, error) {
	if w.generator == nil {
		return resultSkipped, services.Wrap(services.ErrConfiguration, NameWriter, "generate", "generator not configured", nil)
	}
	if _, ok, err := w.transition(ctx, item.ID, queue.StatusTodo, queue.StatusWriting); err != nil || !ok {
		w.release(ctx, item.ID)
		return resultSkipped, err
	}

	research, err := w.researchContext(ctx, item.PillarTheme)
	if err != nil {
		w.abandon(ctx, item.ID)
		return resultSkipped, err
	}

	draft, err := w.generator.Generate(ctx, generation.Request{
		TopicKeyword:    item.TopicKeyword,
		PillarTheme:     item.PillarTheme,
		SubTheme:        item.SubTheme,
		ResearchContext: research,
		Feedback:        item.LastError,
	})
	if err != nil {
		if ctx.Err() != nil {
			w.abandon(ctx, item.ID)
			return resultSkipped, ctx.Err()
		}
		return w.fail(ctx, item.ID, queue.StatusWriting, queue.StatusTodo,
			services.Wrap(services.ErrStageFailure, NameWriter, "generate", "", err))
	}

	stored, err := w.store.CreateDraft(ctx, queue.Draft{
		PillarTheme: item.PillarTheme,
		SubTheme:    item.SubTheme,
		Format:      draft.Format,
		Tone:        draft.Tone,
		ContentBody: draft.Content,
	})
	if err != nil {
		w.abandon(ctx, item.ID)
		return resultSkipped, fmt.Errorf("store draft: %w", err)
	}
	if err := w.store.AttachDraft(ctx, item.ID, stored.ID); err != nil {
		w.abandon(ctx, item.ID)
		return resultSkipped, fmt.Errorf("attach draft: %w", err)
	}
	if item.LastError != "" {
		if err := w.store.ClearLastError(ctx, item.ID); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, w.logger), "could not clear previous error", "clear_error_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "item may be reset by the monitor while in review"),
			)
		}
	}

	if _, ok, err := w.transition(ctx, item.ID, queue.StatusWriting, queue.StatusReview); err != nil || !ok {
		w.release(ctx, item.ID)
		return resultSkipped, err
	}
	w.release(ctx, item.ID)

	logging.WithContext(ctx, w.logger).Info("draft written",
		logging.String(logging.FieldEventType, "draft_written"),
		logging.Int64("draft_id", stored.ID),
		logging.String("format", string(stored.Format)),
		logging.String("tone", string(stored.Tone)),
		logging.Int("revision", item.RevisionCount),
	)
	return resultProcessed, nil
}

// abandon puts the item back at todo without counting a revision.
func (w *Writer) abandon(ctx context.Context, id int64) {
	ctx = context.WithoutCancel(ctx)
	if _, _, err := w.transition(ctx, id, queue.StatusWriting, queue.StatusTodo); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, w.logger), "could not return item to todo", "transition_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "move the item back with pipeline transition"),
		)
	}
}

func (w *Writer) researchContext(ctx context.Context, pillar string) (string, error) {
	sources, err := w.store.SourcesForPillar(ctx, pillar, researchSourceLimit)
	if err != nil {
		return "", fmt.Errorf("research context: %w", err)
	}
	if len(sources) == 0 {
		if sources, err = w.store.ListSources(ctx, researchSourceLimit); err != nil {
			return "", fmt.Errorf("research context: %w", err)
		}
	}
	lines := make([]string, 0, len(sources))
	for _, src := range sources {
		text := strings.TrimSpace(src.SummaryText)
		if text == "" {
			text = strings.TrimSpace(src.Title)
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", src.SourceName, text))
	}
	return strings.Join(lines, "\n"), nil
}
