package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"autoposter/internal/config"
	"autoposter/internal/generation"
	"autoposter/internal/logging"
	"autoposter/internal/mode"
	"autoposter/internal/notifications"
	"autoposter/internal/pillars"
	"autoposter/internal/quality"
	"autoposter/internal/queue"
	"autoposter/internal/services"
	"autoposter/internal/stage"
	"autoposter/internal/tracing"
)

// Agent names as used in worker ids, logs, and the operator surface.
const (
	NameScout     = "scout"
	NameWriter    = "writer"
	NameEditor    = "editor"
	NamePublisher = "publisher"
	NamePromoter  = "promoter"
)

// Names lists the agents in pipeline order.
func Names() []string {
	return []string{NameScout, NameWriter, NameEditor, NamePublisher, NamePromoter}
}

// Webhook is the outbound publish hook used by the Publisher.
type Webhook interface {
	Send(ctx context.Context, event string, data map[string]any) bool
}

// Deps carries the collaborators shared by every agent.
type Deps struct {
	Store     *queue.Store
	Config    *config.Config
	Catalogue *pillars.Catalogue
	Generator generation.Generator
	Battery   quality.Battery
	Notifier  notifications.Service
	Webhook   Webhook
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Now       func() time.Time
	Rand      *rand.Rand
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) int64n(n int64) int64 {
	if d.Rand != nil {
		return d.Rand.Int64N(n)
	}
	return rand.Int64N(n)
}

func (d Deps) config() *config.Config {
	if d.Config != nil {
		return d.Config
	}
	cfg := config.Default()
	return &cfg
}

func (d Deps) catalogue() *pillars.Catalogue {
	if d.Catalogue != nil {
		return d.Catalogue
	}
	return pillars.Default()
}

func (d Deps) logger(name string) *slog.Logger {
	return logging.NewComponentLogger(d.Logger, name)
}

// All builds the five agents in pipeline order.
func All(deps Deps) []stage.Agent {
	return []stage.Agent{
		NewScout(deps),
		NewWriter(deps),
		NewEditor(deps),
		NewPublisher(deps),
		NewPromoter(deps),
	}
}

// WorkerID returns a claim holder id of the form "<agent>-<8 hex chars>".
func WorkerID(agent string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%x", agent, id[:4])
}

type itemResult int

const (
	resultProcessed itemResult = iota
	resultSkipped
	resultFailed
)

type processFunc func(ctx context.Context, item *queue.Item) (itemResult, error)

// claimAgent holds the claim loop shared by the four claiming agents.
type claimAgent struct {
	name     string
	stage    queue.ClaimStage
	input    queue.Status
	maxItems int
	store    *queue.Store
	claimTTL time.Duration
	tracer   trace.Tracer
	logger   *slog.Logger
}

func newClaimAgent(deps Deps, name string, claim queue.ClaimStage, input queue.Status, maxItems int) claimAgent {
	ttl := deps.config().ClaimTTL()
	if ttl <= 0 {
		ttl = queue.DefaultClaimTTL
	}
	return claimAgent{
		name:     name,
		stage:    claim,
		input:    input,
		maxItems: maxItems,
		store:    deps.Store,
		claimTTL: ttl,
		tracer:   deps.Tracer,
		logger:   deps.logger(name),
	}
}

func (a *claimAgent) Name() string {
	return a.name
}

func (a *claimAgent) storeHealth(ctx context.Context) stage.Health {
	if a.store == nil {
		return stage.Unhealthy(a.name, "store unavailable")
	}
	if _, err := a.store.CountByStatus(ctx, a.input); err != nil {
		return stage.Unhealthy(a.name, "store query failed: %v", err)
	}
	return stage.Healthy(a.name)
}

// claimLoop selects unclaimed items at the input status and runs process on
// each item it manages to claim and verify. process owns the transition and
// the release; a returned error aborts the run after releasing the claim.
func (a *claimAgent) claimLoop(ctx context.Context, settings mode.Settings, process processFunc) (outcome stage.Outcome, runErr error) {
	if skipped, skip := stage.Gate(a.name, settings); skip {
		a.logger.Debug("agent run skipped", logging.String("reason", skipped.Reason))
		return skipped, nil
	}

	ctx, span := tracing.StartSpan(ctx, a.tracer, "agent."+a.name,
		attribute.String("agent", a.name),
		attribute.Bool("shadow", settings.IsShadow()),
	)
	outcome = stage.Outcome{Agent: a.name}
	defer func() {
		span.SetAttributes(
			attribute.Int("attempted", outcome.Attempted),
			attribute.Int("processed", outcome.Processed),
			attribute.Int("skipped", outcome.Skipped),
			attribute.Int("failed", outcome.Failed),
		)
		tracing.EndSpan(span, runErr)
	}()

	items, err := a.store.Unclaimed(ctx, a.input, a.maxItems)
	if err != nil {
		return outcome, fmt.Errorf("%s: select %s items: %w", a.name, a.input, err)
	}
	if len(items) == 0 {
		a.logger.Debug("no unclaimed items", logging.String("status", string(a.input)))
		return outcome, nil
	}

	worker := WorkerID(a.name)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		outcome.Attempted++

		claimed, err := a.store.AttemptClaim(ctx, item.ID, a.stage, worker, a.claimTTL)
		if err != nil {
			return outcome, fmt.Errorf("%s: claim item %d: %w", a.name, item.ID, err)
		}
		if !claimed {
			a.logger.Debug("claim lost", logging.Int64(logging.FieldItemID, item.ID))
			outcome.Skipped++
			continue
		}
		held, err := a.store.VerifyClaim(ctx, item.ID, a.stage, worker)
		if err != nil {
			a.release(ctx, item.ID)
			return outcome, fmt.Errorf("%s: verify claim on item %d: %w", a.name, item.ID, err)
		}
		if !held {
			a.logger.Debug("claim not verified", logging.Int64(logging.FieldItemID, item.ID))
			outcome.Skipped++
			continue
		}

		itemCtx := services.WithWorker(ctx, worker)
		itemCtx = services.WithStage(itemCtx, a.name)
		itemCtx = services.WithItemID(itemCtx, item.ID)

		result, err := process(itemCtx, item)
		if err != nil {
			a.release(itemCtx, item.ID)
			return outcome, fmt.Errorf("%s: item %d: %w", a.name, item.ID, err)
		}
		switch result {
		case resultProcessed:
			outcome.Processed++
		case resultFailed:
			outcome.Failed++
		default:
			outcome.Skipped++
		}
	}

	a.logger.Info("agent run complete",
		logging.String(logging.FieldEventType, "agent_run_complete"),
		logging.Int("attempted", outcome.Attempted),
		logging.Int("processed", outcome.Processed),
		logging.Int("skipped", outcome.Skipped),
		logging.Int("failed", outcome.Failed),
		logging.Bool("shadow", settings.IsShadow()),
	)
	return outcome, nil
}

// release drops the claim even when ctx has been cancelled.
func (a *claimAgent) release(ctx context.Context, id int64) {
	ctx = context.WithoutCancel(ctx)
	if _, err := a.store.ReleaseClaim(ctx, id, a.stage); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "claim release failed", "claim_release_failed",
			logging.Int64(logging.FieldItemID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the monitor releases the claim once it is stale"),
			logging.String(logging.FieldImpact, "item stays claimed until recovered"),
		)
	}
}

// transition applies from -> to. A status race or vanished item is reported
// as ok=false with a nil error; other failures are returned.
func (a *claimAgent) transition(ctx context.Context, id int64, from, to queue.Status) (*queue.Item, bool, error) {
	updated, err := a.store.Transition(ctx, id, from, to)
	if err == nil {
		return updated, true, nil
	}
	if errors.Is(err, queue.ErrConcurrentModification) || errors.Is(err, queue.ErrNotFound) {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "transition rejected", "transition_conflict",
			logging.String("from", string(from)),
			logging.String("to", string(to)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "another worker or operator moved the item"),
			logging.String(logging.FieldImpact, "item skipped for this run"),
		)
		return nil, false, nil
	}
	return nil, false, err
}

// fail records a stage failure and regresses the item from -> to.
func (a *claimAgent) fail(ctx context.Context, id int64, from, to queue.Status, cause error) (itemResult, error) {
	logger := logging.WithContext(ctx, a.logger)
	message := services.Summary(cause, 500)
	if _, err := a.store.IncrementRevision(ctx, id, message); err != nil {
		return resultFailed, fmt.Errorf("record failure: %w", err)
	}
	if _, _, err := a.transition(ctx, id, from, to); err != nil {
		logging.ErrorWithContext(logger, "regression transition failed", "transition_failed",
			logging.String("from", string(from)),
			logging.String("to", string(to)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the monitor resets errored items after the error threshold"),
		)
	}
	a.release(ctx, id)
	logging.WarnWithContext(logger, "stage failed", "stage_failure",
		logging.String("next_status", string(to)),
		logging.String("reason", message),
		logging.String(logging.FieldErrorHint, "review last_error on the item"),
		logging.String(logging.FieldImpact, "item regressed for another attempt"),
	)
	return resultFailed, nil
}
