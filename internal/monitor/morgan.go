package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"autoposter/internal/config"
	"autoposter/internal/logging"
	"autoposter/internal/notifications"
	"autoposter/internal/queue"
	"autoposter/internal/tracing"
)

// Actor is recorded on every audit entry Morgan writes.
const Actor = "morgan"

// Audit actions.
const (
	ActionStaleClaimsRecovered = "pipeline.stale_claims_recovered"
	ActionErroredItemsReset    = "pipeline.errored_items_reset"
)

// HealthStatus grades the pipeline.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// Thresholds controls what Morgan treats as stale, errored, or stuck.
type Thresholds struct {
	StaleClaimAge     time.Duration
	ErrorStaleAge     time.Duration
	MaxAutoResets     int
	StuckAge          time.Duration
	UnhealthyErrorMin int
}

// ThresholdsFromConfig reads the monitor section.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		StaleClaimAge:     time.Duration(cfg.Monitor.StaleClaimMinutes) * time.Minute,
		ErrorStaleAge:     time.Duration(cfg.Monitor.ErrorStaleMinutes) * time.Minute,
		MaxAutoResets:     cfg.Monitor.MaxAutoResets,
		StuckAge:          time.Duration(cfg.Monitor.StuckHours) * time.Hour,
		UnhealthyErrorMin: cfg.Monitor.UnhealthyErrorThreshold,
	}
}

// Recovery describes one released stale claim.
type Recovery struct {
	ItemID         int64  `json:"item_id"`
	Action         string `json:"action"`
	PreviousWorker string `json:"previous_worker"`
	PreviousStage  string `json:"previous_stage"`
	Status         string `json:"status"`
}

// Reset describes one errored item moved back for retry.
type Reset struct {
	ItemID        int64  `json:"item_id"`
	Action        string `json:"action"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	PreviousError string `json:"previous_error"`
	RevisionCount int    `json:"revision_count"`
}

// HealthReport aggregates pipeline counts for operators.
type HealthReport struct {
	Overview     queue.Overview `json:"overview"`
	StaleClaims  int            `json:"stale_claims"`
	ErroredItems int            `json:"errored_items"`
	StuckItems   int            `json:"stuck_items"`
	Status       HealthStatus   `json:"health_status"`
	CheckedAt    time.Time      `json:"checked_at"`
}

// Summary is the result of one full pass.
type Summary struct {
	StaleClaimsRecovered int          `json:"stale_claims_recovered"`
	ErroredItemsReset    int          `json:"errored_items_reset"`
	Health               HealthReport `json:"health"`
	Recoveries           []Recovery   `json:"recoveries"`
	Resets               []Reset      `json:"resets"`
}

// resetRoutes maps an errored status to where Morgan sends it.
var resetRoutes = []struct {
	from queue.Status
	to   queue.Status
}{
	{queue.StatusWriting, queue.StatusTodo},
	{queue.StatusReview, queue.StatusTodo},
	{queue.StatusReadyToPublish, queue.StatusBacklog},
}

// Option customizes a Morgan.
type Option func(*Morgan)

// WithNotifier sends an alert whenever a pass ends unhealthy.
func WithNotifier(n notifications.Service) Option {
	return func(m *Morgan) { m.notifier = n }
}

// WithTracer wraps each pass in a span.
func WithTracer(t trace.Tracer) Option {
	return func(m *Morgan) { m.tracer = t }
}

// WithThresholds overrides the configured thresholds.
func WithThresholds(t Thresholds) Option {
	return func(m *Morgan) { m.thresholds = t }
}

// Morgan is the self-healing monitor. Every method takes now explicitly.
type Morgan struct {
	store      *queue.Store
	audit      queue.AuditSink
	notifier   notifications.Service
	tracer     trace.Tracer
	thresholds Thresholds
	logger     *slog.Logger
}

// New builds a Morgan over store, which also receives audit entries.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger, opts ...Option) *Morgan {
	m := &Morgan{
		store:      store,
		audit:      store,
		thresholds: ThresholdsFromConfig(cfg),
		logger:     logging.NewComponentLogger(logger, Actor),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run recovers stale claims, resets errored items, then reports health.
func (m *Morgan) Run(ctx context.Context, now time.Time) (summary Summary, runErr error) {
	ctx, span := tracing.StartSpan(ctx, m.tracer, "morgan.run")
	defer func() {
		span.SetAttributes(
			attribute.Int("stale_claims_recovered", summary.StaleClaimsRecovered),
			attribute.Int("errored_items_reset", summary.ErroredItemsReset),
			attribute.String("health_status", string(summary.Health.Status)),
		)
		tracing.EndSpan(span, runErr)
	}()

	recoveries, err := m.RecoverStaleClaims(ctx, now)
	if err != nil {
		return summary, err
	}
	resets, err := m.ResetErroredItems(ctx, now)
	if err != nil {
		return summary, err
	}
	health, err := m.GenerateHealthReport(ctx, now)
	if err != nil {
		return summary, err
	}

	summary = Summary{
		StaleClaimsRecovered: len(recoveries),
		ErroredItemsReset:    len(resets),
		Health:               health,
		Recoveries:           recoveries,
		Resets:               resets,
	}
	if health.Status == Unhealthy {
		m.alert(ctx, health)
	}
	return summary, nil
}

// RecoverStaleClaims force-releases claims taken at or before now minus the
// stale claim age.
func (m *Morgan) RecoverStaleClaims(ctx context.Context, now time.Time) ([]Recovery, error) {
	stale, err := m.store.FindStaleClaims(ctx, now.Add(-m.thresholds.StaleClaimAge))
	if err != nil {
		return nil, fmt.Errorf("find stale claims: %w", err)
	}

	recoveries := make([]Recovery, 0, len(stale))
	for _, item := range stale {
		released, err := m.store.ForceReleaseClaim(ctx, item.ID)
		if err != nil {
			return recoveries, fmt.Errorf("release stale claim on item %d: %w", item.ID, err)
		}
		if !released {
			continue
		}
		rec := Recovery{
			ItemID:         item.ID,
			Action:         "stale_claim_released",
			PreviousWorker: item.ClaimedBy,
			PreviousStage:  string(item.ClaimStage),
			Status:         string(item.Status),
		}
		recoveries = append(recoveries, rec)
		logging.WarnWithContext(m.logger, "released stale claim", "stale_claim_released",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldWorkerID, rec.PreviousWorker),
			logging.String(logging.FieldStage, rec.PreviousStage),
			logging.String("status", rec.Status),
			logging.String(logging.FieldErrorHint, "check the worker's logs for a crash or hang"),
			logging.String(logging.FieldImpact, "item is available to agents again"),
		)
	}

	if len(recoveries) > 0 {
		m.record(ctx, ActionStaleClaimsRecovered, map[string]any{
			"count": len(recoveries),
			"items": recoveries,
		})
	}
	return recoveries, nil
}

// ResetErroredItems moves unclaimed errored items that have not changed for
// the error stale age back to an earlier status and clears last_error. Items
// past max_revisions plus the auto-reset allowance are left for an operator.
func (m *Morgan) ResetErroredItems(ctx context.Context, now time.Time) ([]Reset, error) {
	cutoff := now.Add(-m.thresholds.ErrorStaleAge)
	var resets []Reset

	for _, route := range resetRoutes {
		items, err := m.store.ErroredSince(ctx, route.from, cutoff)
		if err != nil {
			return resets, fmt.Errorf("find errored %s items: %w", route.from, err)
		}
		for _, item := range items {
			logger := m.logger.With(logging.Int64(logging.FieldItemID, item.ID))
			if item.RevisionCount >= item.MaxRevisions+m.thresholds.MaxAutoResets {
				logger.Info("auto-reset allowance exhausted",
					logging.Int("revision_count", item.RevisionCount),
					logging.Int("max_revisions", item.MaxRevisions),
					logging.Int("max_auto_resets", m.thresholds.MaxAutoResets),
				)
				continue
			}
			previous := item.LastError
			if _, err := m.store.Transition(ctx, item.ID, route.from, route.to); err != nil {
				logging.WarnWithContext(logger, "errored item reset failed", "reset_failed",
					logging.String("from", string(route.from)),
					logging.String("to", string(route.to)),
					logging.Error(err),
					logging.String(logging.FieldImpact, "item keeps its error until the next pass"),
				)
				continue
			}
			if err := m.store.ClearLastError(ctx, item.ID); err != nil {
				return resets, err
			}
			resets = append(resets, Reset{
				ItemID:        item.ID,
				Action:        "error_reset",
				FromStatus:    string(route.from),
				ToStatus:      string(route.to),
				PreviousError: previous,
				RevisionCount: item.RevisionCount,
			})
			logger.Info("reset errored item",
				logging.String(logging.FieldEventType, "error_reset"),
				logging.String("from", string(route.from)),
				logging.String("to", string(route.to)),
				logging.Int("revision_count", item.RevisionCount),
			)
		}
	}

	if len(resets) > 0 {
		m.record(ctx, ActionErroredItemsReset, map[string]any{
			"count": len(resets),
			"items": resets,
		})
	}
	return resets, nil
}

// GenerateHealthReport counts stale claims, errored items, and stuck items.
func (m *Morgan) GenerateHealthReport(ctx context.Context, now time.Time) (HealthReport, error) {
	report := HealthReport{CheckedAt: now.UTC()}

	overview, err := m.store.Overview(ctx)
	if err != nil {
		return report, err
	}
	report.Overview = overview

	stale, err := m.store.FindStaleClaims(ctx, now.Add(-m.thresholds.StaleClaimAge))
	if err != nil {
		return report, fmt.Errorf("find stale claims: %w", err)
	}
	errored, err := m.store.ErroredItems(ctx)
	if err != nil {
		return report, fmt.Errorf("find errored items: %w", err)
	}
	stuck, err := m.store.StuckItems(ctx, now.Add(-m.thresholds.StuckAge))
	if err != nil {
		return report, fmt.Errorf("find stuck items: %w", err)
	}
	report.StaleClaims = len(stale)
	report.ErroredItems = len(errored)
	report.StuckItems = len(stuck)
	report.Status = m.grade(report)

	m.logger.Info("health report",
		logging.String(logging.FieldEventType, "health_report"),
		logging.String("health_status", string(report.Status)),
		logging.Int("stale_claims", report.StaleClaims),
		logging.Int("errored_items", report.ErroredItems),
		logging.Int("stuck_items", report.StuckItems),
		logging.Int("total", overview.Total),
	)
	return report, nil
}

func (m *Morgan) grade(r HealthReport) HealthStatus {
	switch {
	case r.StaleClaims > 0 || r.ErroredItems >= m.thresholds.UnhealthyErrorMin:
		return Unhealthy
	case r.ErroredItems > 0 || r.StuckItems > 0:
		return Degraded
	default:
		return Healthy
	}
}

func (m *Morgan) alert(ctx context.Context, report HealthReport) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventPipelineUnhealthy, notifications.Payload{
		"health_status": string(report.Status),
		"stale_claims":  report.StaleClaims,
		"errored_items": report.ErroredItems,
		"stuck_items":   report.StuckItems,
	}); err != nil {
		logging.WarnWithContext(m.logger, "unhealthy alert failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "operator was not alerted"),
		)
	}
}

func (m *Morgan) record(ctx context.Context, action string, detail map[string]any) {
	if m.audit == nil {
		return
	}
	if err := m.audit.RecordAudit(ctx, queue.AuditEntry{
		Actor:        Actor,
		Action:       action,
		ResourceType: "pipeline",
		Detail:       detail,
	}); err != nil {
		logging.WarnWithContext(m.logger, "audit write failed", "audit_failed",
			logging.String("action", action),
			logging.Error(err),
			logging.String(logging.FieldImpact, "recovery is not in the audit log"),
		)
	}
}
