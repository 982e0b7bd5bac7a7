package logging

import (
	"context"
	"log/slog"

	"autoposter/internal/services"
)

// Structured field keys shared by every component.
const (
	FieldComponent     = "component"
	FieldItemID        = "item_id"
	FieldStage         = "stage"
	FieldWorkerID      = "worker_id"
	FieldCorrelationID = "correlation_id"
	FieldChannel       = "channel"

	// FieldEventType classifies a line for filtering, e.g. "claim_conflict".
	FieldEventType = "event_type"
	// FieldErrorHint is the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is what the failure means for the pipeline.
	FieldImpact = "impact"
)

// ContextFields returns the item, stage, worker and correlation ids carried
// by ctx, in that order.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var fields []Attr
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, Int64(FieldItemID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, String(FieldStage, stage))
	}
	if worker, ok := services.WorkerFromContext(ctx); ok {
		fields = append(fields, String(FieldWorkerID, worker))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext adds ContextFields(ctx) to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
