package services

import "context"

// key is a typed context key; the type parameter keeps values of different
// kinds from colliding even when names match.
type key[T comparable] struct{ name string }

var (
	itemIDKey    = key[int64]{"item_id"}
	stageKey     = key[string]{"stage"}
	workerKey    = key[string]{"worker"}
	requestIDKey = key[string]{"request_id"}
)

// with stores value under k unless it is the zero value.
func with[T comparable](ctx context.Context, k key[T], value T) context.Context {
	var zero T
	if value == zero {
		return ctx
	}
	return context.WithValue(ctx, k, value)
}

func lookup[T comparable](ctx context.Context, k key[T]) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// WithItemID tags ctx with a work item ID.
func WithItemID(ctx context.Context, id int64) context.Context { return with(ctx, itemIDKey, id) }

// ItemIDFromContext returns the work item ID, if any.
func ItemIDFromContext(ctx context.Context) (int64, bool) { return lookup(ctx, itemIDKey) }

// WithStage tags ctx with the running agent or job name.
func WithStage(ctx context.Context, stage string) context.Context {
	return with(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

// WithWorker tags ctx with the claim holder ID.
func WithWorker(ctx context.Context, worker string) context.Context {
	return with(ctx, workerKey, worker)
}

func WorkerFromContext(ctx context.Context) (string, bool) { return lookup(ctx, workerKey) }

// WithRequestID tags ctx with a correlation ID (the daemon session, or a
// single CLI invocation).
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, requestIDKey) }
