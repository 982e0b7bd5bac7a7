package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type backoff struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

var defaultBackoff = backoff{attempts: 3, base: 2 * time.Second, max: 20 * time.Second}

// delay doubles from base for each failed attempt. A server supplied
// Retry-After wins when present; both are capped at max.
func (b backoff) delay(attempt int, hint time.Duration) time.Duration {
	d := hint
	if d <= 0 {
		d = b.base << (attempt - 1)
	}
	if b.max > 0 && d > b.max {
		d = b.max
	}
	return d
}

// statusError is a non-2xx completion response.
type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func newStatusError(resp *http.Response, body []byte) *statusError {
	e := &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
	if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
		e.retryAfter = time.Duration(secs) * time.Second
	}
	return e
}

func (e *statusError) Error() string {
	return fmt.Sprintf("completion request: http %d: %s", e.code, e.body)
}

// shouldRetry classifies err. Transport failures are retried; cancellations
// and 4xx responses other than 408 and 429 are not.
func shouldRetry(err error) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var se *statusError
	if !errors.As(err, &se) {
		return 0, true
	}
	switch {
	case se.code == http.StatusRequestTimeout, se.code == http.StatusTooManyRequests, se.code >= 500:
		return se.retryAfter, true
	default:
		return 0, false
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
