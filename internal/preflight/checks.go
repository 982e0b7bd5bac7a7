package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"autoposter/internal/config"
	"autoposter/internal/pillars"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase reports whether the pipeline database is readable, has every
// expected column, and passes SQLite's integrity check.
func CheckDatabase(ctx context.Context, db DatabaseChecker) Result {
	const name = "Pipeline database"
	if db == nil {
		return Result{Name: name, Detail: "unavailable"}
	}
	health, err := db.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	switch {
	case !health.DatabaseReadable:
		return Result{Name: name, Detail: fmt.Sprintf("%s (not readable)", health.DBPath)}
	case len(health.MissingColumns) > 0:
		return Result{Name: name, Detail: fmt.Sprintf("missing columns: %s", strings.Join(health.MissingColumns, ", "))}
	case !health.IntegrityCheck:
		return Result{Name: name, Detail: "integrity check failed"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema v%d, %d items)", health.DBPath, health.SchemaVersion, health.TotalItems)}
}

// CheckPillars loads the pillar catalogue.
func CheckPillars(path string) Result {
	const name = "Pillar catalogue"
	cat, err := pillars.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	source := path
	if strings.TrimSpace(source) == "" {
		source = "built-in"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d pillars)", source, len(cat.Themes))}
}

// CheckPostingWindow validates the publishing timezone and window bounds.
func CheckPostingWindow(cfg *config.Config) Result {
	const name = "Posting window"
	loc, err := cfg.PostingLocation()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	start, err := config.ParseClock(cfg.Publishing.WindowStart)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("window_start: %v", err)}
	}
	end, err := config.ParseClock(cfg.Publishing.WindowEnd)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("window_end: %v", err)}
	}
	if end < start {
		return Result{Name: name, Detail: "window_end is before window_start"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s-%s %s", cfg.Publishing.WindowStart, cfg.Publishing.WindowEnd, loc)}
}

// CheckEndpoint verifies that an HTTP service answers. Any response below 500
// counts as reachable; credentials are not exercised.
func CheckEndpoint(ctx context.Context, name, url string) Result {
	target := strings.TrimSpace(url)
	if target == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, target, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d)", resp.StatusCode)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	return err.Error()
}
