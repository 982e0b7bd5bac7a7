package preflight

import (
	"context"
	"strings"

	"autoposter/internal/config"
	"autoposter/internal/queue"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// DatabaseChecker reports diagnostics for the pipeline database.
type DatabaseChecker interface {
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// RunAll executes all applicable preflight checks for the given config.
// db may be nil when the database could not be opened.
func RunAll(ctx context.Context, cfg *config.Config, db DatabaseChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDatabase(ctx, db),
		CheckPillars(cfg.Paths.PillarsFile),
		CheckPostingWindow(cfg),
	}

	if strings.TrimSpace(cfg.Generation.BaseURL) != "" {
		results = append(results, CheckEndpoint(ctx, "Generation service", cfg.Generation.BaseURL))
	} else {
		results = append(results, Result{Name: "Generation service", Detail: "not configured (writer cannot draft)"})
	}
	if strings.TrimSpace(cfg.Webhook.URL) != "" {
		results = append(results, CheckEndpoint(ctx, "Publish webhook", cfg.Webhook.URL))
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckEndpoint(ctx, "ntfy", cfg.Notifications.NtfyTopic))
	}
	return results
}
