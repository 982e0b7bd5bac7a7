package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"autoposter/internal/config"
	"autoposter/internal/stage"
)

func TestAgentRunHonoursMode(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"agent", "run", "editor"}, env.configPath)
	if err != nil {
		t.Fatalf("agent run: %v", err)
	}
	requireContains(t, out, "editor: skipped (skipped:pipeline_mode)")

	if _, _, err := runCLI(t, []string{"mode", "set", "v6"}, env.configPath); err != nil {
		t.Fatalf("mode set: %v", err)
	}
	out, _, err = runCLI(t, []string{"--json", "agent", "run", "editor", "--max", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("agent run: %v", err)
	}
	var outcome stage.Outcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Agent != "editor" || outcome.Reason != "" || outcome.Attempted != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestAgentRunRejectsUnknownAgent(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"agent", "run", "janitor"}, env.configPath); err == nil {
		t.Fatal("expected unknown agent to fail")
	}
	_, _, err := runCLI(t, []string{"agent", "run", "janitor", "--max", "2"}, env.configPath)
	if err == nil {
		t.Fatal("expected unknown agent with --max to fail")
	}
	requireContains(t, err.Error(), "unknown agent")
}

func TestOverrideMaxItems(t *testing.T) {
	cfg := config.Default()
	if !overrideMaxItems(&cfg, "writer", 7) || cfg.Pipeline.WriterMaxItems != 7 {
		t.Fatalf("writer override not applied: %+v", cfg.Pipeline)
	}
	if !overrideMaxItems(&cfg, "scout", 2) || cfg.Pipeline.ScoutMaxItems != 2 {
		t.Fatalf("scout override not applied: %+v", cfg.Pipeline)
	}
	if overrideMaxItems(&cfg, "morgan", 1) {
		t.Fatal("morgan has no item limit")
	}
}

func TestFormatOutcome(t *testing.T) {
	got := formatOutcome(stage.Outcome{Agent: "writer", Processed: 2, Attempted: 3, Failed: 1})
	if got != "writer: processed 2 of 3 attempted, 0 skipped, 1 failed" {
		t.Fatalf("unexpected %q", got)
	}
	got = formatOutcome(stage.Outcome{Agent: "writer", Reason: stage.ReasonDisabled})
	if got != "writer: skipped (disabled)" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestMorganRunGatedThenSummarises(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"morgan", "run"}, env.configPath)
	if err != nil {
		t.Fatalf("morgan run: %v", err)
	}
	requireContains(t, out, "morgan: skipped (skipped:pipeline_mode)")

	if _, _, err := runCLI(t, []string{"mode", "set", "shadow"}, env.configPath); err != nil {
		t.Fatalf("mode set: %v", err)
	}
	out, _, err = runCLI(t, []string{"morgan", "run"}, env.configPath)
	if err != nil {
		t.Fatalf("morgan run: %v", err)
	}
	requireContains(t, out, "Stale claims recovered: 0")
	requireContains(t, out, "[OK] healthy")
}

func TestWebhookTestCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, _, err := runCLI(t, []string{"webhook", "test", "--url", srv.URL}, env.configPath)
	if err != nil {
		t.Fatalf("webhook test: %v", err)
	}
	requireContains(t, out, "[OK] HTTP 200")
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}

	out, _, err = runCLI(t, []string{"webhook", "test"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure without a webhook URL")
	}
	requireContains(t, out, "no webhook URL configured")
}

func TestNotifyTestRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure without an ntfy topic")
	}
	requireContains(t, err.Error(), "ntfy topic not configured")
}
