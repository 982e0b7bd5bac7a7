package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPipelineAddListShowTransition(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"pipeline", "add", "--topic", "header bidding", "--pillar", "adtech"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline add: %v", err)
	}
	requireContains(t, out, "Added item 1 to backlog")

	out, _, err = runCLI(t, []string{"pipeline", "list", "--status", "backlog"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline list: %v", err)
	}
	requireContains(t, out, "header bidding")
	requireContains(t, out, "backlog")

	out, _, err = runCLI(t, []string{"pipeline", "list", "--status", "todo"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline list todo: %v", err)
	}
	requireContains(t, out, "No items")

	_, _, err = runCLI(t, []string{"pipeline", "transition", "1", "backlog", "published"}, env.configPath)
	if err == nil {
		t.Fatal("expected invalid transition to fail")
	}
	requireContains(t, err.Error(), "may move to: todo")

	out, _, err = runCLI(t, []string{"pipeline", "transition", "1", "backlog", "todo"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline transition: %v", err)
	}
	requireContains(t, out, "Item 1: backlog -> todo")

	_, _, err = runCLI(t, []string{"pipeline", "transition", "1", "backlog", "todo"}, env.configPath)
	if err == nil {
		t.Fatal("expected stale transition to fail")
	}
	requireContains(t, err.Error(), "no longer in backlog")

	out, _, err = runCLI(t, []string{"--json", "pipeline", "show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline show: %v", err)
	}
	var detail struct {
		Item struct {
			ID           int64  `json:"id"`
			Status       string `json:"status"`
			TopicKeyword string `json:"topic_keyword"`
			PillarTheme  string `json:"pillar_theme"`
		} `json:"item"`
	}
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	if detail.Item.ID != 1 || detail.Item.Status != "todo" || detail.Item.TopicKeyword != "header bidding" {
		t.Fatalf("unexpected item %+v", detail.Item)
	}
	if detail.Item.PillarTheme != "Adtech fundamentals and market dynamics" {
		t.Fatalf("unexpected pillar %q", detail.Item.PillarTheme)
	}

	out, _, err = runCLI(t, []string{"pipeline", "audit", "--action", "pipeline.manual_transition"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline audit: %v", err)
	}
	requireContains(t, out, "pipeline.manual_transition")
	requireContains(t, out, "from=backlog to=todo")
	if strings.Count(out, "pipeline.manual_transition") != 1 {
		t.Fatalf("expected exactly one audited transition:\n%s", out)
	}
}

func TestPipelineShowMissingItem(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"pipeline", "show", "42"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing item")
	}
	requireContains(t, err.Error(), "item 42 not found")
}

func TestPipelineRejectsBadArguments(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"pipeline", "list", "--status", "drafted"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if _, _, err := runCLI(t, []string{"pipeline", "show", "abc"}, env.configPath); err == nil {
		t.Fatal("expected bad id to fail")
	}
	if _, _, err := runCLI(t, []string{"pipeline", "add", "--topic", "  ", "--pillar", "adtech"}, env.configPath); err == nil {
		t.Fatal("expected blank topic to fail")
	}
}

func TestPipelineOverviewAndHealth(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"pipeline", "add", "--topic", "ctv", "--pillar", "adtech"}, env.configPath); err != nil {
		t.Fatalf("pipeline add: %v", err)
	}

	out, _, err := runCLI(t, []string{"--json", "pipeline", "overview"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline overview: %v", err)
	}
	var overview struct {
		Counts map[string]int `json:"counts"`
		Total  int            `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &overview); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if overview.Total != 1 || overview.Counts["backlog"] != 1 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	out, _, err = runCLI(t, []string{"pipeline", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline health: %v", err)
	}
	requireContains(t, out, "[OK] healthy")
}
