package main

import (
	"os"
	"strings"
	"testing"
)

func TestLogsCommandPrintsTailAndFiltersByItem(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := strings.Join([]string{
		"2026-03-02 10:00:00 INFO writer: drafted item_id=7",
		"2026-03-02 10:01:00 INFO editor: reviewed item_id=8",
		"2026-03-02 10:02:00 WARN editor: failed gates item_id=7",
		"2026-03-02 10:03:00 INFO morgan: healthy",
	}, "\n") + "\n"
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(out, "\n") != 2 || !strings.Contains(out, "failed gates") || !strings.Contains(out, "healthy") {
		t.Fatalf("unexpected tail:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--item", "7", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --item: %v", err)
	}
	if strings.TrimSpace(out) != "2026-03-02 10:02:00 WARN editor: failed gates item_id=7" {
		t.Fatalf("unexpected filtered output %q", out)
	}
}
