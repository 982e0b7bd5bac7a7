package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"autoposter/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("AUTOPOSTER_WEBHOOK_URL", "")
	t.Setenv("AUTOPOSTER_CONFIG", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "autoposter")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "pipeline.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Pipeline.MaxRevisions != 3 {
		t.Fatalf("expected default max revisions 3, got %d", cfg.Pipeline.MaxRevisions)
	}
	if cfg.Monitor.MaxAutoResets != 2 {
		t.Fatalf("expected default max auto resets 2, got %d", cfg.Monitor.MaxAutoResets)
	}
	if cfg.ClaimTTL().Minutes() != 30 {
		t.Fatalf("expected 30 minute claim ttl, got %s", cfg.ClaimTTL())
	}
	if cfg.Schedule.Scout.IntervalMinutes != 360 || cfg.Schedule.Scout.OffsetMinutes != 15 {
		t.Fatalf("unexpected scout cadence: %+v", cfg.Schedule.Scout)
	}
}

func TestLoadReadsFileAndEnvFallbacks(t *testing.T) {
	t.Setenv("AUTOPOSTER_WEBHOOK_SECRET", "from-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "autoposter.toml")
	content := `
[paths]
state_dir = "` + filepath.ToSlash(filepath.Join(dir, "state")) + `"
log_dir = "` + filepath.ToSlash(filepath.Join(dir, "logs")) + `"

[pipeline]
max_revisions = 5

[webhook]
url = "https://hooks.example.com/publish"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Pipeline.MaxRevisions != 5 {
		t.Fatalf("expected max revisions from file, got %d", cfg.Pipeline.MaxRevisions)
	}
	if cfg.Webhook.Secret != "from-env" {
		t.Fatalf("expected webhook secret from env, got %q", cfg.Webhook.Secret)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json log format, got %q", cfg.Logging.Format)
	}
	if cfg.Pipeline.WriterMaxItems != 3 {
		t.Fatalf("expected default writer batch to survive partial file, got %d", cfg.Pipeline.WriterMaxItems)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"max revisions", func(c *config.Config) { c.Pipeline.MaxRevisions = 0 }, "pipeline.max_revisions"},
		{"negative auto resets", func(c *config.Config) { c.Monitor.MaxAutoResets = -1 }, "monitor.max_auto_resets"},
		{"bad clock", func(c *config.Config) { c.Publishing.WindowStart = "8am" }, "publishing.window_start"},
		{"inverted window", func(c *config.Config) { c.Publishing.WindowStart = "11:00" }, "publishing.window_end"},
		{"unknown zone", func(c *config.Config) { c.Publishing.Timezone = "Mars/Olympus" }, "publishing.timezone"},
		{"webhook scheme", func(c *config.Config) { c.Webhook.URL = "ftp://example.com" }, "webhook.url"},
		{"offset beyond interval", func(c *config.Config) { c.Schedule.Morgan.OffsetMinutes = 15 }, "schedule.morgan"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := config.ParseClock("09:30")
	if err != nil {
		t.Fatalf("ParseClock returned error: %v", err)
	}
	if minutes != 570 {
		t.Fatalf("expected 570 minutes, got %d", minutes)
	}
	if _, err := config.ParseClock("24:00"); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Schedule.Promoter.OffsetMinutes != 10 {
		t.Fatalf("expected promoter offset 10 in sample, got %d", decoded.Schedule.Promoter.OffsetMinutes)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEncodeTOMLMasksCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Webhook.Secret = "s3cret"
	cfg.Generation.APIKey = "sk-live"

	data, err := cfg.EncodeTOML()
	if err != nil {
		t.Fatalf("EncodeTOML failed: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "s3cret") || strings.Contains(out, "sk-live") {
		t.Fatalf("credentials leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "********") {
		t.Fatalf("expected masked values in output:\n%s", out)
	}
	if cfg.Webhook.Secret != "s3cret" {
		t.Fatal("Redacted must not modify the receiver")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[pipeline]\nmax_revison = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if !strings.Contains(err.Error(), "max_revison") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestLoadUsesEnvironmentPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "elsewhere.toml")
	if err := os.WriteFile(path, []byte("[pipeline]\nmax_revisions = 6\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AUTOPOSTER_CONFIG", path)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path || cfg.Pipeline.MaxRevisions != 6 {
		t.Fatalf("expected config from AUTOPOSTER_CONFIG, got %q exists=%v max=%d", resolved, exists, cfg.Pipeline.MaxRevisions)
	}
}
