package testsupport

import (
	"path/filepath"
	"testing"

	"autoposter/internal/config"
)

// ConfigOption adjusts the config built by NewConfig.
type ConfigOption func(*config.Config)

// NewConfig returns the default config rooted in a fresh temp directory, with
// every outbound integration switched off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(root, "state")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Webhook.URL, cfg.Webhook.Secret = "", ""
	cfg.Notifications.NtfyTopic = ""
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithNtfyTopic turns on ntfy reminders against topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) { cfg.Notifications.NtfyTopic = topic }
}

// BaseDir is the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
