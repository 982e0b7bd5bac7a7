package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	PillarsFile string `toml:"pillars_file"`
}

// Pipeline contains work item and agent batch settings.
type Pipeline struct {
	MaxRevisions       int `toml:"max_revisions"`
	ClaimTTLMinutes    int `toml:"claim_ttl_minutes"`
	BacklogFloor       int `toml:"backlog_floor"`
	SourceLookbackDays int `toml:"source_lookback_days"`
	ScoutMaxItems      int `toml:"scout_max_items"`
	WriterMaxItems     int `toml:"writer_max_items"`
	EditorMaxItems     int `toml:"editor_max_items"`
	PublisherMaxItems  int `toml:"publisher_max_items"`
	PromoterMaxItems   int `toml:"promoter_max_items"`
}

// Monitor contains thresholds for the self-healing sweep.
type Monitor struct {
	StaleClaimMinutes       int `toml:"stale_claim_minutes"`
	ErrorStaleMinutes       int `toml:"error_stale_minutes"`
	MaxAutoResets           int `toml:"max_auto_resets"`
	StuckHours              int `toml:"stuck_hours"`
	UnhealthyErrorThreshold int `toml:"unhealthy_error_threshold"`
}

// Publishing contains the posting window used to schedule published posts.
type Publishing struct {
	Timezone    string `toml:"timezone"`
	WindowStart string `toml:"window_start"`
	WindowEnd   string `toml:"window_end"`
}

// Webhook contains the outbound publish webhook settings.
type Webhook struct {
	URL            string `toml:"url"`
	Secret         string `toml:"secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Generation contains the content generation service connection settings.
type Generation struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ResearchSource describes one listing page scraped for source material.
type ResearchSource struct {
	Name            string `toml:"name"`
	URL             string `toml:"url"`
	ItemSelector    string `toml:"item_selector"`
	TitleSelector   string `toml:"title_selector"`
	LinkSelector    string `toml:"link_selector"`
	SummarySelector string `toml:"summary_selector"`
}

// Research contains source ingestion settings.
type Research struct {
	MaxItemsPerSource int              `toml:"max_items_per_source"`
	RequestTimeout    int              `toml:"request_timeout"`
	Sources           []ResearchSource `toml:"sources"`
}

// Job is the cadence of one scheduled job. The job runs whenever the wall
// clock minute-of-period equals OffsetMinutes.
type Job struct {
	IntervalMinutes int `toml:"interval_minutes"`
	OffsetMinutes   int `toml:"offset_minutes"`
}

// Schedule contains per-job cadences for the daemon scheduler.
type Schedule struct {
	Scout     Job `toml:"scout"`
	Writer    Job `toml:"writer"`
	Editor    Job `toml:"editor"`
	Publisher Job `toml:"publisher"`
	Promoter  Job `toml:"promoter"`
	Morgan    Job `toml:"morgan"`
	Research  Job `toml:"research"`
}

// Tracing controls the OpenTelemetry stdout exporter.
type Tracing struct {
	Enabled    bool   `toml:"enabled"`
	OutputFile string `toml:"output_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for autoposter.
//
// Configuration sections by subsystem:
//   - Paths: state directory (database, lock), log directory, pillar catalogue
//   - Pipeline: revision ceiling, claim TTL, scout floor, agent batch sizes
//   - Monitor: Morgan thresholds
//   - Publishing: posting window for scheduled posts
//   - Webhook: publish webhook endpoint and signing secret
//   - Notifications: ntfy reminders
//   - Generation: content generation service
//   - Research: scraped source listings
//   - Schedule: daemon job cadences
//   - Tracing: OpenTelemetry span export
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Monitor       Monitor       `toml:"monitor"`
	Publishing    Publishing    `toml:"publishing"`
	Webhook       Webhook       `toml:"webhook"`
	Notifications Notifications `toml:"notifications"`
	Generation    Generation    `toml:"generation"`
	Research      Research      `toml:"research"`
	Schedule      Schedule      `toml:"schedule"`
	Tracing       Tracing       `toml:"tracing"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath is ~/.config/autoposter/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or searches $AUTOPOSTER_CONFIG, the
// default path and ./autoposter.toml when path is empty. A missing file is
// not an error: defaults apply and exists is false. Unknown keys are
// rejected so typos surface instead of silently falling back to defaults.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	resolved, exists, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}
	loaded := Default()
	if exists {
		if err := decodeFile(resolved, &loaded); err != nil {
			return nil, "", false, err
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

func decodeFile(path string, into *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	err = dec.Decode(into)

	var strict *toml.StrictMissingError
	var syntax *toml.DecodeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &strict):
		return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
	case errors.As(err, &syntax):
		row, col := syntax.Position()
		return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
	default:
		return fmt.Errorf("parse config %s: %w", path, err)
	}
}

// locate returns the config file to read. An explicit path is used as is
// even when it does not exist yet.
func locate(explicit string) (string, bool, error) {
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv("AUTOPOSTER_CONFIG"))
	}
	if explicit != "" {
		path, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(path)
		return path, found, err
	}

	fallback, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("autoposter.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{fallback, local} {
		found, err := isFile(candidate)
		if err != nil {
			return "", false, err
		}
		if found {
			return candidate, true, nil
		}
	}
	return fallback, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "pipeline.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "autoposter.lock")
}

// LogPath returns the main log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "autoposter.log")
}

// ClaimTTL returns the advisory claim lifetime.
func (c *Config) ClaimTTL() time.Duration {
	return time.Duration(c.Pipeline.ClaimTTLMinutes) * time.Minute
}

// PostingLocation resolves the publishing timezone.
func (c *Config) PostingLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Publishing.Timezone)
	if err != nil {
		return nil, fmt.Errorf("publishing.timezone: %w", err)
	}
	return loc, nil
}

// expandPath resolves a leading ~ and returns an absolute, cleaned path.
// The empty string passes through unchanged.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, p[1:])
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return abs, nil
}

// ExpandPath applies the same ~ and relative path rules as the config loader.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
