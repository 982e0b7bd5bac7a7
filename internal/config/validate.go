package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validatePublishing(); err != nil {
		return err
	}
	if err := c.validateWebhook(); err != nil {
		return err
	}
	if err := c.validateResearch(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.max_revisions":        c.Pipeline.MaxRevisions,
		"pipeline.claim_ttl_minutes":    c.Pipeline.ClaimTTLMinutes,
		"pipeline.backlog_floor":        c.Pipeline.BacklogFloor,
		"pipeline.source_lookback_days": c.Pipeline.SourceLookbackDays,
		"pipeline.scout_max_items":      c.Pipeline.ScoutMaxItems,
		"pipeline.writer_max_items":     c.Pipeline.WriterMaxItems,
		"pipeline.editor_max_items":     c.Pipeline.EditorMaxItems,
		"pipeline.publisher_max_items":  c.Pipeline.PublisherMaxItems,
		"pipeline.promoter_max_items":   c.Pipeline.PromoterMaxItems,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateMonitor() error {
	if err := ensurePositiveMap(map[string]int{
		"monitor.stale_claim_minutes":       c.Monitor.StaleClaimMinutes,
		"monitor.error_stale_minutes":       c.Monitor.ErrorStaleMinutes,
		"monitor.stuck_hours":               c.Monitor.StuckHours,
		"monitor.unhealthy_error_threshold": c.Monitor.UnhealthyErrorThreshold,
	}); err != nil {
		return err
	}
	if c.Monitor.MaxAutoResets < 0 {
		return errors.New("monitor.max_auto_resets must be >= 0")
	}
	return nil
}

func (c *Config) validatePublishing() error {
	if _, err := time.LoadLocation(c.Publishing.Timezone); err != nil {
		return fmt.Errorf("publishing.timezone: unknown zone %q", c.Publishing.Timezone)
	}
	start, err := ParseClock(c.Publishing.WindowStart)
	if err != nil {
		return fmt.Errorf("publishing.window_start: %w", err)
	}
	end, err := ParseClock(c.Publishing.WindowEnd)
	if err != nil {
		return fmt.Errorf("publishing.window_end: %w", err)
	}
	if end < start {
		return errors.New("publishing.window_end must not be before publishing.window_start")
	}
	return nil
}

func (c *Config) validateWebhook() error {
	if c.Webhook.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Webhook.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("webhook.url must be an absolute http(s) URL, got %q", c.Webhook.URL)
	}
	return nil
}

func (c *Config) validateResearch() error {
	for i, src := range c.Research.Sources {
		parsed, err := url.Parse(src.URL)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("research.sources[%d].url is not a valid URL: %q", i, src.URL)
		}
	}
	return nil
}

func (c *Config) validateSchedule() error {
	jobs := map[string]Job{
		"schedule.scout":     c.Schedule.Scout,
		"schedule.writer":    c.Schedule.Writer,
		"schedule.editor":    c.Schedule.Editor,
		"schedule.publisher": c.Schedule.Publisher,
		"schedule.promoter":  c.Schedule.Promoter,
		"schedule.morgan":    c.Schedule.Morgan,
		"schedule.research":  c.Schedule.Research,
	}
	for key, job := range jobs {
		if job.IntervalMinutes <= 0 {
			return fmt.Errorf("%s.interval_minutes must be positive", key)
		}
		if job.OffsetMinutes < 0 || job.OffsetMinutes >= job.IntervalMinutes {
			return fmt.Errorf("%s.offset_minutes must be in [0, interval_minutes)", key)
		}
	}
	return nil
}

// ParseClock parses an "HH:MM" value into minutes after midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value out of range: %q", value)
	}
	return hour*60 + minute, nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
