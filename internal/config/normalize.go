package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePublishing()
	c.normalizeWebhook()
	c.normalizeGeneration()
	c.normalizeResearch()
	if err := c.normalizeTracing(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PillarsFile) != "" {
		if c.Paths.PillarsFile, err = expandPath(c.Paths.PillarsFile); err != nil {
			return fmt.Errorf("paths.pillars_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePublishing() {
	c.Publishing.Timezone = strings.TrimSpace(c.Publishing.Timezone)
	if c.Publishing.Timezone == "" {
		c.Publishing.Timezone = defaultTimezone
	}
	c.Publishing.WindowStart = strings.TrimSpace(c.Publishing.WindowStart)
	if c.Publishing.WindowStart == "" {
		c.Publishing.WindowStart = defaultWindowStart
	}
	c.Publishing.WindowEnd = strings.TrimSpace(c.Publishing.WindowEnd)
	if c.Publishing.WindowEnd == "" {
		c.Publishing.WindowEnd = defaultWindowEnd
	}
}

func (c *Config) normalizeWebhook() {
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)
	if c.Webhook.URL == "" {
		if value, ok := os.LookupEnv("AUTOPOSTER_WEBHOOK_URL"); ok {
			c.Webhook.URL = strings.TrimSpace(value)
		}
	}
	if c.Webhook.Secret == "" {
		if value, ok := os.LookupEnv("AUTOPOSTER_WEBHOOK_SECRET"); ok {
			c.Webhook.Secret = value
		}
	}
	if c.Webhook.TimeoutSeconds <= 0 {
		c.Webhook.TimeoutSeconds = defaultWebhookTimeoutSeconds
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Generation.BaseURL), "/")
	c.Generation.Model = strings.TrimSpace(c.Generation.Model)
	c.Generation.APIKey = strings.TrimSpace(c.Generation.APIKey)
	if c.Generation.APIKey == "" {
		if value, ok := os.LookupEnv("AUTOPOSTER_GENERATION_API_KEY"); ok {
			c.Generation.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Generation.TimeoutSeconds <= 0 {
		c.Generation.TimeoutSeconds = defaultGenerationTimeout
	}
}

func (c *Config) normalizeResearch() {
	if c.Research.MaxItemsPerSource <= 0 {
		c.Research.MaxItemsPerSource = defaultResearchMaxItems
	}
	if c.Research.RequestTimeout <= 0 {
		c.Research.RequestTimeout = defaultResearchRequestTimeout
	}
	sources := c.Research.Sources[:0]
	for _, src := range c.Research.Sources {
		src.Name = strings.TrimSpace(src.Name)
		src.URL = strings.TrimSpace(src.URL)
		if src.URL == "" {
			continue
		}
		if src.Name == "" {
			src.Name = src.URL
		}
		if strings.TrimSpace(src.ItemSelector) == "" {
			src.ItemSelector = "article"
		}
		if strings.TrimSpace(src.TitleSelector) == "" {
			src.TitleSelector = "h2, h3"
		}
		if strings.TrimSpace(src.LinkSelector) == "" {
			src.LinkSelector = "a[href]"
		}
		if strings.TrimSpace(src.SummarySelector) == "" {
			src.SummarySelector = "p"
		}
		sources = append(sources, src)
	}
	c.Research.Sources = sources
}

func (c *Config) normalizeTracing() error {
	var err error
	if strings.TrimSpace(c.Tracing.OutputFile) != "" {
		if c.Tracing.OutputFile, err = expandPath(c.Tracing.OutputFile); err != nil {
			return fmt.Errorf("tracing.output_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
