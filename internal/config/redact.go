package config

import "github.com/pelletier/go-toml/v2"

const redacted = "********"

// Redacted returns a copy of c with credentials masked.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&c.Webhook.Secret)
	mask(&c.Generation.APIKey)
	return c
}

// EncodeTOML renders the effective configuration with credentials masked.
func (c *Config) EncodeTOML() ([]byte, error) {
	return toml.Marshal(c.Redacted())
}
