// Package config loads and validates the autoposter TOML configuration.
//
// Load looks for an explicit path, then $AUTOPOSTER_CONFIG, then
// ~/.config/autoposter/config.toml, then ./autoposter.toml. Missing files
// fall back to Default(); unknown keys are errors. Credentials may come from
// AUTOPOSTER_WEBHOOK_URL, AUTOPOSTER_WEBHOOK_SECRET and
// AUTOPOSTER_GENERATION_API_KEY when the file leaves them empty.
package config
