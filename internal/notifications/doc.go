// Package notifications delivers operator reminders and alerts via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml. Every delivery attempt is written to notification_logs so the
// publish and engagement reminders leave a trail even when the topic is unset.
// Callers depend only on the Service interface and never see delivery errors
// as pipeline failures.
package notifications
