// Package webhook delivers pipeline events to an external automation endpoint.
//
// Each event is wrapped in an {event, timestamp, data} envelope, optionally
// signed with HMAC-SHA-256, and posted with up to three attempts. Outcomes are
// logged on the "webhook" channel and written to notification_logs; callers
// only ever see a boolean.
package webhook
