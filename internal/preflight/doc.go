// Package preflight provides readiness checks for the directories, database,
// and external services autoposter depends on.
//
// The CLI "autoposter doctor" command runs RunAll and prints one line per
// check. Checks for optional services (webhook, ntfy, generation) are skipped
// when the service is not configured, since agents degrade rather than fail
// without them.
package preflight
