// Package logging builds the slog loggers used by the daemon and CLI.
//
// Two formats are supported: a console line ("ts LEVEL component: msg k=v")
// and JSON with ts/level/msg keys. Error records go to the error outputs and
// everything else to the regular outputs. WithContext copies item, stage,
// worker and correlation IDs from a context onto a logger.
package logging
