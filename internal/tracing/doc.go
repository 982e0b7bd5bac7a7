// Package tracing wraps OpenTelemetry span export. Agent runs and Morgan passes
// open one span each; with [tracing] enabled the spans are written by the
// stdout exporter to standard output or tracing.output_file.
package tracing
