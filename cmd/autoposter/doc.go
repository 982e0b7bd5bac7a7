// Package main hosts the autoposter CLI entrypoint and command graph.
//
// Every command opens the pipeline database directly through
// pipeline.Runtime; there is no daemon socket. Agents triggered here take the
// same claim lock as the daemon's scheduled runs, so a manual run and a
// scheduled one never process the same item. The daemon command runs the
// scheduler in the foreground until SIGINT or SIGTERM.
//
// Keep this package lean: behaviour lives in the internal packages, and
// commands only parse arguments and render results.
package main
