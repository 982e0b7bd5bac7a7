// Package workflow runs the pipeline's periodic jobs inside the daemon.
//
// A Scheduler holds a fixed list of Jobs, each with an interval and an offset
// in minutes. Once per wall-clock minute it runs every job whose offset matches
// the current minute of its period, one after another on a single goroutine.
// Agents never fan out: a slow writer run delays the editor rather than racing
// it. Job failures are logged and kept in the status summary; they never stop
// the loop.
//
// Jobs do not gate themselves on the pipeline mode. The runtime builds jobs
// that read the persisted settings on every run, so the scheduler stays
// unaware of modes and kill switches.
package workflow
