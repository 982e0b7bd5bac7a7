// Package mode implements the pipeline mode gate: the persisted switch that
// decides whether the legacy workflow, the agent pipeline, or both run, plus
// the kill switch that stops every agent.
//
// Agents never read the mode themselves; callers resolve Settings once and
// pass them into each run.
package mode
