// Package services defines shared utilities consumed by the pipeline agents
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp work item IDs, agent stages, worker IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so stage failures carry a
//     consistent classification through to revision bookkeeping.
package services
