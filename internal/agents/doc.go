// Package agents implements the five pipeline stage agents: Scout seeds the
// backlog from recent source material, Writer drafts todo items, Editor runs
// the quality battery, Publisher schedules posts and fires the publish
// webhook, and Promoter closes published items out.
//
// Every claiming agent shares one loop: select unclaimed items at its input
// status oldest first, claim, verify the claim, process, then transition and
// release. Domain failures are recorded on the item through IncrementRevision
// and a regression transition; claim races and status races are skipped.
// Pipeline mode and the kill switch are checked before any store access.
package agents
