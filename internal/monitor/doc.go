// Package monitor contains Morgan, the pipeline's self-healing pass.
//
// Each pass force-releases claims older than the stale claim age, moves
// long-errored items back to an earlier status, and grades pipeline health
// from stale, errored, and stuck counts. Recoveries and resets are audited
// under the "morgan" actor. Morgan's reset ceiling is max_revisions plus
// max_auto_resets, which sits above the Editor's own ceiling.
package monitor
