// Package daemon coordinates the long-running autoposter process.
//
// It wraps the job scheduler in a single lifecycle guarded by a flock-based
// lock file in the state directory, so two daemons never drive the same
// database. Agents run by hand from the CLI do not take the lock; they rely
// on the claim lock like any other worker.
package daemon
