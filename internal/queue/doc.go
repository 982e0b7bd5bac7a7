// Package queue persists pipeline work items in SQLite and owns the two
// coordination primitives every agent relies on: the claim lock and the
// validated status transition.
//
// Claims and transitions are single guarded UPDATE statements, so concurrent
// agents in separate processes can share one database file without a lock
// manager. The Store also keeps the supporting records (drafts, research
// sources, published posts, audit and notification logs, and the single-row
// operational settings).
//
// Schema changes bump the version in schema.go.
package queue
