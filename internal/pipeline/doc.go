// Package pipeline assembles the runtime shared by the CLI and the daemon.
//
// A Runtime owns the store, the five stage agents, Morgan, the research
// ingester, and the delivery clients. Operator actions go through it: manual
// triggers run an agent under the persisted pipeline settings, manual
// transitions follow the same graph as the agents and are audited under the
// "cli" actor, and Jobs exposes the scheduled work for the daemon.
package pipeline
