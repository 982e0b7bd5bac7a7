// Package generation drafts post content for the Writer agent.
//
// Client speaks to an OpenAI-compatible chat completion endpoint in JSON mode
// with bounded retries on 408, 429 and 5xx responses. PostGenerator builds the
// prompt from a work item's pillar, topic and research notes and validates the
// reply into a Draft. The Generator interface is what agents depend on.
package generation
