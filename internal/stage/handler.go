package stage

import (
	"context"

	"autoposter/internal/mode"
)

// Skip reasons reported in Outcome.Reason.
const (
	ReasonDisabled     = "disabled"
	ReasonPipelineMode = "skipped:pipeline_mode"
)

// Agent describes the contract the scheduler and operator surface need from
// each stage agent. Pipeline settings are passed per run so the gate is read
// once by the caller.
type Agent interface {
	Name() string
	Run(context.Context, mode.Settings) (Outcome, error)
	HealthCheck(context.Context) Health
}

// Outcome summarises one agent run.
type Outcome struct {
	Agent     string `json:"agent"`
	Processed int    `json:"processed"`
	Attempted int    `json:"attempted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Reason    string `json:"reason,omitempty"`
}

// Gate returns the skip outcome for settings, or false when the agent may run.
func Gate(agent string, settings mode.Settings) (Outcome, bool) {
	switch {
	case settings.Disabled():
		return Outcome{Agent: agent, Reason: ReasonDisabled}, true
	case !settings.ShouldRunV6():
		return Outcome{Agent: agent, Reason: ReasonPipelineMode}, true
	default:
		return Outcome{}, false
	}
}
