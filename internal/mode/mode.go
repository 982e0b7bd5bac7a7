package mode

import (
	"fmt"
	"strings"
)

// Mode selects which pipeline generation is allowed to run.
type Mode string

const (
	Legacy   Mode = "legacy"
	Shadow   Mode = "shadow"
	V6       Mode = "v6"
	Disabled Mode = "disabled"
)

// Default is the mode assumed when nothing has been persisted.
const Default = Legacy

var allModes = []Mode{Legacy, Shadow, V6, Disabled}

var descriptions = map[Mode]string{
	Legacy:   "Only the legacy workflow runs. Agent pipeline tasks are skipped.",
	Shadow:   "Legacy and agent pipelines both run. Agents process content but do not publish externally.",
	V6:       "Only the agent pipeline runs. Legacy draft generation and publishing are skipped.",
	Disabled: "All pipeline and content tasks are stopped.",
}

// All returns the closed set of modes in display order.
func All() []Mode {
	return append([]Mode(nil), allModes...)
}

// Parse converts a string into a known Mode.
func Parse(value string) (Mode, error) {
	candidate := Mode(strings.ToLower(strings.TrimSpace(value)))
	for _, m := range allModes {
		if m == candidate {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown pipeline mode %q (want legacy, shadow, v6, or disabled)", value)
}

// Description returns the operator-facing explanation of the mode.
func (m Mode) Description() string {
	return descriptions[m]
}

// Settings is the operational state passed into every agent run.
type Settings struct {
	Mode           Mode
	KillSwitch     bool
	PostingEnabled bool
}

// ShouldRunLegacy reports whether legacy workflow tasks may execute.
func (s Settings) ShouldRunLegacy() bool {
	return s.Mode == Legacy || s.Mode == Shadow
}

// ShouldRunV6 reports whether pipeline agents may execute.
func (s Settings) ShouldRunV6() bool {
	return s.Mode == V6 || s.Mode == Shadow
}

// IsShadow reports whether agents run without external publishing side effects.
func (s Settings) IsShadow() bool {
	return s.Mode == Shadow
}

// Disabled reports whether the kill switch is engaged.
func (s Settings) Disabled() bool {
	return s.KillSwitch
}
