package stage

import "fmt"

// Health is an agent's readiness as shown by `agent health` and doctor.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func Healthy(name string) Health { return Health{Name: name, Ready: true} }

// Unhealthy reports name as not ready, with a printf-style detail.
func Unhealthy(name, format string, args ...any) Health {
	return Health{Name: name, Detail: fmt.Sprintf(format, args...)}
}
