package services

import (
	"errors"
	"strings"
)

// Markers classify failures. Match them with errors.Is.
var (
	ErrStageFailure    = errors.New("stage failure")
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTransient       = errors.New("transient failure")
)

// Error is a classified failure raised by an agent or one of its collaborators.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	b.WriteString(e.detail())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the marker and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

func (e *Error) detail() string {
	var parts []string
	for _, p := range []string{e.Stage, e.Operation, e.Message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Wrap returns an *Error tagged with marker, or ErrTransient when marker is nil.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{Marker: marker, Stage: stage, Operation: operation, Message: message, Err: err}
}

// Retryable reports whether a later run could succeed where this one failed.
// Validation, configuration and missing-record failures repeat identically.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, permanent := range []error{ErrValidation, ErrConfiguration, ErrNotFound} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}

// Summary returns the error text cut to at most limit runes, for last_error
// columns and notification bodies. A non-positive limit disables the cut.
func Summary(err error, limit int) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if limit <= 0 {
		return msg
	}
	if runes := []rune(msg); len(runes) > limit {
		return string(runes[:limit])
	}
	return msg
}
