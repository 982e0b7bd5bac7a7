package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition marks a (from, to) pair outside the transition graph.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentModification marks an item whose status changed underneath the caller.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrNotFound marks a missing item or record.
	ErrNotFound = errors.New("not found")
)

// TransitionError describes a rejected transition with the observed state.
type TransitionError struct {
	ItemID int64
	From   Status
	To     Status
	Actual Status
	Err    error
}

func (e *TransitionError) Error() string {
	switch {
	case errors.Is(e.Err, ErrConcurrentModification):
		return fmt.Sprintf("item %d: expected status %s for transition to %s, found %s: %v", e.ItemID, e.From, e.To, e.Actual, e.Err)
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("item %d: %v", e.ItemID, e.Err)
	default:
		return fmt.Sprintf("item %d: %s -> %s: %v", e.ItemID, e.From, e.To, e.Err)
	}
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
