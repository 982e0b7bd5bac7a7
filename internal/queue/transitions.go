package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var transitionGraph = map[Status][]Status{
	StatusBacklog:        {StatusTodo},
	StatusTodo:           {StatusWriting, StatusBacklog},
	StatusWriting:        {StatusReview, StatusTodo, StatusBacklog},
	StatusReview:         {StatusReadyToPublish, StatusTodo, StatusBacklog},
	StatusReadyToPublish: {StatusPublished, StatusBacklog},
	StatusPublished:      {StatusAmplified},
	StatusAmplified:      {StatusDone},
	StatusDone:           {},
}

// CanTransition reports whether the graph permits moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitionGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable in one step from the given status.
func AllowedTransitions(from Status) []Status {
	next := transitionGraph[from]
	cp := make([]Status, len(next))
	copy(cp, next)
	return cp
}

// Transition moves an item from one status to another with optimistic
// concurrency: the update only applies while the item is still at from.
func (s *Store) Transition(ctx context.Context, id int64, from, to Status) (*Item, error) {
	if !CanTransition(from, to) {
		return nil, &TransitionError{ItemID: id, From: from, To: to, Err: ErrInvalidTransition}
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE pipeline_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, formatTime(s.now()), id, from,
	)
	if err != nil {
		return nil, fmt.Errorf("transition item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, &TransitionError{ItemID: id, From: from, To: to, Err: ErrNotFound}
		}
		return nil, &TransitionError{ItemID: id, From: from, To: to, Actual: current.Status, Err: ErrConcurrentModification}
	}
	return s.GetByID(ctx, id)
}

// IncrementRevision records a failed attempt: revision_count grows by one and
// last_error carries the reason.
func (s *Store) IncrementRevision(ctx context.Context, id int64, message string) (*Item, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE pipeline_items SET revision_count = revision_count + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		nullableString(strings.TrimSpace(message)), formatTime(s.now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("increment revision %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("increment revision %d: %w", id, ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

// ClearLastError removes the recorded failure message.
func (s *Store) ClearLastError(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE pipeline_items SET last_error = NULL, updated_at = ? WHERE id = ?`,
		formatTime(s.now()), id,
	); err != nil {
		return fmt.Errorf("clear last error %d: %w", id, err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
