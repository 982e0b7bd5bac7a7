package queue

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// DefaultClaimTTL is the advisory claim lifetime recorded in claim_expires_at.
const DefaultClaimTTL = 30 * time.Minute

// AttemptClaim takes the claim on an item for a worker. It succeeds only when
// the item is currently unclaimed; the check and write are a single statement.
// Claim operations touch only the claim columns: updated_at tracks status and
// content changes, which the monitor's staleness cutoffs rely on.
func (s *Store) AttemptClaim(ctx context.Context, id int64, stage ClaimStage, worker string, ttl time.Duration) (bool, error) {
	if !stage.Valid() {
		return false, fmt.Errorf("attempt claim: unknown stage %q", stage)
	}
	if worker == "" {
		return false, fmt.Errorf("attempt claim: worker id required")
	}
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	now := s.now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE pipeline_items
         SET claimed_by = ?, claimed_at = ?, claim_stage = ?, claim_expires_at = ?
         WHERE id = ? AND claimed_by IS NULL`,
		worker,
		formatTime(now),
		string(stage),
		formatTime(now.Add(ttl)),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("attempt claim %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return affected == 1, nil
}

// VerifyClaim re-reads the item and confirms the worker still holds it for stage.
func (s *Store) VerifyClaim(ctx context.Context, id int64, stage ClaimStage, worker string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM pipeline_items WHERE id = ? AND claimed_by = ? AND claim_stage = ?`,
		id, worker, string(stage),
	).Scan(&count); err != nil {
		return false, fmt.Errorf("verify claim %d: %w", id, err)
	}
	return count == 1, nil
}

// ReleaseClaim clears the claim on an item when it is held for stage.
func (s *Store) ReleaseClaim(ctx context.Context, id int64, stage ClaimStage) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE pipeline_items
         SET claimed_by = NULL, claimed_at = NULL, claim_stage = NULL, claim_expires_at = NULL
         WHERE id = ? AND claim_stage = ?`,
		id, string(stage),
	)
	if err != nil {
		return false, fmt.Errorf("release claim %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release rows affected: %w", err)
	}
	return affected == 1, nil
}

// FindStaleClaims returns claimed items whose claim was taken at or before cutoff.
func (s *Store) FindStaleClaims(ctx context.Context, cutoff time.Time) ([]*Item, error) {
	return s.queryItems(ctx, selectItems().
		Where(sq.NotEq{"claimed_by": nil}).
		Where(sq.LtOrEq{"claimed_at": formatTime(cutoff)}).
		OrderBy("claimed_at ASC", "id ASC"))
}

// ForceReleaseClaim clears any claim on the item regardless of stage.
func (s *Store) ForceReleaseClaim(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE pipeline_items
         SET claimed_by = NULL, claimed_at = NULL, claim_stage = NULL, claim_expires_at = NULL
         WHERE id = ? AND claimed_by IS NOT NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("force release claim %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("force release rows affected: %w", err)
	}
	return affected == 1, nil
}
