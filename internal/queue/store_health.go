package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Overview returns a count of items grouped by status.
func (s *Store) Overview(ctx context.Context) (Overview, error) {
	ctx = ensureContext(ctx)
	overview := Overview{Counts: make(map[Status]int, len(allStatuses))}
	for _, status := range allStatuses {
		overview.Counts[status] = 0
	}

	query, args, err := sq.Select("status", "COUNT(1)", "SUM(CASE WHEN claimed_by IS NOT NULL THEN 1 ELSE 0 END)").
		From("pipeline_items").
		GroupBy("status").
		ToSql()
	if err != nil {
		return overview, fmt.Errorf("build overview query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return overview, fmt.Errorf("pipeline overview: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status  string
			count   int
			claimed int
		)
		if err := rows.Scan(&status, &count, &claimed); err != nil {
			return overview, err
		}
		overview.Counts[Status(status)] = count
		overview.Total += count
		overview.Claimed += claimed
	}
	return overview, rows.Err()
}

// ErroredItems lists unclaimed items carrying last_error outside backlog and done.
func (s *Store) ErroredItems(ctx context.Context) ([]*Item, error) {
	return s.queryItems(ctx, selectItems().
		Where(sq.NotEq{"last_error": nil}).
		Where(sq.Eq{"claimed_by": nil}).
		Where(sq.NotEq{"status": []string{string(StatusDone), string(StatusBacklog)}}).
		OrderBy("updated_at ASC", "id ASC"))
}

// ErroredSince lists unclaimed items at status with last_error set whose last
// update is at or before cutoff.
func (s *Store) ErroredSince(ctx context.Context, status Status, cutoff time.Time) ([]*Item, error) {
	return s.queryItems(ctx, selectItems().
		Where(sq.Eq{"status": string(status)}).
		Where(sq.NotEq{"last_error": nil}).
		Where(sq.Eq{"claimed_by": nil}).
		Where(sq.LtOrEq{"updated_at": formatTime(cutoff)}).
		OrderBy("updated_at ASC", "id ASC"))
}

// StuckItems lists unclaimed in-flight items (todo through amplified) not
// updated since cutoff.
func (s *Store) StuckItems(ctx context.Context, cutoff time.Time) ([]*Item, error) {
	inFlight := []string{
		string(StatusTodo),
		string(StatusWriting),
		string(StatusReview),
		string(StatusReadyToPublish),
		string(StatusPublished),
		string(StatusAmplified),
	}
	return s.queryItems(ctx, selectItems().
		Where(sq.Eq{"status": inFlight}).
		Where(sq.Eq{"claimed_by": nil}).
		Where(sq.LtOrEq{"updated_at": formatTime(cutoff)}).
		OrderBy("updated_at ASC", "id ASC"))
}

// CheckHealth returns diagnostic information about the pipeline database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("pipeline database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat pipeline database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("pipeline database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping pipeline database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil && !errors.Is(err, sql.ErrNoRows) {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(pipeline_items)")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("table info: %w", err)
	}
	present := make(map[string]struct{})
	for colsRows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			colsRows.Close()
			health.Error = err.Error()
			return health, fmt.Errorf("scan table info: %w", err)
		}
		present[name] = struct{}{}
	}
	if err := colsRows.Err(); err != nil {
		colsRows.Close()
		health.Error = err.Error()
		return health, fmt.Errorf("iterate table info: %w", err)
	}
	colsRows.Close()
	health.TableExists = len(present) > 0
	for _, col := range itemColumns {
		if _, ok := present[col]; !ok {
			health.MissingColumns = append(health.MissingColumns, col)
		}
	}

	if health.TableExists {
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM pipeline_items").Scan(&health.TotalItems); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count pipeline items: %w", err)
		}
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
