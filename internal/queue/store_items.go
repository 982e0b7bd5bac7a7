package queue

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

func selectItems() sq.SelectBuilder {
	return sq.Select(itemColumns...).From("pipeline_items")
}

// CreateItem inserts a new work item at backlog.
func (s *Store) CreateItem(ctx context.Context, item NewItem) (*Item, error) {
	maxRevisions := item.MaxRevisions
	if maxRevisions <= 0 {
		maxRevisions = DefaultMaxRevisions
	}
	timestamp := formatTime(s.now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO pipeline_items (
            status, revision_count, max_revisions, topic_keyword, pillar_theme, sub_theme, created_at, updated_at
        ) VALUES (?, 0, ?, ?, ?, ?, ?, ?)`,
		StatusBacklog,
		maxRevisions,
		nullableString(strings.TrimSpace(item.TopicKeyword)),
		nullableString(strings.TrimSpace(item.PillarTheme)),
		nullableString(strings.TrimSpace(item.SubTheme)),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an item by its identifier. A missing item yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	query, args, err := selectItems().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}
	item, err := scanItem(s.db.QueryRowContext(ensureContext(ctx), query, args...))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Statuses      []Status
	UnclaimedOnly bool
	Limit         int
}

// List returns items ordered oldest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	builder := selectItems().OrderBy("created_at ASC", "id ASC")
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": statusArgs(filter.Statuses)})
	}
	if filter.UnclaimedOnly {
		builder = builder.Where(sq.Eq{"claimed_by": nil})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	return s.queryItems(ctx, builder)
}

// Unclaimed returns up to limit unclaimed items at status, oldest first.
func (s *Store) Unclaimed(ctx context.Context, status Status, limit int) ([]*Item, error) {
	return s.List(ctx, ListFilter{Statuses: []Status{status}, UnclaimedOnly: true, Limit: limit})
}

// CountByStatus returns how many items sit at the given status.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	query, args, err := sq.Select("COUNT(1)").From("pipeline_items").Where(sq.Eq{"status": string(status)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s items: %w", status, err)
	}
	return count, nil
}

// TopicInFlight reports whether any item not yet done carries the topic keyword.
func (s *Store) TopicInFlight(ctx context.Context, topic string) (bool, error) {
	query, args, err := sq.Select("COUNT(1)").From("pipeline_items").
		Where(sq.Eq{"topic_keyword": topic}).
		Where(sq.NotEq{"status": string(StatusDone)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build topic query: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("topic lookup: %w", err)
	}
	return count > 0, nil
}

// AttachDraft links a draft to an item.
func (s *Store) AttachDraft(ctx context.Context, id, draftID int64) error {
	return s.updateFields(ctx, id, sq.Eq{"draft_id": draftID})
}

// RecordReview stores the Editor's scores and fact-check verdict.
func (s *Store) RecordReview(ctx context.Context, id int64, quality, readability *float64, verdict FactCheckStatus) error {
	return s.updateFields(ctx, id, sq.Eq{
		"quality_score":     nullableFloat(quality),
		"readability_score": nullableFloat(readability),
		"fact_check_status": nullableString(string(verdict)),
	})
}

// SetFactCheckStatus stores only the fact-check verdict.
func (s *Store) SetFactCheckStatus(ctx context.Context, id int64, verdict FactCheckStatus) error {
	return s.updateFields(ctx, id, sq.Eq{"fact_check_status": nullableString(string(verdict))})
}

// SetSocialStatus stores the Promoter's progress marker.
func (s *Store) SetSocialStatus(ctx context.Context, id int64, status SocialStatus) error {
	return s.updateFields(ctx, id, sq.Eq{"social_status": nullableString(string(status))})
}

func (s *Store) updateFields(ctx context.Context, id int64, fields sq.Eq) error {
	builder := sq.Update("pipeline_items").SetMap(fields).Set("updated_at", formatTime(s.now())).Where(sq.Eq{"id": id})
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("update item %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) queryItems(ctx context.Context, builder sq.SelectBuilder) ([]*Item, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func statusArgs(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}
