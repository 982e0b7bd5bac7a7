package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// CreateDraft stores generated content and returns it with its identifier.
func (s *Store) CreateDraft(ctx context.Context, draft Draft) (*Draft, error) {
	if strings.TrimSpace(draft.ContentBody) == "" {
		return nil, fmt.Errorf("create draft: content body required")
	}
	if draft.Format == "" {
		draft.Format = FormatText
	}
	if draft.Tone == "" {
		draft.Tone = ToneEducational
	}
	draft.CreatedAt = s.now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO drafts (pillar_theme, sub_theme, format, tone, content_body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		nullableString(draft.PillarTheme),
		nullableString(draft.SubTheme),
		string(draft.Format),
		string(draft.Tone),
		draft.ContentBody,
		formatTime(draft.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	if draft.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &draft, nil
}

// GetDraft fetches a draft. A missing draft yields (nil, nil).
func (s *Store) GetDraft(ctx context.Context, id int64) (*Draft, error) {
	var (
		draft      Draft
		pillar     sql.NullString
		subTheme   sql.NullString
		format     string
		tone       string
		createdRaw string
	)
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT id, pillar_theme, sub_theme, format, tone, content_body, created_at FROM drafts WHERE id = ?`,
		id,
	).Scan(&draft.ID, &pillar, &subTheme, &format, &tone, &draft.ContentBody, &createdRaw)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %d: %w", id, err)
	}
	draft.PillarTheme = pillar.String
	draft.SubTheme = subTheme.String
	draft.Format = DraftFormat(format)
	draft.Tone = DraftTone(tone)
	draft.CreatedAt, _ = parseTimeString(createdRaw)
	return &draft, nil
}

// AddSource stores research material. Sources are unique by URL; the boolean
// reports whether a new row was written.
func (s *Store) AddSource(ctx context.Context, src SourceMaterial) (bool, error) {
	if strings.TrimSpace(src.URL) == "" || strings.TrimSpace(src.Title) == "" {
		return false, fmt.Errorf("add source: title and url required")
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO sources (
            source_name, title, url, published_at, summary_text, relevance_score, pillar_theme, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		src.SourceName,
		src.Title,
		src.URL,
		nullableTime(src.PublishedAt),
		nullableString(src.SummaryText),
		src.RelevanceScore,
		nullableString(src.PillarTheme),
		formatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("insert source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("source rows affected: %w", err)
	}
	return affected == 1, nil
}

// RecentSources returns sources created at or after since, most relevant first.
func (s *Store) RecentSources(ctx context.Context, since time.Time, limit int) ([]SourceMaterial, error) {
	builder := selectSources().
		Where(sq.GtOrEq{"created_at": formatTime(since)}).
		OrderBy("relevance_score DESC", "id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return s.querySources(ctx, builder)
}

// ListSources returns the newest sources first.
func (s *Store) ListSources(ctx context.Context, limit int) ([]SourceMaterial, error) {
	builder := selectSources().OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return s.querySources(ctx, builder)
}

// SourcesForPillar returns the most relevant sources filed under pillar.
func (s *Store) SourcesForPillar(ctx context.Context, pillar string, limit int) ([]SourceMaterial, error) {
	builder := selectSources().
		Where(sq.Eq{"pillar_theme": pillar}).
		OrderBy("relevance_score DESC", "created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return s.querySources(ctx, builder)
}

func selectSources() sq.SelectBuilder {
	return sq.Select("id", "source_name", "title", "url", "published_at", "summary_text", "relevance_score", "pillar_theme", "created_at").
		From("sources")
}

func (s *Store) querySources(ctx context.Context, builder sq.SelectBuilder) ([]SourceMaterial, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build source query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceMaterial
	for rows.Next() {
		var (
			src        SourceMaterial
			published  sql.NullString
			summary    sql.NullString
			pillar     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&src.ID, &src.SourceName, &src.Title, &src.URL, &published, &summary, &src.RelevanceScore, &pillar, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.PublishedAt = parseNullTime(published)
		src.SummaryText = summary.String
		src.PillarTheme = pillar.String
		src.CreatedAt, _ = parseTimeString(createdRaw)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// CreatePublishedPost records the scheduled publication of a draft.
func (s *Store) CreatePublishedPost(ctx context.Context, post PublishedPost) (*PublishedPost, error) {
	post.CreatedAt = s.now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO published_posts (
            draft_id, pipeline_item_id, content_body, format, tone, scheduled_time, manual_publish_notified_at, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.DraftID,
		post.PipelineItemID,
		post.ContentBody,
		string(post.Format),
		string(post.Tone),
		formatTime(post.ScheduledTime),
		nullableTime(post.ManualPublishNotifiedAt),
		formatTime(post.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert published post: %w", err)
	}
	if post.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &post, nil
}

// MarkManualPublishNotified stamps the time the operator reminder went out.
func (s *Store) MarkManualPublishNotified(ctx context.Context, postID int64, at time.Time) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE published_posts SET manual_publish_notified_at = ? WHERE id = ?`,
		formatTime(at), postID,
	); err != nil {
		return fmt.Errorf("mark post %d notified: %w", postID, err)
	}
	return nil
}

// PostForItem returns the most recent post created for a work item, or nil.
func (s *Store) PostForItem(ctx context.Context, itemID int64) (*PublishedPost, error) {
	var (
		post        PublishedPost
		itemRef     sql.NullInt64
		format      string
		tone        string
		scheduled   string
		notifiedRaw sql.NullString
		createdRaw  string
	)
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT id, draft_id, pipeline_item_id, content_body, format, tone, scheduled_time, manual_publish_notified_at, created_at
         FROM published_posts WHERE pipeline_item_id = ? ORDER BY id DESC LIMIT 1`,
		itemID,
	).Scan(&post.ID, &post.DraftID, &itemRef, &post.ContentBody, &format, &tone, &scheduled, &notifiedRaw, &createdRaw)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("post for item %d: %w", itemID, err)
	}
	post.PipelineItemID = itemRef.Int64
	post.Format = DraftFormat(format)
	post.Tone = DraftTone(tone)
	post.ScheduledTime, _ = parseTimeString(scheduled)
	post.ManualPublishNotifiedAt = parseNullTime(notifiedRaw)
	post.CreatedAt, _ = parseTimeString(createdRaw)
	return &post, nil
}
