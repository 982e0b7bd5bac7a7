package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"autoposter/internal/pillars"
	"autoposter/internal/queue"
)

// itemView is the JSON shape of a work item.
type itemView struct {
	ID               int64      `json:"id"`
	Status           string     `json:"status"`
	TopicKeyword     string     `json:"topic_keyword"`
	PillarTheme      string     `json:"pillar_theme"`
	SubTheme         string     `json:"sub_theme,omitempty"`
	DraftID          *int64     `json:"draft_id,omitempty"`
	ClaimedBy        string     `json:"claimed_by,omitempty"`
	ClaimStage       string     `json:"claim_stage,omitempty"`
	ClaimedAt        *time.Time `json:"claimed_at,omitempty"`
	ClaimExpiresAt   *time.Time `json:"claim_expires_at,omitempty"`
	QualityScore     *float64   `json:"quality_score,omitempty"`
	ReadabilityScore *float64   `json:"readability_score,omitempty"`
	FactCheckStatus  string     `json:"fact_check_status,omitempty"`
	RevisionCount    int        `json:"revision_count"`
	MaxRevisions     int        `json:"max_revisions"`
	SocialStatus     string     `json:"social_status,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func newItemView(item *queue.Item) itemView {
	return itemView{
		ID:               item.ID,
		Status:           string(item.Status),
		TopicKeyword:     item.TopicKeyword,
		PillarTheme:      item.PillarTheme,
		SubTheme:         item.SubTheme,
		DraftID:          item.DraftID,
		ClaimedBy:        item.ClaimedBy,
		ClaimStage:       string(item.ClaimStage),
		ClaimedAt:        item.ClaimedAt,
		ClaimExpiresAt:   item.ClaimExpiresAt,
		QualityScore:     item.QualityScore,
		ReadabilityScore: item.ReadabilityScore,
		FactCheckStatus:  string(item.FactCheckStatus),
		RevisionCount:    item.RevisionCount,
		MaxRevisions:     item.MaxRevisions,
		SocialStatus:     string(item.SocialStatus),
		LastError:        item.LastError,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

type draftView struct {
	ID          int64     `json:"id"`
	Format      string    `json:"format"`
	Tone        string    `json:"tone"`
	ContentBody string    `json:"content_body"`
	CreatedAt   time.Time `json:"created_at"`
}

type postView struct {
	ID                      int64      `json:"id"`
	ScheduledTime           time.Time  `json:"scheduled_time"`
	ManualPublishNotifiedAt *time.Time `json:"manual_publish_notified_at,omitempty"`
}

// itemDetail is what `pipeline show` prints.
type itemDetail struct {
	Item  itemView   `json:"item"`
	Draft *draftView `json:"draft,omitempty"`
	Post  *postView  `json:"post,omitempty"`
}

type sourceView struct {
	ID             int64      `json:"id"`
	SourceName     string     `json:"source_name"`
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	PillarTheme    string     `json:"pillar_theme,omitempty"`
	RelevanceScore float64    `json:"relevance_score"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newSourceView(src queue.SourceMaterial) sourceView {
	return sourceView{
		ID:             src.ID,
		SourceName:     src.SourceName,
		Title:          src.Title,
		URL:            src.URL,
		PillarTheme:    src.PillarTheme,
		RelevanceScore: src.RelevanceScore,
		PublishedAt:    src.PublishedAt,
		CreatedAt:      src.CreatedAt,
	}
}

func relativeAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func claimLabel(item *queue.Item) string {
	if !item.Claimed() {
		return "-"
	}
	label := fmt.Sprintf("%s (%s)", item.ClaimedBy, item.ClaimStage)
	if item.ClaimedAt != nil {
		label += " " + humanize.Time(*item.ClaimedAt)
	}
	return label
}

func pillarLabel(pillar string) string {
	if pillar == "" {
		return "-"
	}
	return pillars.DisplayName(pillar)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

type auditView struct {
	ID           int64          `json:"id"`
	Actor        string         `json:"actor"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func newAuditView(entry queue.AuditEntry) auditView {
	return auditView{
		ID:           entry.ID,
		Actor:        entry.Actor,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Detail:       entry.Detail,
		CreatedAt:    entry.CreatedAt,
	}
}
