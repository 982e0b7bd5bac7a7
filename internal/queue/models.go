package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle position of a work item.
type Status string

const (
	StatusBacklog        Status = "backlog"
	StatusTodo           Status = "todo"
	StatusWriting        Status = "writing"
	StatusReview         Status = "review"
	StatusReadyToPublish Status = "ready_to_publish"
	StatusPublished      Status = "published"
	StatusAmplified      Status = "amplified"
	StatusDone           Status = "done"
)

var allStatuses = []Status{
	StatusBacklog,
	StatusTodo,
	StatusWriting,
	StatusReview,
	StatusReadyToPublish,
	StatusPublished,
	StatusAmplified,
	StatusDone,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Valid reports whether the status belongs to the closed set.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// ClaimStage names the processing step that holds a claim.
type ClaimStage string

const (
	ClaimWriting ClaimStage = "writing"
	ClaimReview  ClaimStage = "review"
	ClaimPublish ClaimStage = "publish"
	ClaimPromote ClaimStage = "promote"
)

// Valid reports whether the claim stage is one of the four agent stages.
func (c ClaimStage) Valid() bool {
	switch c {
	case ClaimWriting, ClaimReview, ClaimPublish, ClaimPromote:
		return true
	default:
		return false
	}
}

// FactCheckStatus records the Editor's verdict.
type FactCheckStatus string

const (
	FactCheckNone    FactCheckStatus = ""
	FactCheckPending FactCheckStatus = "pending"
	FactCheckPassed  FactCheckStatus = "passed"
	FactCheckFailed  FactCheckStatus = "failed"
)

// SocialStatus tracks the Promoter's progress on a published item.
type SocialStatus string

const (
	SocialNone               SocialStatus = ""
	SocialAmplified          SocialStatus = "amplified"
	SocialMonitoringComplete SocialStatus = "monitoring_complete"
)

// DefaultMaxRevisions applies when an item is created without an explicit ceiling.
const DefaultMaxRevisions = 3

// Item is a single piece of content moving through the pipeline.
type Item struct {
	ID               int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DraftID          *int64
	Status           Status
	ClaimedBy        string
	ClaimedAt        *time.Time
	ClaimStage       ClaimStage
	ClaimExpiresAt   *time.Time
	QualityScore     *float64
	ReadabilityScore *float64
	FactCheckStatus  FactCheckStatus
	RevisionCount    int
	MaxRevisions     int
	SocialStatus     SocialStatus
	LastError        string
	TopicKeyword     string
	PillarTheme      string
	SubTheme         string
}

// Claimed reports whether a worker currently holds the item.
func (i Item) Claimed() bool {
	return i.ClaimedBy != ""
}

// ExceededMaxRevisions reports whether the item has used up its revision budget.
func (i Item) ExceededMaxRevisions() bool {
	return i.RevisionCount >= i.MaxRevisions
}

// NewItem describes a work item to create in the backlog.
type NewItem struct {
	TopicKeyword string
	PillarTheme  string
	SubTheme     string
	MaxRevisions int
}

// SourceMaterial is a research input the Scout turns into backlog items.
type SourceMaterial struct {
	ID             int64
	SourceName     string
	Title          string
	URL            string
	PublishedAt    *time.Time
	SummaryText    string
	RelevanceScore float64
	PillarTheme    string
	CreatedAt      time.Time
}

// DraftFormat is the shape of a generated post.
type DraftFormat string

const (
	FormatText     DraftFormat = "text"
	FormatCarousel DraftFormat = "carousel"
	FormatPoll     DraftFormat = "poll"
)

// DraftTone is the voice of a generated post.
type DraftTone string

const (
	ToneEducational DraftTone = "educational"
	ToneOpinion     DraftTone = "opinion"
	ToneStory       DraftTone = "story"
)

// Draft is generated post content linked from a work item.
type Draft struct {
	ID          int64
	PillarTheme string
	SubTheme    string
	Format      DraftFormat
	Tone        DraftTone
	ContentBody string
	CreatedAt   time.Time
}

// PublishedPost records a scheduled publication of a draft.
type PublishedPost struct {
	ID                      int64
	DraftID                 int64
	PipelineItemID          int64
	ContentBody             string
	Format                  DraftFormat
	Tone                    DraftTone
	ScheduledTime           time.Time
	ManualPublishNotifiedAt *time.Time
	CreatedAt               time.Time
}

// AuditEntry is an append-only record of an administrative or automated action.
type AuditEntry struct {
	ID           int64
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	Detail       map[string]any
	CreatedAt    time.Time
}

// NotificationRecord captures one outbound delivery sequence.
type NotificationRecord struct {
	ID           int64
	Channel      string
	EventType    string
	Payload      map[string]any
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// Settings is the single-row operational configuration persisted alongside items.
type Settings struct {
	PipelineMode   string
	KillSwitch     bool
	PostingEnabled bool
	UpdatedAt      time.Time
}

// Overview counts items per status plus claim totals.
type Overview struct {
	Counts  map[Status]int `json:"counts"`
	Total   int            `json:"total"`
	Claimed int            `json:"claimed"`
}

// DatabaseHealth captures diagnostic information about the pipeline database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
