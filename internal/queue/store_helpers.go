package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// timeLayout is fixed width so stored timestamps compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var itemColumns = []string{
	"id", "draft_id", "status", "claimed_by", "claimed_at", "claim_stage", "claim_expires_at",
	"quality_score", "readability_score", "fact_check_status", "revision_count", "max_revisions",
	"social_status", "last_error", "topic_keyword", "pillar_theme", "sub_theme", "created_at", "updated_at",
}

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		item           Item
		draftID        sql.NullInt64
		statusStr      string
		claimedBy      sql.NullString
		claimedAtRaw   sql.NullString
		claimStage     sql.NullString
		claimExpiryRaw sql.NullString
		quality        sql.NullFloat64
		readability    sql.NullFloat64
		factCheck      sql.NullString
		socialStatus   sql.NullString
		lastError      sql.NullString
		topic          sql.NullString
		pillar         sql.NullString
		subTheme       sql.NullString
		createdRaw     string
		updatedRaw     string
	)

	if err := scanner.Scan(
		&item.ID,
		&draftID,
		&statusStr,
		&claimedBy,
		&claimedAtRaw,
		&claimStage,
		&claimExpiryRaw,
		&quality,
		&readability,
		&factCheck,
		&item.RevisionCount,
		&item.MaxRevisions,
		&socialStatus,
		&lastError,
		&topic,
		&pillar,
		&subTheme,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item.Status = Status(statusStr)
	item.ClaimedBy = claimedBy.String
	item.ClaimStage = ClaimStage(claimStage.String)
	item.FactCheckStatus = FactCheckStatus(factCheck.String)
	item.SocialStatus = SocialStatus(socialStatus.String)
	item.LastError = lastError.String
	item.TopicKeyword = topic.String
	item.PillarTheme = pillar.String
	item.SubTheme = subTheme.String
	if draftID.Valid {
		id := draftID.Int64
		item.DraftID = &id
	}
	if quality.Valid {
		v := quality.Float64
		item.QualityScore = &v
	}
	if readability.Valid {
		v := readability.Float64
		item.ReadabilityScore = &v
	}
	item.ClaimedAt = parseNullTime(claimedAtRaw)
	item.ClaimExpiresAt = parseNullTime(claimExpiryRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseNullTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", value)
	return t.UTC(), err
}

func encodeJSON(value map[string]any) (any, error) {
	if len(value) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeJSON(raw sql.NullString) map[string]any {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return map[string]any{"_raw": raw.String}
	}
	return out
}
