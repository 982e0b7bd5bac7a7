package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// AuditSink receives append-only audit entries.
type AuditSink interface {
	RecordAudit(ctx context.Context, entry AuditEntry) error
}

// NotificationSink receives one record per outbound delivery sequence.
type NotificationSink interface {
	RecordNotification(ctx context.Context, record NotificationRecord) error
}

var (
	_ AuditSink        = (*Store)(nil)
	_ NotificationSink = (*Store)(nil)
)

// RecordAudit appends an audit entry.
func (s *Store) RecordAudit(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("record audit: action required")
	}
	detail, err := encodeJSON(entry.Detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO audit_logs (actor, action, resource_type, resource_id, detail_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Actor,
		entry.Action,
		entry.ResourceType,
		nullableString(entry.ResourceID),
		detail,
		formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// AuditEntries returns entries for an action, newest first. An empty action lists all.
func (s *Store) AuditEntries(ctx context.Context, action string, limit int) ([]AuditEntry, error) {
	builder := sq.Select("id", "actor", "action", "resource_type", "resource_id", "detail_json", "created_at").
		From("audit_logs").
		OrderBy("id DESC")
	if action != "" {
		builder = builder.Where(sq.Eq{"action": action})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			entry      AuditEntry
			resourceID sql.NullString
			detail     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.ResourceType, &resourceID, &detail, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ResourceID = resourceID.String
		entry.Detail = decodeJSON(detail)
		entry.CreatedAt, _ = parseTimeString(createdRaw)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RecordNotification appends a delivery record.
func (s *Store) RecordNotification(ctx context.Context, record NotificationRecord) error {
	payload, err := encodeJSON(record.Payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO notification_logs (channel, event_type, payload, success, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		record.Channel,
		record.EventType,
		payload,
		boolToInt(record.Success),
		nullableString(record.ErrorMessage),
		formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("insert notification record: %w", err)
	}
	return nil
}

// NotificationRecords returns records for a channel, newest first. An empty channel lists all.
func (s *Store) NotificationRecords(ctx context.Context, channel string, limit int) ([]NotificationRecord, error) {
	builder := sq.Select("id", "channel", "event_type", "payload", "success", "error_message", "created_at").
		From("notification_logs").
		OrderBy("id DESC")
	if channel != "" {
		builder = builder.Where(sq.Eq{"channel": channel})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build notification query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notification records: %w", err)
	}
	defer rows.Close()

	var records []NotificationRecord
	for rows.Next() {
		var (
			record     NotificationRecord
			payload    sql.NullString
			success    int
			errMsg     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&record.ID, &record.Channel, &record.EventType, &payload, &success, &errMsg, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan notification record: %w", err)
		}
		record.Payload = decodeJSON(payload)
		record.Success = success != 0
		record.ErrorMessage = errMsg.String
		record.CreatedAt, _ = parseTimeString(createdRaw)
		records = append(records, record)
	}
	return records, rows.Err()
}
