package queue

import (
	"context"
	"fmt"
)

// LoadSettings reads the single app_settings row.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	var (
		settings   Settings
		killSwitch int
		posting    int
		updatedRaw string
	)
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT pipeline_mode, kill_switch, posting_enabled, updated_at FROM app_settings WHERE id = 1`,
	).Scan(&settings.PipelineMode, &killSwitch, &posting, &updatedRaw)
	if isNoRows(err) {
		return Settings{PipelineMode: "legacy", PostingEnabled: true}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings.KillSwitch = killSwitch != 0
	settings.PostingEnabled = posting != 0
	settings.UpdatedAt, _ = parseTimeString(updatedRaw)
	return settings, nil
}

// SaveSettings upserts the single app_settings row.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO app_settings (id, pipeline_mode, kill_switch, posting_enabled, updated_at)
         VALUES (1, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             pipeline_mode = excluded.pipeline_mode,
             kill_switch = excluded.kill_switch,
             posting_enabled = excluded.posting_enabled,
             updated_at = excluded.updated_at`,
		settings.PipelineMode,
		boolToInt(settings.KillSwitch),
		boolToInt(settings.PostingEnabled),
		formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
