package mode

import (
	"context"
	"fmt"
	"log/slog"

	"autoposter/internal/logging"
	"autoposter/internal/queue"
)

// SettingsStore persists the single operational settings row.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (queue.Settings, error)
	SaveSettings(ctx context.Context, settings queue.Settings) error
}

// Service reads and changes the pipeline mode and kill switch.
type Service struct {
	store  SettingsStore
	audit  queue.AuditSink
	logger *slog.Logger
}

// NewService wires a mode service. audit may be nil.
func NewService(store SettingsStore, audit queue.AuditSink, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		audit:  audit,
		logger: logging.NewComponentLogger(logger, "mode"),
	}
}

// Current returns the persisted settings. An unrecognised stored mode falls
// back to the default with a warning.
func (s *Service) Current(ctx context.Context) (Settings, error) {
	raw, err := s.store.LoadSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load pipeline mode: %w", err)
	}
	m, err := Parse(raw.PipelineMode)
	if err != nil {
		logging.WarnWithContext(s.logger, "stored pipeline mode unrecognised", "mode_fallback",
			logging.String("stored_mode", raw.PipelineMode),
			logging.String(logging.FieldImpact, "agents gated as legacy"),
			logging.String(logging.FieldErrorHint, "run 'autoposter mode set <mode>'"),
		)
		m = Default
	}
	return Settings{Mode: m, KillSwitch: raw.KillSwitch, PostingEnabled: raw.PostingEnabled}, nil
}

// SetMode persists a new mode and audits the change under actor.
func (s *Service) SetMode(ctx context.Context, m Mode, actor string) (Settings, error) {
	if _, err := Parse(string(m)); err != nil {
		return Settings{}, err
	}
	raw, err := s.store.LoadSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load pipeline mode: %w", err)
	}
	previous := raw.PipelineMode
	raw.PipelineMode = string(m)
	if err := s.store.SaveSettings(ctx, raw); err != nil {
		return Settings{}, fmt.Errorf("save pipeline mode: %w", err)
	}
	s.logger.Info("pipeline mode changed",
		logging.String("from", previous),
		logging.String("to", string(m)),
		logging.String("actor", actor),
	)
	s.record(ctx, actor, "pipeline.mode_changed", map[string]any{"from": previous, "to": string(m)})
	return s.Current(ctx)
}

// SetKillSwitch engages or clears the kill switch and audits the change.
func (s *Service) SetKillSwitch(ctx context.Context, on bool, actor string) (Settings, error) {
	raw, err := s.store.LoadSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load kill switch: %w", err)
	}
	previous := raw.KillSwitch
	raw.KillSwitch = on
	if err := s.store.SaveSettings(ctx, raw); err != nil {
		return Settings{}, fmt.Errorf("save kill switch: %w", err)
	}
	level := slog.LevelInfo
	if on {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "kill switch changed",
		logging.Bool("from", previous),
		logging.Bool("to", on),
		logging.String("actor", actor),
	)
	s.record(ctx, actor, "pipeline.kill_switch_changed", map[string]any{"from": previous, "to": on})
	return s.Current(ctx)
}

// StatusSummary describes which systems are active under the current settings.
type StatusSummary struct {
	PipelineMode        Mode            `json:"pipeline_mode"`
	KillSwitch          bool            `json:"kill_switch"`
	PostingEnabled      bool            `json:"posting_enabled"`
	LegacyActive        bool            `json:"legacy_active"`
	V6Active            bool            `json:"v6_active"`
	V6PublishingEnabled bool            `json:"v6_publishing_enabled"`
	ShadowMode          bool            `json:"shadow_mode"`
	AllDisabled         bool            `json:"all_disabled"`
	Descriptions        map[Mode]string `json:"mode_descriptions"`
}

// Summarize derives the status summary from settings.
func Summarize(settings Settings) StatusSummary {
	kill := settings.KillSwitch
	descs := make(map[Mode]string, len(descriptions))
	for m, d := range descriptions {
		descs[m] = d
	}
	return StatusSummary{
		PipelineMode:        settings.Mode,
		KillSwitch:          kill,
		PostingEnabled:      settings.PostingEnabled,
		LegacyActive:        settings.ShouldRunLegacy() && !kill,
		V6Active:            settings.ShouldRunV6() && !kill,
		V6PublishingEnabled: settings.Mode == V6 && !kill,
		ShadowMode:          settings.IsShadow(),
		AllDisabled:         settings.Mode == Disabled || kill,
		Descriptions:        descs,
	}
}

// Status loads the current settings and summarizes them.
func (s *Service) Status(ctx context.Context) (StatusSummary, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return StatusSummary{}, err
	}
	return Summarize(settings), nil
}

func (s *Service) record(ctx context.Context, actor, action string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if actor == "" {
		actor = "system"
	}
	if err := s.audit.RecordAudit(ctx, queue.AuditEntry{
		Actor:        actor,
		Action:       action,
		ResourceType: "pipeline",
		Detail:       detail,
	}); err != nil {
		logging.WarnWithContext(s.logger, "audit write failed", "audit_failed",
			logging.String("action", action),
			logging.Error(err),
			logging.String(logging.FieldImpact, "mode change is not in the audit log"),
		)
	}
}
