package agents

import (
	"context"
	"fmt"

	"autoposter/internal/logging"
	"autoposter/internal/mode"
	"autoposter/internal/notifications"
	"autoposter/internal/queue"
	"autoposter/internal/stage"
)

// Promoter claims published items, sends the engagement reminder, and closes
// them out through amplified to done.
type Promoter struct {
	claimAgent
	notifier notifications.Service
}

// NewPromoter constructs the Promoter agent.
func NewPromoter(deps Deps) *Promoter {
	return &Promoter{
		claimAgent: newClaimAgent(deps, NamePromoter, queue.ClaimPromote, queue.StatusPublished, deps.config().Pipeline.PromoterMaxItems),
		notifier:   deps.Notifier,
	}
}

// HealthCheck implements stage.Agent.
func (p *Promoter) HealthCheck(ctx context.Context) stage.Health {
	return p.storeHealth(ctx)
}

// Run implements stage.Agent. The reminder goes to the operator only, so it is
// sent in shadow mode too.
func (p *Promoter) Run(ctx context.Context, settings mode.Settings) (stage.Outcome, error) {
	return p.claimLoop(ctx, settings, p.process)
}

func (p *Promoter) process(ctx context.Context, item *queue.Item) (itemResult, error) {
	logger := logging.WithContext(ctx, p.logger)

	if p.notifier != nil {
		draft, err := loadDraft(ctx, p.store, item)
		if err != nil {
			return resultSkipped, err
		}
		content := ""
		if draft != nil {
			content = draft.ContentBody
		}
		if err := p.notifier.Publish(ctx, notifications.EventEngagementPrompt, notifications.Payload{
			"item_id":      item.ID,
			"pillar_theme": item.PillarTheme,
			"content":      content,
		}); err != nil {
			logging.WarnWithContext(logger, "engagement reminder failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "operator was not prompted to engage"),
			)
		}
	}

	if err := p.store.SetSocialStatus(ctx, item.ID, queue.SocialAmplified); err != nil {
		return resultSkipped, fmt.Errorf("set social status: %w", err)
	}
	if _, ok, err := p.transition(ctx, item.ID, queue.StatusPublished, queue.StatusAmplified); err != nil || !ok {
		p.release(ctx, item.ID)
		return resultSkipped, err
	}
	if _, ok, err := p.transition(ctx, item.ID, queue.StatusAmplified, queue.StatusDone); err != nil || !ok {
		p.release(ctx, item.ID)
		return resultSkipped, err
	}
	if err := p.store.SetSocialStatus(ctx, item.ID, queue.SocialMonitoringComplete); err != nil {
		p.release(ctx, item.ID)
		return resultSkipped, fmt.Errorf("set social status: %w", err)
	}
	p.release(ctx, item.ID)

	logger.Info("item promoted",
		logging.String(logging.FieldEventType, "item_promoted"),
		logging.Bool("reminder_sent", p.notifier != nil),
	)
	return resultProcessed, nil
}
