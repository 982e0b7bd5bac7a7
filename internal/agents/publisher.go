package agents

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"autoposter/internal/logging"
	"autoposter/internal/mode"
	"autoposter/internal/notifications"
	"autoposter/internal/queue"
	"autoposter/internal/services"
	"autoposter/internal/stage"
)

// EventPublishReady is the webhook event fired for each newly scheduled post.
const EventPublishReady = "post.publish_ready"

// Publisher claims ready_to_publish items, schedules a post, and hands it to
// the webhook and reminder channels.
type Publisher struct {
	claimAgent
	deps     Deps
	webhook  Webhook
	notifier notifications.Service
}

// NewPublisher constructs the Publisher agent.
func NewPublisher(deps Deps) *Publisher {
	return &Publisher{
		claimAgent: newClaimAgent(deps, NamePublisher, queue.ClaimPublish, queue.StatusReadyToPublish, deps.config().Pipeline.PublisherMaxItems),
		deps:       deps,
		webhook:    deps.Webhook,
		notifier:   deps.Notifier,
	}
}

// HealthCheck implements stage.Agent. A missing webhook is reported but does
// not make the agent unready.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	if _, err := WindowFromConfig(p.deps.config()); err != nil {
		return stage.Unhealthy(NamePublisher, "%v", err)
	}
	health := p.storeHealth(ctx)
	if health.Ready {
		if c, ok := p.webhook.(interface{ Configured() bool }); p.webhook == nil || (ok && !c.Configured()) {
			health.Detail = "webhook not configured; reminders only"
		}
	}
	return health
}

// Run implements stage.Agent. Shadow mode schedules posts and moves items
// along without calling the webhook or sending reminders.
func (p *Publisher) Run(ctx context.Context, settings mode.Settings) (stage.Outcome, error) {
	window, err := WindowFromConfig(p.deps.config())
	if err != nil {
		return stage.Outcome{Agent: NamePublisher}, services.Wrap(services.ErrConfiguration, NamePublisher, "posting window", "", err)
	}
	shadow := settings.IsShadow()
	return p.claimLoop(ctx, settings, func(ctx context.Context, item *queue.Item) (itemResult, error) {
		return p.process(ctx, item, window, shadow)
	})
}

func (p *Publisher) process(ctx context.Context, item *queue.Item, window PostingWindow, shadow bool) (itemResult, error) {
	logger := logging.WithContext(ctx, p.logger)

	draft, err := loadDraft(ctx, p.store, item)
	if err != nil {
		return resultSkipped, err
	}
	if draft == nil {
		logging.WarnWithContext(logger, "item has no draft", "draft_missing",
			logging.String(logging.FieldErrorHint, "inspect the item with pipeline show"),
			logging.String(logging.FieldImpact, "item skipped"),
		)
		p.release(ctx, item.ID)
		return resultSkipped, nil
	}

	now := p.deps.now()
	post, err := p.store.CreatePublishedPost(ctx, queue.PublishedPost{
		DraftID:        draft.ID,
		PipelineItemID: item.ID,
		ContentBody:    draft.ContentBody,
		Format:         draft.Format,
		Tone:           draft.Tone,
		ScheduledTime:  window.Pick(now, p.deps.int64n),
	})
	if err != nil {
		return resultSkipped, fmt.Errorf("create published post: %w", err)
	}

	if shadow {
		logger.Info("shadow publish, webhook and reminder skipped",
			logging.String(logging.FieldEventType, "publish_shadow"),
			logging.Int64("post_id", post.ID),
		)
	} else {
		p.announce(ctx, item, draft, post, now)
	}

	if _, ok, err := p.transition(ctx, item.ID, queue.StatusReadyToPublish, queue.StatusPublished); err != nil || !ok {
		p.release(ctx, item.ID)
		return resultSkipped, err
	}
	p.release(ctx, item.ID)

	logger.Info("item published",
		logging.String(logging.FieldEventType, "item_published"),
		logging.Int64("post_id", post.ID),
		logging.String("scheduled_time", post.ScheduledTime.Format(time.RFC3339)),
		logging.Bool("shadow", shadow),
	)
	return resultProcessed, nil
}

// announce fires the webhook and the reminder. Neither failure blocks the
// item; both channels record their own deliveries.
func (p *Publisher) announce(ctx context.Context, item *queue.Item, draft *queue.Draft, post *queue.PublishedPost, now time.Time) {
	logger := logging.WithContext(ctx, p.logger)
	pillar := firstNonEmpty(item.PillarTheme, draft.PillarTheme)
	subTheme := firstNonEmpty(item.SubTheme, draft.SubTheme)

	if p.webhook != nil {
		p.webhook.Send(ctx, EventPublishReady, map[string]any{
			"post_id":          strconv.FormatInt(post.ID, 10),
			"pipeline_item_id": strconv.FormatInt(item.ID, 10),
			"content":          draft.ContentBody,
			"format":           string(draft.Format),
			"pillar_theme":     pillar,
			"sub_theme":        subTheme,
		})
	}

	if p.notifier == nil {
		return
	}
	err := p.notifier.Publish(ctx, notifications.EventPublishReady, notifications.Payload{
		"item_id":      item.ID,
		"pillar_theme": pillar,
		"sub_theme":    subTheme,
		"content":      draft.ContentBody,
	})
	if err != nil {
		logging.WarnWithContext(logger, "publish reminder failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "operator was not reminded to publish"),
		)
		return
	}
	if !notifications.Delivers(p.notifier) {
		return
	}
	if err := p.store.MarkManualPublishNotified(ctx, post.ID, now); err != nil {
		logging.WarnWithContext(logger, "could not stamp reminder time", "post_update_failed",
			logging.Int64("post_id", post.ID),
			logging.Error(err),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
