package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"autoposter/internal/agents"
	"autoposter/internal/config"
	"autoposter/internal/generation"
	"autoposter/internal/logging"
	"autoposter/internal/mode"
	"autoposter/internal/monitor"
	"autoposter/internal/notifications"
	"autoposter/internal/pillars"
	"autoposter/internal/quality"
	"autoposter/internal/queue"
	"autoposter/internal/research"
	"autoposter/internal/services"
	"autoposter/internal/stage"
	"autoposter/internal/tracing"
	"autoposter/internal/webhook"
	"autoposter/internal/workflow"
)

// Audit identifiers for operator actions.
const (
	ActorCLI                 = "cli"
	ActionManualTransition   = "pipeline.manual_transition"
	resourceTypePipelineItem = "pipeline_item"
)

// Option customizes a Runtime.
type Option func(*options)

type options struct {
	generator generation.Generator
	battery   quality.Battery
	notifier  notifications.Service
	webhook   agents.Webhook
	fetcher   research.Fetcher
	now       func() time.Time
	version   string
}

// WithGenerator replaces the configured generation client.
func WithGenerator(g generation.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithBattery replaces the default quality gates.
func WithBattery(b quality.Battery) Option {
	return func(o *options) { o.battery = b }
}

// WithNotifier replaces the configured ntfy service.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// WithWebhook replaces the configured webhook client.
func WithWebhook(w agents.Webhook) Option {
	return func(o *options) { o.webhook = w }
}

// WithFetcher replaces the research scraper.
func WithFetcher(f research.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithClock pins the runtime clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithVersion tags exported spans with the service version.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// Runtime wires the store, agents, monitor, and delivery clients behind the
// operator surface.
type Runtime struct {
	cfg       *config.Config
	store     *queue.Store
	ownsStore bool
	modes     *mode.Service
	catalogue *pillars.Catalogue
	agents    []stage.Agent
	morgan    *monitor.Morgan
	ingester  *research.Ingester
	webhook   *webhook.Client
	notifier  notifications.Service
	tracing   *tracing.Provider
	logger    *slog.Logger
	now       func() time.Time
}

// Open opens the configured database and builds a Runtime that closes it.
func Open(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("pipeline runtime requires config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open pipeline store: %w", err)
	}
	rt, err := New(cfg, store, logger, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	rt.ownsStore = true
	return rt, nil
}

// New builds a Runtime over an open store. The caller keeps ownership of store.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("pipeline runtime requires config and store")
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	catalogue, err := pillars.Load(cfg.Paths.PillarsFile)
	if err != nil {
		return nil, err
	}
	provider, err := tracing.Setup(cfg.Tracing, o.version)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	rt := &Runtime{
		cfg:       cfg,
		store:     store,
		modes:     mode.NewService(store, store, logger),
		catalogue: catalogue,
		webhook:   webhook.NewFromConfig(cfg, store, logger),
		notifier:  o.notifier,
		tracing:   provider,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		now:       o.now,
	}
	if rt.notifier == nil {
		rt.notifier = notifications.NewService(cfg, store, logger)
	}

	generator := o.generator
	if generator == nil {
		if client := generation.NewClient(generation.ConfigFrom(cfg)); client.Configured() {
			generator = generation.NewPostGenerator(client)
		}
	}
	var hook agents.Webhook = rt.webhook
	if o.webhook != nil {
		hook = o.webhook
	}

	rt.agents = agents.All(agents.Deps{
		Store:     store,
		Config:    cfg,
		Catalogue: catalogue,
		Generator: generator,
		Battery:   o.battery,
		Notifier:  rt.notifier,
		Webhook:   hook,
		Tracer:    provider.Tracer(),
		Logger:    logger,
		Now:       o.now,
	})
	rt.morgan = monitor.New(store, cfg, logger,
		monitor.WithNotifier(rt.notifier),
		monitor.WithTracer(provider.Tracer()),
	)

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = research.NewScraper(nil)
	}
	rt.ingester = research.NewIngester(store, fetcher, catalogue, cfg.Research.MaxItemsPerSource, logger)
	return rt, nil
}

// Close flushes spans and closes the store when the Runtime opened it.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}
	if r.ownsStore {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Config returns the runtime configuration.
func (r *Runtime) Config() *config.Config { return r.cfg }

// Store exposes the pipeline store for read-only operator views.
func (r *Runtime) Store() *queue.Store { return r.store }

// Modes returns the pipeline mode service.
func (r *Runtime) Modes() *mode.Service { return r.modes }

// Webhook returns the configured webhook client.
func (r *Runtime) Webhook() *webhook.Client { return r.webhook }

// Notifier returns the reminder channel.
func (r *Runtime) Notifier() notifications.Service { return r.notifier }

// Agents lists the stage agents in pipeline order.
func (r *Runtime) Agents() []stage.Agent {
	out := make([]stage.Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

func (r *Runtime) agent(name string) (stage.Agent, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, agent := range r.agents {
		if agent.Name() == name {
			return agent, true
		}
	}
	return nil, false
}

// Trigger runs one agent now under the persisted pipeline settings.
func (r *Runtime) Trigger(ctx context.Context, name string) (stage.Outcome, error) {
	agent, ok := r.agent(name)
	if !ok {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, "pipeline", "trigger",
			fmt.Sprintf("unknown agent %q (want one of %s)", name, strings.Join(agents.Names(), ", ")), nil)
	}
	settings, err := r.modes.Current(ctx)
	if err != nil {
		return stage.Outcome{Agent: name}, err
	}
	ctx = services.WithRequestID(ctx, agents.WorkerID("trigger"))
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("agent triggered",
		logging.String(logging.FieldStage, name),
		logging.String("pipeline_mode", string(settings.Mode)),
	)
	return agent.Run(ctx, settings)
}

// MorganRun is the result of a gated monitor pass.
type MorganRun struct {
	Skipped bool             `json:"skipped"`
	Reason  string           `json:"reason,omitempty"`
	Summary *monitor.Summary `json:"summary,omitempty"`
}

// RunMorgan runs one monitor pass unless the kill switch or mode gate applies.
func (r *Runtime) RunMorgan(ctx context.Context) (MorganRun, error) {
	settings, err := r.modes.Current(ctx)
	if err != nil {
		return MorganRun{}, err
	}
	if out, skip := stage.Gate(monitor.Actor, settings); skip {
		r.logger.Info("morgan skipped", logging.String("reason", out.Reason))
		return MorganRun{Skipped: true, Reason: out.Reason}, nil
	}
	summary, err := r.morgan.Run(ctx, r.now())
	if err != nil {
		return MorganRun{}, err
	}
	return MorganRun{Summary: &summary}, nil
}

// Overview counts items per status.
func (r *Runtime) Overview(ctx context.Context) (queue.Overview, error) {
	return r.store.Overview(ctx)
}

// Health grades the pipeline without changing anything.
func (r *Runtime) Health(ctx context.Context) (monitor.HealthReport, error) {
	return r.morgan.GenerateHealthReport(ctx, r.now())
}

// AgentHealth reports readiness for each agent.
func (r *Runtime) AgentHealth(ctx context.Context) []stage.Health {
	out := make([]stage.Health, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, agent.HealthCheck(ctx))
	}
	return out
}

// ManualTransition moves an item under the same graph and concurrency rules
// the agents use, then audits the change.
func (r *Runtime) ManualTransition(ctx context.Context, id int64, from, to queue.Status) (*queue.Item, error) {
	if !from.Valid() || !to.Valid() {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "manual transition",
			fmt.Sprintf("unknown status in %q -> %q", from, to), nil)
	}
	item, err := r.store.Transition(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if err := r.store.RecordAudit(ctx, queue.AuditEntry{
		Actor:        ActorCLI,
		Action:       ActionManualTransition,
		ResourceType: resourceTypePipelineItem,
		ResourceID:   strconv.FormatInt(id, 10),
		Detail:       map[string]any{"from": string(from), "to": string(to)},
	}); err != nil {
		logging.WarnWithContext(r.logger, "manual transition audit failed", "audit_failed",
			logging.Int64(logging.FieldItemID, id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "transition applied but not audited"),
		)
	}
	r.logger.Info("manual transition",
		logging.Int64(logging.FieldItemID, id),
		logging.String("from", string(from)),
		logging.String("to", string(to)),
	)
	return item, nil
}

// AddItem queues a new backlog item by hand. The pillar is resolved against
// the catalogue; an empty sub-theme takes the pillar's first.
func (r *Runtime) AddItem(ctx context.Context, topic, pillar, subTheme string) (*queue.Item, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "add item", "topic is required", nil)
	}
	resolved := r.catalogue.Resolve(pillar)
	if strings.TrimSpace(subTheme) == "" {
		subTheme = r.catalogue.FirstSubTheme(resolved)
	}
	return r.store.CreateItem(ctx, queue.NewItem{
		TopicKeyword: topic,
		PillarTheme:  resolved,
		SubTheme:     strings.TrimSpace(subTheme),
		MaxRevisions: r.cfg.Pipeline.MaxRevisions,
	})
}

// IngestSources scrapes the configured research sources into source material.
func (r *Runtime) IngestSources(ctx context.Context) (research.Result, error) {
	return r.ingester.Ingest(ctx, r.cfg.Research.Sources)
}

// Jobs builds the daemon's scheduled jobs from the [schedule] section. Agent
// and monitor jobs read the pipeline settings on every run; research
// ingestion only adds source material and always runs.
func (r *Runtime) Jobs() []workflow.Job {
	sched := r.cfg.Schedule
	cadence := map[string]config.Job{
		agents.NameScout:     sched.Scout,
		agents.NameWriter:    sched.Writer,
		agents.NameEditor:    sched.Editor,
		agents.NamePublisher: sched.Publisher,
		agents.NamePromoter:  sched.Promoter,
	}

	jobs := []workflow.Job{
		newJob("research", sched.Research, func(ctx context.Context) error {
			_, err := r.IngestSources(ctx)
			return err
		}),
	}
	for _, name := range agents.Names() {
		jobs = append(jobs, newJob(name, cadence[name], func(ctx context.Context) error {
			_, err := r.Trigger(ctx, name)
			return err
		}))
	}
	jobs = append(jobs, newJob(monitor.Actor, sched.Morgan, func(ctx context.Context) error {
		_, err := r.RunMorgan(ctx)
		return err
	}))
	return jobs
}

func newJob(name string, cadence config.Job, run func(context.Context) error) workflow.Job {
	return workflow.Job{
		Name:     name,
		Interval: time.Duration(cadence.IntervalMinutes) * time.Minute,
		Offset:   time.Duration(cadence.OffsetMinutes) * time.Minute,
		Run:      run,
	}
}
