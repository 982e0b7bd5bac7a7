package monitor_test

import (
	"context"
	"testing"
	"time"

	"autoposter/internal/logging"
	"autoposter/internal/monitor"
	"autoposter/internal/notifications"
	"autoposter/internal/queue"
	"autoposter/internal/testsupport"
)

type recordingNotifier struct {
	events   []notifications.Event
	payloads []notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.events = append(n.events, event)
	n.payloads = append(n.payloads, payload)
	return nil
}

func newMorgan(t *testing.T, opts ...monitor.Option) (*monitor.Morgan, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return monitor.New(store, cfg, logging.NewNop(), opts...), store
}

// at runs fn with the store clock pinned to ts.
func at(store *queue.Store, ts time.Time, fn func()) {
	store.SetClock(func() time.Time { return ts })
	defer store.SetClock(nil)
	fn()
}

func seedErrored(t *testing.T, store *queue.Store, topic string, status queue.Status, updated time.Time, revisions int) *queue.Item {
	t.Helper()
	var item *queue.Item
	at(store, updated, func() {
		item = testsupport.SeedItem(t, store, topic, status)
		for i := 0; i < revisions; i++ {
			if _, err := store.IncrementRevision(context.Background(), item.ID, "gate failed"); err != nil {
				t.Fatalf("IncrementRevision failed: %v", err)
			}
		}
	})
	return item
}

func TestRecoverStaleClaimsReleasesOldClaim(t *testing.T) {
	morgan, store := newMorgan(t)
	ctx := context.Background()
	now := time.Now().UTC()

	item := testsupport.SeedItem(t, store, "stale", queue.StatusWriting)
	at(store, now.Add(-60*time.Minute), func() {
		if ok, err := store.AttemptClaim(ctx, item.ID, queue.ClaimWriting, "worker-1", 0); err != nil || !ok {
			t.Fatalf("AttemptClaim failed: ok=%v err=%v", ok, err)
		}
	})
	fresh := testsupport.SeedItem(t, store, "fresh", queue.StatusReview)
	at(store, now.Add(-10*time.Minute), func() {
		if ok, err := store.AttemptClaim(ctx, fresh.ID, queue.ClaimReview, "editor-abc", 0); err != nil || !ok {
			t.Fatalf("AttemptClaim failed: ok=%v err=%v", ok, err)
		}
	})

	recoveries, err := morgan.RecoverStaleClaims(ctx, now)
	if err != nil {
		t.Fatalf("RecoverStaleClaims failed: %v", err)
	}
	if len(recoveries) != 1 {
		t.Fatalf("expected exactly one recovery, got %+v", recoveries)
	}
	want := monitor.Recovery{ItemID: item.ID, Action: "stale_claim_released", PreviousWorker: "worker-1", PreviousStage: "writing", Status: "writing"}
	if recoveries[0] != want {
		t.Fatalf("unexpected recovery %+v", recoveries[0])
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Claimed() || got.ClaimedAt != nil || got.ClaimStage != "" || got.ClaimExpiresAt != nil {
		t.Fatalf("expected claim fields cleared, got %+v", got)
	}
	if got.Status != queue.StatusWriting {
		t.Fatalf("expected status untouched, got %s", got.Status)
	}
	if still, _ := store.GetByID(ctx, fresh.ID); still.ClaimedBy != "editor-abc" {
		t.Fatalf("expected fresh claim intact, got %+v", still)
	}

	entries, err := store.AuditEntries(ctx, monitor.ActionStaleClaimsRecovered, 0)
	if err != nil {
		t.Fatalf("AuditEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Actor != "morgan" || entries[0].ResourceType != "pipeline" {
		t.Fatalf("unexpected audit entries %+v", entries)
	}
	if count, _ := entries[0].Detail["count"].(float64); count != 1 {
		t.Fatalf("expected audit count 1, got %v", entries[0].Detail)
	}
}

func TestRecoverStaleClaimsWithoutStaleItemsWritesNoAudit(t *testing.T) {
	morgan, store := newMorgan(t)
	ctx := context.Background()

	recoveries, err := morgan.RecoverStaleClaims(ctx, time.Now())
	if err != nil || len(recoveries) != 0 {
		t.Fatalf("expected no recoveries, got %v (err %v)", recoveries, err)
	}
	entries, err := store.AuditEntries(ctx, "", 0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no audit entries, got %d (err %v)", len(entries), err)
	}
}

func TestResetErroredItemsFollowsRoutes(t *testing.T) {
	morgan, store := newMorgan(t)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-2 * time.Hour)

	writing := seedErrored(t, store, "writing", queue.StatusWriting, old, 1)
	review := seedErrored(t, store, "review", queue.StatusReview, old, 1)
	ready := seedErrored(t, store, "ready", queue.StatusReadyToPublish, old, 1)
	recent := seedErrored(t, store, "recent", queue.StatusReview, now.Add(-5*time.Minute), 1)
	exhausted := seedErrored(t, store, "exhausted", queue.StatusReview, old, queue.DefaultMaxRevisions+2)
	held := seedErrored(t, store, "held", queue.StatusWriting, old, 1)
	at(store, old, func() {
		if ok, err := store.AttemptClaim(ctx, held.ID, queue.ClaimWriting, "writer-1", 0); err != nil || !ok {
			t.Fatalf("AttemptClaim failed: ok=%v err=%v", ok, err)
		}
	})

	resets, err := morgan.ResetErroredItems(ctx, now)
	if err != nil {
		t.Fatalf("ResetErroredItems failed: %v", err)
	}
	if len(resets) != 3 {
		t.Fatalf("expected three resets, got %+v", resets)
	}

	wantStatus := map[int64]queue.Status{
		writing.ID:   queue.StatusTodo,
		review.ID:    queue.StatusTodo,
		ready.ID:     queue.StatusBacklog,
		recent.ID:    queue.StatusReview,
		exhausted.ID: queue.StatusReview,
		held.ID:      queue.StatusWriting,
	}
	for id, want := range wantStatus {
		got, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.Status != want {
			t.Fatalf("item %d: expected %s, got %s", id, want, got.Status)
		}
	}

	for _, reset := range resets {
		if reset.Action != "error_reset" || reset.PreviousError != "gate failed" || reset.RevisionCount != 1 {
			t.Fatalf("unexpected reset record %+v", reset)
		}
		got, _ := store.GetByID(ctx, reset.ItemID)
		if got.LastError != "" {
			t.Fatalf("expected last_error cleared on item %d, got %q", reset.ItemID, got.LastError)
		}
	}
	if resets[2].FromStatus != "ready_to_publish" || resets[2].ToStatus != "backlog" {
		t.Fatalf("unexpected ready reset %+v", resets[2])
	}

	entries, err := store.AuditEntries(ctx, monitor.ActionErroredItemsReset, 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one reset audit entry, got %d (err %v)", len(entries), err)
	}
}

func TestGenerateHealthReportGrades(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("healthy when empty", func(t *testing.T) {
		morgan, _ := newMorgan(t)
		report, err := morgan.GenerateHealthReport(ctx, now)
		if err != nil {
			t.Fatalf("GenerateHealthReport failed: %v", err)
		}
		if report.Status != monitor.Healthy || !report.CheckedAt.Equal(now) {
			t.Fatalf("unexpected report %+v", report)
		}
	})

	t.Run("degraded with one errored item", func(t *testing.T) {
		morgan, store := newMorgan(t)
		seedErrored(t, store, "one", queue.StatusTodo, now, 1)
		report, err := morgan.GenerateHealthReport(ctx, now)
		if err != nil {
			t.Fatalf("GenerateHealthReport failed: %v", err)
		}
		if report.Status != monitor.Degraded || report.ErroredItems != 1 || report.Overview.Total != 1 {
			t.Fatalf("unexpected report %+v", report)
		}
	})

	t.Run("degraded with stuck item", func(t *testing.T) {
		morgan, store := newMorgan(t)
		at(store, now.Add(-5*time.Hour), func() {
			testsupport.SeedItem(t, store, "stuck", queue.StatusPublished)
		})
		testsupport.SeedItem(t, store, "parked", queue.StatusBacklog)
		report, err := morgan.GenerateHealthReport(ctx, now)
		if err != nil {
			t.Fatalf("GenerateHealthReport failed: %v", err)
		}
		if report.Status != monitor.Degraded || report.StuckItems != 1 {
			t.Fatalf("unexpected report %+v", report)
		}
	})

	t.Run("unhealthy at error threshold", func(t *testing.T) {
		morgan, store := newMorgan(t)
		for _, topic := range []string{"a", "b", "c"} {
			seedErrored(t, store, topic, queue.StatusReview, now, 1)
		}
		seedErrored(t, store, "ignored", queue.StatusBacklog, now, 1)
		report, err := morgan.GenerateHealthReport(ctx, now)
		if err != nil {
			t.Fatalf("GenerateHealthReport failed: %v", err)
		}
		if report.Status != monitor.Unhealthy || report.ErroredItems != 3 {
			t.Fatalf("unexpected report %+v", report)
		}
	})

	t.Run("unhealthy with stale claim", func(t *testing.T) {
		morgan, store := newMorgan(t)
		item := testsupport.SeedItem(t, store, "claimed", queue.StatusTodo)
		at(store, now.Add(-45*time.Minute), func() {
			if ok, err := store.AttemptClaim(ctx, item.ID, queue.ClaimWriting, "writer-1", 0); err != nil || !ok {
				t.Fatalf("AttemptClaim failed: ok=%v err=%v", ok, err)
			}
		})
		report, err := morgan.GenerateHealthReport(ctx, now)
		if err != nil {
			t.Fatalf("GenerateHealthReport failed: %v", err)
		}
		if report.Status != monitor.Unhealthy || report.StaleClaims != 1 || report.Overview.Claimed != 1 {
			t.Fatalf("unexpected report %+v", report)
		}
	})
}

func TestRunSummarisesAndAlerts(t *testing.T) {
	notifier := &recordingNotifier{}
	morgan, store := newMorgan(t, monitor.WithNotifier(notifier))
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-2 * time.Hour)

	for _, topic := range []string{"a", "b", "c"} {
		seedErrored(t, store, topic, queue.StatusReview, now, 1)
	}
	seedErrored(t, store, "to reset", queue.StatusWriting, old, 1)

	summary, err := morgan.Run(ctx, now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.ErroredItemsReset != 1 || summary.StaleClaimsRecovered != 0 || len(summary.Resets) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	// The reset item moved to todo and lost its error, leaving three errored.
	if summary.Health.Status != monitor.Unhealthy || summary.Health.ErroredItems != 3 {
		t.Fatalf("unexpected health %+v", summary.Health)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventPipelineUnhealthy {
		t.Fatalf("expected one unhealthy alert, got %v", notifier.events)
	}
	if notifier.payloads[0]["errored_items"] != 3 {
		t.Fatalf("unexpected alert payload %v", notifier.payloads[0])
	}
}

func TestRunRecoversAndResetsStaleClaimedErroredItem(t *testing.T) {
	morgan, store := newMorgan(t)
	ctx := context.Background()
	now := time.Now().UTC()

	item := seedErrored(t, store, "crashed editor", queue.StatusReview, now.Add(-2*time.Hour), 1)
	at(store, now.Add(-time.Hour), func() {
		if ok, err := store.AttemptClaim(ctx, item.ID, queue.ClaimReview, "editor-dead", 0); err != nil || !ok {
			t.Fatalf("AttemptClaim failed: ok=%v err=%v", ok, err)
		}
	})

	summary, err := morgan.Run(ctx, now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.StaleClaimsRecovered != 1 || summary.ErroredItemsReset != 1 {
		t.Fatalf("expected recovery and reset in one pass, got %+v", summary)
	}
	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusTodo || got.Claimed() || got.LastError != "" {
		t.Fatalf("expected unclaimed todo item without error, got %+v", got)
	}
}

func TestRunHealthyPipelineSendsNoAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	morgan, _ := newMorgan(t, monitor.WithNotifier(notifier))
	summary, err := morgan.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Health.Status != monitor.Healthy || len(notifier.events) != 0 {
		t.Fatalf("unexpected run result %+v alerts=%v", summary, notifier.events)
	}
}
