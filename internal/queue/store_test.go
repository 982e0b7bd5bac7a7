package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autoposter/internal/queue"
	"autoposter/internal/testsupport"
)

func TestCreateItemDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.CreateItem(ctx, queue.NewItem{TopicKeyword: "  retail media budgets  ", PillarTheme: "Adtech"})
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusBacklog {
		t.Fatalf("expected backlog status, got %s", item.Status)
	}
	if item.RevisionCount != 0 || item.MaxRevisions != queue.DefaultMaxRevisions {
		t.Fatalf("unexpected revision fields: %d/%d", item.RevisionCount, item.MaxRevisions)
	}
	if item.TopicKeyword != "retail media budgets" {
		t.Fatalf("expected trimmed topic, got %q", item.TopicKeyword)
	}
	if item.Claimed() || item.ClaimedAt != nil || item.ClaimExpiresAt != nil {
		t.Fatalf("expected unclaimed item, got %#v", item)
	}

	missing, err := store.GetByID(ctx, 9999)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing item, got %#v", missing)
	}
}

func TestCanTransitionMatchesGraph(t *testing.T) {
	allowed := make(map[[2]queue.Status]bool)
	for _, pair := range [][2]queue.Status{
		{queue.StatusBacklog, queue.StatusTodo},
		{queue.StatusTodo, queue.StatusWriting},
		{queue.StatusTodo, queue.StatusBacklog},
		{queue.StatusWriting, queue.StatusReview},
		{queue.StatusWriting, queue.StatusTodo},
		{queue.StatusWriting, queue.StatusBacklog},
		{queue.StatusReview, queue.StatusReadyToPublish},
		{queue.StatusReview, queue.StatusTodo},
		{queue.StatusReview, queue.StatusBacklog},
		{queue.StatusReadyToPublish, queue.StatusPublished},
		{queue.StatusReadyToPublish, queue.StatusBacklog},
		{queue.StatusPublished, queue.StatusAmplified},
		{queue.StatusAmplified, queue.StatusDone},
	} {
		allowed[pair] = true
	}
	for _, from := range queue.AllStatuses() {
		for _, to := range queue.AllStatuses() {
			want := allowed[[2]queue.Status{from, to}]
			if got := queue.CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
	if next := queue.AllowedTransitions(queue.StatusDone); len(next) != 0 {
		t.Fatalf("done must be terminal, got %v", next)
	}
	if queue.CanTransition("bogus", queue.StatusTodo) {
		t.Fatal("unknown status must not transition")
	}
}

func TestTransitionRejectsInvalidPairWithoutWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.SeedItem(t, store, "invalid pair", queue.StatusBacklog)
	_, err := store.Transition(ctx, item.ID, queue.StatusBacklog, queue.StatusPublished)
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	after, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if after.Status != queue.StatusBacklog || !after.UpdatedAt.Equal(item.UpdatedAt) {
		t.Fatalf("expected untouched item, got status=%s updated=%s", after.Status, after.UpdatedAt)
	}
}

func TestTransitionDetectsConcurrentModification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.SeedItem(t, store, "race", queue.StatusReview)
	moved, err := store.Transition(ctx, item.ID, queue.StatusReview, queue.StatusReadyToPublish)
	if err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	if moved.Status != queue.StatusReadyToPublish {
		t.Fatalf("expected refreshed item, got %s", moved.Status)
	}

	_, err = store.Transition(ctx, item.ID, queue.StatusReview, queue.StatusTodo)
	if !errors.Is(err, queue.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
	var terr *queue.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if terr.Actual != queue.StatusReadyToPublish || terr.From != queue.StatusReview {
		t.Fatalf("unexpected transition error detail: %+v", terr)
	}
}

func TestTransitionMissingItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Transition(context.Background(), 4242, queue.StatusBacklog, queue.StatusTodo)
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncrementRevisionIsMonotonic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.SeedItem(t, store, "revisions", queue.StatusReview)
	for i := 1; i <= 3; i++ {
		updated, err := store.IncrementRevision(ctx, item.ID, "gate failed")
		if err != nil {
			t.Fatalf("IncrementRevision failed: %v", err)
		}
		if updated.RevisionCount != i {
			t.Fatalf("expected revision %d, got %d", i, updated.RevisionCount)
		}
		if updated.LastError != "gate failed" {
			t.Fatalf("expected last error recorded, got %q", updated.LastError)
		}
		if wantExceeded := i >= 3; updated.ExceededMaxRevisions() != wantExceeded {
			t.Fatalf("revision %d: ExceededMaxRevisions = %v", i, updated.ExceededMaxRevisions())
		}
	}

	if err := store.ClearLastError(ctx, item.ID); err != nil {
		t.Fatalf("ClearLastError failed: %v", err)
	}
	cleared, _ := store.GetByID(ctx, item.ID)
	if cleared.LastError != "" || cleared.RevisionCount != 3 {
		t.Fatalf("expected cleared error with revision kept, got %q/%d", cleared.LastError, cleared.RevisionCount)
	}

	if _, err := store.IncrementRevision(ctx, 777, "x"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing item, got %v", err)
	}
}

func TestClaimLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.SeedItem(t, store, "claims", queue.StatusTodo)

	ok, err := store.AttemptClaim(ctx, item.ID, queue.ClaimWriting, "writer-aaaa0001", 0)
	if err != nil || !ok {
		t.Fatalf("expected first claim to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = store.AttemptClaim(ctx, item.ID, queue.ClaimWriting, "writer-bbbb0002", 0)
	if err != nil || ok {
		t.Fatalf("expected second claim to lose, ok=%v err=%v", ok, err)
	}

	claimed, _ := store.GetByID(ctx, item.ID)
	if claimed.ClaimedBy != "writer-aaaa0001" || claimed.ClaimStage != queue.ClaimWriting || claimed.ClaimedAt == nil {
		t.Fatalf("unexpected claim fields: %#v", claimed)
	}
	if claimed.ClaimExpiresAt == nil || claimed.ClaimExpiresAt.Sub(*claimed.ClaimedAt) != queue.DefaultClaimTTL {
		t.Fatalf("expected default ttl on claim expiry, got %v", claimed.ClaimExpiresAt)
	}

	if held, _ := store.VerifyClaim(ctx, item.ID, queue.ClaimWriting, "writer-aaaa0001"); !held {
		t.Fatal("expected holder to verify")
	}
	if held, _ := store.VerifyClaim(ctx, item.ID, queue.ClaimWriting, "writer-bbbb0002"); held {
		t.Fatal("expected other worker to fail verification")
	}
	if held, _ := store.VerifyClaim(ctx, item.ID, queue.ClaimReview, "writer-aaaa0001"); held {
		t.Fatal("expected stage mismatch to fail verification")
	}

	if released, _ := store.ReleaseClaim(ctx, item.ID, queue.ClaimReview); released {
		t.Fatal("expected release with wrong stage to be a no-op")
	}
	if released, _ := store.ReleaseClaim(ctx, item.ID, queue.ClaimWriting); !released {
		t.Fatal("expected release to match")
	}
	after, _ := store.GetByID(ctx, item.ID)
	if after.Claimed() || after.ClaimedAt != nil || after.ClaimStage != "" || after.ClaimExpiresAt != nil {
		t.Fatalf("expected all claim fields cleared, got %#v", after)
	}

	if _, err := store.AttemptClaim(ctx, item.ID, "bogus", "writer-x", 0); err == nil {
		t.Fatal("expected unknown stage to be rejected")
	}
}

func TestAttemptClaimSingleWinnerUnderContention(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.SeedItem(t, store, "contention", queue.StatusReview)

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		fails []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := store.AttemptClaim(ctx, item.ID, queue.ClaimReview, "editor-"+string(rune('a'+n)), time.Minute)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails = append(fails, err)
				return
			}
			if ok {
				wins++
			}
		}(i)
	}
	wg.Wait()

	if len(fails) > 0 {
		t.Fatalf("unexpected claim errors: %v", fails)
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestFindStaleClaimsAndForceRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })

	old := testsupport.SeedItem(t, store, "old claim", queue.StatusReview)
	if ok, _ := store.AttemptClaim(ctx, old.ID, queue.ClaimReview, "editor-old", 0); !ok {
		t.Fatal("expected claim on old item")
	}

	store.SetClock(func() time.Time { return base.Add(40 * time.Minute) })
	fresh := testsupport.SeedItem(t, store, "fresh claim", queue.StatusReview)
	if ok, _ := store.AttemptClaim(ctx, fresh.ID, queue.ClaimReview, "editor-new", 0); !ok {
		t.Fatal("expected claim on fresh item")
	}

	stale, err := store.FindStaleClaims(ctx, base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("FindStaleClaims failed: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != old.ID {
		t.Fatalf("expected only the old claim to be stale, got %d items", len(stale))
	}

	boundary, err := store.FindStaleClaims(ctx, base)
	if err != nil || len(boundary) != 1 {
		t.Fatalf("expected cutoff to be inclusive, got %d (err=%v)", len(boundary), err)
	}

	if released, err := store.ForceReleaseClaim(ctx, old.ID); err != nil || !released {
		t.Fatalf("expected force release, got %v/%v", released, err)
	}
	if released, _ := store.ForceReleaseClaim(ctx, old.ID); released {
		t.Fatal("expected second force release to be a no-op")
	}
	after, _ := store.GetByID(ctx, old.ID)
	if after.Claimed() || after.Status != queue.StatusReview {
		t.Fatalf("expected unclaimed review item, got %#v", after)
	}
}

func TestOverviewCountsStatusesAndClaims(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, "a", queue.StatusBacklog)
	testsupport.SeedItem(t, store, "b", queue.StatusBacklog)
	review := testsupport.SeedItem(t, store, "c", queue.StatusReview)
	testsupport.SeedItem(t, store, "d", queue.StatusDone)
	if ok, _ := store.AttemptClaim(ctx, review.ID, queue.ClaimReview, "editor-1", 0); !ok {
		t.Fatal("expected claim")
	}

	overview, err := store.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if overview.Total != 4 || overview.Claimed != 1 {
		t.Fatalf("unexpected totals: %+v", overview)
	}
	if overview.Counts[queue.StatusBacklog] != 2 || overview.Counts[queue.StatusReview] != 1 || overview.Counts[queue.StatusDone] != 1 {
		t.Fatalf("unexpected counts: %v", overview.Counts)
	}
	if _, ok := overview.Counts[queue.StatusAmplified]; !ok {
		t.Fatal("expected every status present in counts")
	}

	if n, _ := store.CountByStatus(ctx, queue.StatusBacklog); n != 2 {
		t.Fatalf("expected 2 backlog items, got %d", n)
	}
	if inFlight, _ := store.TopicInFlight(ctx, "c"); !inFlight {
		t.Fatal("expected review topic to be in flight")
	}
	if inFlight, _ := store.TopicInFlight(ctx, "d"); inFlight {
		t.Fatal("expected done topic to be free")
	}
}

func TestErroredAndStuckSelections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })

	errored := testsupport.SeedItem(t, store, "errored", queue.StatusWriting)
	if _, err := store.IncrementRevision(ctx, errored.ID, "generation timeout"); err != nil {
		t.Fatalf("IncrementRevision failed: %v", err)
	}
	testsupport.SeedItem(t, store, "quiet", queue.StatusTodo)
	backlogErr := testsupport.SeedItem(t, store, "backlog error", queue.StatusBacklog)
	if _, err := store.IncrementRevision(ctx, backlogErr.ID, "ceiling"); err != nil {
		t.Fatalf("IncrementRevision failed: %v", err)
	}

	list, err := store.ErroredItems(ctx)
	if err != nil || len(list) != 1 || list[0].ID != errored.ID {
		t.Fatalf("expected only writing item errored, got %d (err=%v)", len(list), err)
	}

	recent, err := store.ErroredSince(ctx, queue.StatusWriting, base.Add(-time.Minute))
	if err != nil || len(recent) != 0 {
		t.Fatalf("expected no errored items before cutoff, got %d (err=%v)", len(recent), err)
	}
	aged, err := store.ErroredSince(ctx, queue.StatusWriting, base.Add(time.Hour))
	if err != nil || len(aged) != 1 {
		t.Fatalf("expected aged errored item, got %d (err=%v)", len(aged), err)
	}

	stuck, err := store.StuckItems(ctx, base.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("StuckItems failed: %v", err)
	}
	if len(stuck) != 2 {
		t.Fatalf("expected writing and todo items stuck, got %d", len(stuck))
	}
}

func TestListFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.SeedItem(t, store, "first", queue.StatusTodo)
	second := testsupport.SeedItem(t, store, "second", queue.StatusTodo)
	testsupport.SeedItem(t, store, "third", queue.StatusTodo)
	testsupport.SeedItem(t, store, "other", queue.StatusReview)
	if ok, _ := store.AttemptClaim(ctx, first.ID, queue.ClaimWriting, "writer-1", 0); !ok {
		t.Fatal("expected claim")
	}

	items, err := store.Unclaimed(ctx, queue.StatusTodo, 1)
	if err != nil {
		t.Fatalf("Unclaimed failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != second.ID {
		t.Fatalf("expected oldest unclaimed todo item, got %+v", items)
	}

	all, err := store.List(ctx, queue.ListFilter{Statuses: []queue.Status{queue.StatusTodo, queue.StatusReview}})
	if err != nil || len(all) != 4 {
		t.Fatalf("expected four listed items, got %d (err=%v)", len(all), err)
	}
}

func TestSourcesDedupeAndRecency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base.Add(-10 * 24 * time.Hour) })
	if _, err := store.AddSource(ctx, queue.SourceMaterial{SourceName: "feed", Title: "Old", URL: "https://example.com/old", RelevanceScore: 9}); err != nil {
		t.Fatalf("AddSource failed: %v", err)
	}

	store.SetClock(func() time.Time { return base })
	inserted, err := store.AddSource(ctx, queue.SourceMaterial{SourceName: "feed", Title: "Low", URL: "https://example.com/low", RelevanceScore: 1})
	if err != nil || !inserted {
		t.Fatalf("expected insert, got %v/%v", inserted, err)
	}
	if _, err := store.AddSource(ctx, queue.SourceMaterial{SourceName: "feed", Title: "High", URL: "https://example.com/high", RelevanceScore: 5, PillarTheme: "Adtech"}); err != nil {
		t.Fatalf("AddSource failed: %v", err)
	}
	dup, err := store.AddSource(ctx, queue.SourceMaterial{SourceName: "feed", Title: "High again", URL: "https://example.com/high"})
	if err != nil || dup {
		t.Fatalf("expected duplicate url to be ignored, got %v/%v", dup, err)
	}

	recent, err := store.RecentSources(ctx, base.Add(-7*24*time.Hour), 20)
	if err != nil {
		t.Fatalf("RecentSources failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Title != "High" || recent[1].Title != "Low" {
		t.Fatalf("expected relevance ordering without old source, got %+v", recent)
	}
	if recent[0].PillarTheme != "Adtech" {
		t.Fatalf("expected pillar preserved, got %q", recent[0].PillarTheme)
	}

	byPillar, err := store.SourcesForPillar(ctx, "Adtech", 3)
	if err != nil {
		t.Fatalf("SourcesForPillar failed: %v", err)
	}
	if len(byPillar) != 1 || byPillar[0].Title != "High" {
		t.Fatalf("expected pillar filter, got %+v", byPillar)
	}
}

func TestDraftsAndPosts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.SeedItem(t, store, "post", queue.StatusReadyToPublish)
	draft := testsupport.SeedDraft(t, store, item.ID, "Supply path optimisation in five steps")

	fetched, err := store.GetDraft(ctx, draft.ID)
	if err != nil || fetched == nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if fetched.Format != queue.FormatText || fetched.Tone != queue.ToneEducational {
		t.Fatalf("expected default format/tone, got %s/%s", fetched.Format, fetched.Tone)
	}
	linked, _ := store.GetByID(ctx, item.ID)
	if linked.DraftID == nil || *linked.DraftID != draft.ID {
		t.Fatalf("expected draft linked, got %v", linked.DraftID)
	}

	when := time.Date(2026, 3, 3, 9, 15, 0, 0, time.UTC)
	post, err := store.CreatePublishedPost(ctx, queue.PublishedPost{
		DraftID: draft.ID, PipelineItemID: item.ID, ContentBody: draft.ContentBody,
		Format: draft.Format, Tone: draft.Tone, ScheduledTime: when,
	})
	if err != nil {
		t.Fatalf("CreatePublishedPost failed: %v", err)
	}
	if err := store.MarkManualPublishNotified(ctx, post.ID, when); err != nil {
		t.Fatalf("MarkManualPublishNotified failed: %v", err)
	}
	got, err := store.PostForItem(ctx, item.ID)
	if err != nil || got == nil {
		t.Fatalf("PostForItem failed: %v", err)
	}
	if !got.ScheduledTime.Equal(when) || got.ManualPublishNotifiedAt == nil {
		t.Fatalf("unexpected post: %+v", got)
	}

	if _, err := store.CreateDraft(ctx, queue.Draft{ContentBody: "   "}); err == nil {
		t.Fatal("expected empty draft to be rejected")
	}
}

func TestSettingsDefaultAndSave(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	settings, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.PipelineMode != "legacy" || settings.KillSwitch || !settings.PostingEnabled {
		t.Fatalf("unexpected default settings: %+v", settings)
	}

	settings.PipelineMode = "shadow"
	settings.KillSwitch = true
	if err := store.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	reloaded, _ := store.LoadSettings(ctx)
	if reloaded.PipelineMode != "shadow" || !reloaded.KillSwitch {
		t.Fatalf("expected persisted settings, got %+v", reloaded)
	}
}

func TestAuditAndNotificationLogs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.RecordAudit(ctx, queue.AuditEntry{
		Actor: "morgan", Action: "pipeline.stale_claims_recovered", ResourceType: "pipeline",
		Detail: map[string]any{"count": 2},
	}); err != nil {
		t.Fatalf("RecordAudit failed: %v", err)
	}
	entries, err := store.AuditEntries(ctx, "pipeline.stale_claims_recovered", 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d (err=%v)", len(entries), err)
	}
	if entries[0].Detail["count"] != float64(2) {
		t.Fatalf("unexpected audit detail: %v", entries[0].Detail)
	}

	if err := store.RecordNotification(ctx, queue.NotificationRecord{
		Channel: "webhook", EventType: "post.publish_ready", Success: false,
		ErrorMessage: "HTTP 500: boom", Payload: map[string]any{"_status_code": 500},
	}); err != nil {
		t.Fatalf("RecordNotification failed: %v", err)
	}
	records, err := store.NotificationRecords(ctx, "webhook", 0)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one notification record, got %d (err=%v)", len(records), err)
	}
	if records[0].Success || records[0].ErrorMessage != "HTTP 500: boom" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
	if health.SchemaVersion != 1 {
		t.Fatalf("expected schema version 1, got %d", health.SchemaVersion)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	item := testsupport.SeedItem(t, store, "persisted", queue.StatusTodo)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	got, err := reopened.GetByID(context.Background(), item.ID)
	if err != nil || got == nil || got.Status != queue.StatusTodo {
		t.Fatalf("expected persisted item, got %#v (err=%v)", got, err)
	}
}

func TestClaimCycleLeavesUpdatedAtAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })
	item := testsupport.SeedItem(t, store, "untouched", queue.StatusReview)

	store.SetClock(func() time.Time { return base.Add(2 * time.Hour) })
	if ok, err := store.AttemptClaim(ctx, item.ID, queue.ClaimReview, "editor-1", time.Minute); err != nil || !ok {
		t.Fatalf("AttemptClaim failed: ok=%v err=%v", ok, err)
	}
	if ok, err := store.ReleaseClaim(ctx, item.ID, queue.ClaimReview); err != nil || !ok {
		t.Fatalf("ReleaseClaim failed: ok=%v err=%v", ok, err)
	}
	if ok, err := store.AttemptClaim(ctx, item.ID, queue.ClaimReview, "editor-2", time.Minute); err != nil || !ok {
		t.Fatalf("second AttemptClaim failed: ok=%v err=%v", ok, err)
	}
	if ok, err := store.ForceReleaseClaim(ctx, item.ID); err != nil || !ok {
		t.Fatalf("ForceReleaseClaim failed: ok=%v err=%v", ok, err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.UpdatedAt.Equal(item.UpdatedAt) {
		t.Fatalf("expected updated_at %v after claim cycle, got %v", item.UpdatedAt, got.UpdatedAt)
	}
	if got.Claimed() {
		t.Fatalf("expected claim released, got %+v", got)
	}
}
