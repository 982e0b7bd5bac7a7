package testsupport

import (
	"context"
	"testing"

	"autoposter/internal/config"
	"autoposter/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

var happyPath = []queue.Status{
	queue.StatusBacklog,
	queue.StatusTodo,
	queue.StatusWriting,
	queue.StatusReview,
	queue.StatusReadyToPublish,
	queue.StatusPublished,
	queue.StatusAmplified,
	queue.StatusDone,
}

// SeedItem creates an item for topic and walks it along the happy path to status.
func SeedItem(t testing.TB, store *queue.Store, topic string, status queue.Status) *queue.Item {
	t.Helper()

	ctx := context.Background()
	item, err := store.CreateItem(ctx, queue.NewItem{
		TopicKeyword: topic,
		PillarTheme:  "Adtech fundamentals and market dynamics",
		SubTheme:     "Programmatic buying",
	})
	if err != nil {
		t.Fatalf("store.CreateItem: %v", err)
	}
	for i := 1; i < len(happyPath) && item.Status != status; i++ {
		item, err = store.Transition(ctx, item.ID, happyPath[i-1], happyPath[i])
		if err != nil {
			t.Fatalf("seed transition %s -> %s: %v", happyPath[i-1], happyPath[i], err)
		}
	}
	if item.Status != status {
		t.Fatalf("seed item: could not reach %s", status)
	}
	return item
}

// SeedDraft stores a draft and links it to the item.
func SeedDraft(t testing.TB, store *queue.Store, itemID int64, body string) *queue.Draft {
	t.Helper()

	ctx := context.Background()
	draft, err := store.CreateDraft(ctx, queue.Draft{
		PillarTheme: "Adtech fundamentals and market dynamics",
		SubTheme:    "Programmatic buying",
		ContentBody: body,
	})
	if err != nil {
		t.Fatalf("store.CreateDraft: %v", err)
	}
	if err := store.AttachDraft(ctx, itemID, draft.ID); err != nil {
		t.Fatalf("store.AttachDraft: %v", err)
	}
	return draft
}
