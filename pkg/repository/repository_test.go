package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestNewCreatesSchema(t *testing.T) {
	repo := setupTestDB(t)

	for _, table := range []string{"feed", "item", "fetchlog", "item_fts"} {
		var count int
		err := repo.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("table %q not created", table)
		}
	}
}

func TestAddFeedThenGetByURL(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	feed, err := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	if feed.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if feed.BackoffMultiplier != 1.0 {
		t.Errorf("BackoffMultiplier = %v, want 1.0", feed.BackoffMultiplier)
	}

	got, err := repo.GetFeedByURL(ctx, "https://example.com/feed")
	if err != nil {
		t.Fatalf("GetFeedByURL() error = %v", err)
	}
	if got.Name != "Example" {
		t.Errorf("Name = %q, want %q", got.Name, "Example")
	}
}

func TestAddFeedIsIdempotentByURL(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	first, err := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	second, err := repo.AddFeed(ctx, "Example Renamed", "https://example.com/feed", 7200)
	if err != nil {
		t.Fatalf("AddFeed() second call error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same feed ID on re-add, got %d and %d", first.ID, second.ID)
	}
	if second.IntervalSeconds != 7200 {
		t.Errorf("IntervalSeconds = %d, want 7200 after re-add", second.IntervalSeconds)
	}
}

func TestAcquireFeedLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	ok, err := repo.AcquireFeedLock(ctx, feed.ID)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = repo.AcquireFeedLock(ctx, feed.ID)
	if err != nil {
		t.Fatalf("second acquire error = %v", err)
	}
	if ok {
		t.Error("second acquire should fail while lock is held")
	}

	if err := repo.ReleaseFeedLock(ctx, feed.ID); err != nil {
		t.Fatalf("ReleaseFeedLock() error = %v", err)
	}

	ok, err = repo.AcquireFeedLock(ctx, feed.ID)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestUpdateFeedStatusLeavesValidatorsAloneWhenEmpty(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	if err := repo.UpdateFeedStatus(ctx, feed.ID, StatusSuccess, `"etag1"`, "Mon, 02 Jan 2006 15:04:05 GMT"); err != nil {
		t.Fatalf("UpdateFeedStatus() error = %v", err)
	}
	if err := repo.UpdateFeedStatus(ctx, feed.ID, StatusNotModified, "", ""); err != nil {
		t.Fatalf("UpdateFeedStatus() second call error = %v", err)
	}

	got, _ := repo.GetFeed(ctx, feed.ID)
	if got.ETag != `"etag1"` {
		t.Errorf("ETag = %q, want it unchanged from first call", got.ETag)
	}
	if got.LastFetchStatus != StatusNotModified {
		t.Errorf("LastFetchStatus = %q, want %q", got.LastFetchStatus, StatusNotModified)
	}
}

func TestUpdateAdaptiveBackoffFormula(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	for i := 0; i < 10; i++ {
		if err := repo.UpdateAdaptiveBackoff(ctx, feed.ID, false); err != nil {
			t.Fatalf("UpdateAdaptiveBackoff() error = %v", err)
		}
	}

	got, _ := repo.GetFeed(ctx, feed.ID)
	if got.ConsecutiveErrors != 10 {
		t.Errorf("ConsecutiveErrors = %d, want 10", got.ConsecutiveErrors)
	}
	if got.BackoffMultiplier != 4.0 {
		t.Errorf("BackoffMultiplier = %v, want capped at 4.0", got.BackoffMultiplier)
	}

	if err := repo.UpdateAdaptiveBackoff(ctx, feed.ID, true); err != nil {
		t.Fatalf("UpdateAdaptiveBackoff(success) error = %v", err)
	}
	got, _ = repo.GetFeed(ctx, feed.ID)
	if got.ConsecutiveErrors != 0 || got.BackoffMultiplier != 1.0 {
		t.Errorf("expected reset after success, got errors=%d multiplier=%v", got.ConsecutiveErrors, got.BackoffMultiplier)
	}
}

func TestCheckAndDegradeFeeds(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	stale := time.Now().UTC().Add(-48 * time.Hour)
	if err := repo.UpdateFeedPublishedTime(ctx, feed.ID, stale); err != nil {
		t.Fatalf("UpdateFeedPublishedTime() error = %v", err)
	}

	n, err := repo.CheckAndDegradeFeeds(ctx, 24)
	if err != nil {
		t.Fatalf("CheckAndDegradeFeeds() error = %v", err)
	}
	if n != 1 {
		t.Errorf("degraded count = %d, want 1", n)
	}

	got, _ := repo.GetFeed(ctx, feed.ID)
	if !got.Degraded {
		t.Error("expected feed to be degraded")
	}

	// a fresh published time clears degraded.
	if err := repo.UpdateFeedPublishedTime(ctx, feed.ID, time.Now().UTC()); err != nil {
		t.Fatalf("UpdateFeedPublishedTime() error = %v", err)
	}
	got, _ = repo.GetFeed(ctx, feed.ID)
	if got.Degraded {
		t.Error("expected degraded to clear after a fresh item")
	}
}

func TestAddItemsDeduplicatesByGUID(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	items := []Item{
		{FeedID: feed.ID, Title: "A", Link: "https://example.com/a", GUID: "guid-a"},
		{FeedID: feed.ID, Title: "B", Link: "https://example.com/b", GUID: "guid-b"},
	}
	n, err := repo.AddItems(ctx, items, 0)
	if err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("new count = %d, want 2", n)
	}

	n, err = repo.AddItems(ctx, items, 0)
	if err != nil {
		t.Fatalf("AddItems() second call error = %v", err)
	}
	if n != 0 {
		t.Errorf("new count on re-add = %d, want 0", n)
	}

	total, err := repo.CountItems(ctx)
	if err != nil {
		t.Fatalf("CountItems() error = %v", err)
	}
	if total != 2 {
		t.Errorf("CountItems() = %d, want 2", total)
	}
}

func TestAddItemsEnforcesCapByEvictingOldest(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	base := time.Now().UTC().Add(-24 * time.Hour)
	items := []Item{
		{FeedID: feed.ID, Title: "oldest", Link: "https://example.com/1", GUID: "g1", Published: base},
		{FeedID: feed.ID, Title: "middle", Link: "https://example.com/2", GUID: "g2", Published: base.Add(time.Hour)},
		{FeedID: feed.ID, Title: "newest", Link: "https://example.com/3", GUID: "g3", Published: base.Add(2 * time.Hour)},
	}

	if _, err := repo.AddItems(ctx, items, 2); err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}

	got, err := repo.GetItems(ctx, GetItemsOptions{Limit: 10})
	if err != nil {
		t.Fatalf("GetItems() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(items) = %d, want 2 after cap eviction", len(got))
	}
	for _, item := range got {
		if item.GUID == "g1" {
			t.Error("oldest item should have been evicted")
		}
	}
}

func TestGetItemsSearchMatchesTitle(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	items := []Item{
		{FeedID: feed.ID, Title: "Golang concurrency patterns", Link: "https://example.com/a", GUID: "g1", Published: time.Now()},
		{FeedID: feed.ID, Title: "Baking bread at home", Link: "https://example.com/b", GUID: "g2", Published: time.Now()},
	}
	if _, err := repo.AddItems(ctx, items, 0); err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}

	got, err := repo.GetItems(ctx, GetItemsOptions{Search: "golang"})
	if err != nil {
		t.Fatalf("GetItems() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Golang concurrency patterns" {
		t.Errorf("search results = %+v, want one match on Golang post", got)
	}
}

func TestLogFetchAndPruneOldFetchLogs(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	old := FetchLogEntry{FeedID: feed.ID, StatusCode: 200, FetchTime: time.Now().UTC().AddDate(0, 0, -40)}
	recent := FetchLogEntry{FeedID: feed.ID, StatusCode: 200, FetchTime: time.Now().UTC()}

	if err := repo.LogFetch(ctx, old); err != nil {
		t.Fatalf("LogFetch() error = %v", err)
	}
	if err := repo.LogFetch(ctx, recent); err != nil {
		t.Fatalf("LogFetch() error = %v", err)
	}

	n, err := repo.PruneOldFetchLogs(ctx, 30)
	if err != nil {
		t.Fatalf("PruneOldFetchLogs() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
}

func TestRemoveFeedCascadesItems(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	_, err := repo.AddItems(ctx, []Item{{FeedID: feed.ID, Title: "A", Link: "https://example.com/a", GUID: "g1"}}, 0)
	if err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}

	if err := repo.RemoveFeed(ctx, feed.ID); err != nil {
		t.Fatalf("RemoveFeed() error = %v", err)
	}

	total, err := repo.CountItems(ctx)
	if err != nil {
		t.Fatalf("CountItems() error = %v", err)
	}
	if total != 0 {
		t.Errorf("CountItems() = %d, want 0 after cascade delete", total)
	}
}

func TestCountItemsForFeed(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feedA, _ := repo.AddFeed(ctx, "A", "https://example.com/a-feed", 3600)
	feedB, _ := repo.AddFeed(ctx, "B", "https://example.com/b-feed", 3600)

	if _, err := repo.AddItems(ctx, []Item{
		{FeedID: feedA.ID, Title: "A1", Link: "https://example.com/a1", GUID: "a1"},
		{FeedID: feedA.ID, Title: "A2", Link: "https://example.com/a2", GUID: "a2"},
		{FeedID: feedB.ID, Title: "B1", Link: "https://example.com/b1", GUID: "b1"},
	}, 0); err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}

	count, err := repo.CountItemsForFeed(ctx, feedA.ID)
	if err != nil {
		t.Fatalf("CountItemsForFeed() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountItemsForFeed(feedA) = %d, want 2", count)
	}

	count, err = repo.CountItemsForFeed(ctx, feedB.ID)
	if err != nil {
		t.Fatalf("CountItemsForFeed() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountItemsForFeed(feedB) = %d, want 1", count)
	}
}

func TestVacuumAndDBSize(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)
	if _, err := repo.AddItems(ctx, []Item{{FeedID: feed.ID, Title: "A", Link: "https://example.com/a", GUID: "g1"}}, 0); err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}

	if err := repo.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum() error = %v", err)
	}

	size, err := repo.DBSize(ctx)
	if err != nil {
		t.Fatalf("DBSize() error = %v", err)
	}
	if size <= 0 {
		t.Errorf("DBSize() = %d, want > 0", size)
	}
}

func TestMarkOldItemsAsRead(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	feed, _ := repo.AddFeed(ctx, "Example", "https://example.com/feed", 3600)

	_, err := repo.AddItems(ctx, []Item{{FeedID: feed.ID, Title: "A", Link: "https://example.com/a", GUID: "g1"}}, 0)
	if err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}

	n, err := repo.MarkOldItemsAsRead(ctx, 0)
	if err != nil {
		t.Fatalf("MarkOldItemsAsRead() error = %v", err)
	}
	if n != 1 {
		t.Errorf("marked = %d, want 1", n)
	}
}
