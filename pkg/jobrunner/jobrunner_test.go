package jobrunner

import (
	"context"
	"testing"
	"time"

	"github.com/adewale/rogue_planet/pkg/crawler"
	"github.com/adewale/rogue_planet/pkg/logging"
	"github.com/adewale/rogue_planet/pkg/metrics"
	"github.com/adewale/rogue_planet/pkg/normalizer"
	"github.com/adewale/rogue_planet/pkg/ratelimit"
	"github.com/adewale/rogue_planet/pkg/repository"
	"github.com/adewale/rogue_planet/pkg/timeprovider"
)

type fakeCrawler struct {
	result *crawler.FetchResult
	err    error
}

func (f *fakeCrawler) FetchWithRetry(ctx context.Context, feedURL, etag, lastModified string, onRetryAfter func(string, time.Duration)) (*crawler.FetchResult, error) {
	return f.result, f.err
}

type fakeNormalizer struct {
	items []normalizer.Item
	err   error
}

func (f *fakeNormalizer) Parse(ctx context.Context, feedID int64, feedData []byte) (*normalizer.FeedMetadata, []normalizer.Item, error) {
	return &normalizer.FeedMetadata{}, f.items, f.err
}

func newTestRunner(t *testing.T, c crawler.FeedCrawler, n normalizer.FeedNormalizer) (*Runner, *repository.Repository, int64) {
	t.Helper()
	repo, err := repository.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("repository.New() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	feed, err := repo.AddFeed(context.Background(), "Example", "https://example.com/feed", 3600)
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}

	limiter := ratelimit.New(ratelimit.DefaultHostRate, ratelimit.DefaultHostBurst, ratelimit.DefaultGlobalConcurrency)
	runner := New(repo, c, n, limiter, metrics.New(), logging.New("error"), timeprovider.WallClock{}, 0)
	return runner, repo, feed.ID
}

func TestRunJobSuccessStoresItemsAndLogsFetch(t *testing.T) {
	c := &fakeCrawler{result: &crawler.FetchResult{StatusCode: 200, Body: []byte("<rss></rss>"), ETag: `"v1"`}}
	n := &fakeNormalizer{items: []normalizer.Item{
		{FeedID: 1, Title: "A", Link: "https://example.com/a", GUID: "g1"},
		{FeedID: 1, Title: "B", Link: "https://example.com/b", GUID: "g2"},
	}}
	runner, repo, feedID := newTestRunner(t, c, n)

	if err := runner.RunJob(context.Background(), feedID); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	feed, err := repo.GetFeed(context.Background(), feedID)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if feed.IsFetching {
		t.Error("expected lock released after RunJob")
	}
	if feed.LastFetchStatus != repository.StatusSuccess {
		t.Errorf("LastFetchStatus = %q, want success", feed.LastFetchStatus)
	}
	if feed.ETag != `"v1"` {
		t.Errorf("ETag = %q, want v1", feed.ETag)
	}

	total, err := repo.CountItems(context.Background())
	if err != nil {
		t.Fatalf("CountItems() error = %v", err)
	}
	if total != 2 {
		t.Errorf("CountItems() = %d, want 2", total)
	}

	// A negative retention window prunes every row, so the count returned is
	// the number of fetch log rows the job wrote.
	logged, err := repo.PruneOldFetchLogs(context.Background(), -1)
	if err != nil {
		t.Fatalf("PruneOldFetchLogs() error = %v", err)
	}
	if logged != 1 {
		t.Errorf("fetch log rows = %d, want 1", logged)
	}
}

func TestRunJobTransportErrorReleasesLockAndBumpsBackoff(t *testing.T) {
	c := &fakeCrawler{result: nil, err: errFetchFailed}
	n := &fakeNormalizer{}
	runner, repo, feedID := newTestRunner(t, c, n)

	if err := runner.RunJob(context.Background(), feedID); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	feed, err := repo.GetFeed(context.Background(), feedID)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if feed.IsFetching {
		t.Error("expected lock released after transport error")
	}
	if feed.LastFetchStatus != repository.StatusError {
		t.Errorf("LastFetchStatus = %q, want error", feed.LastFetchStatus)
	}
	if feed.ConsecutiveErrors != 1 {
		t.Errorf("ConsecutiveErrors = %d, want 1", feed.ConsecutiveErrors)
	}
}

func TestRunJobSkipsWhenLockAlreadyHeld(t *testing.T) {
	c := &fakeCrawler{result: &crawler.FetchResult{StatusCode: 200}}
	n := &fakeNormalizer{}
	runner, repo, feedID := newTestRunner(t, c, n)

	if _, err := repo.AcquireFeedLock(context.Background(), feedID); err != nil {
		t.Fatalf("AcquireFeedLock() error = %v", err)
	}

	err := runner.RunJob(context.Background(), feedID)
	if err != ErrLockHeld {
		t.Errorf("RunJob() error = %v, want ErrLockHeld", err)
	}
}

func TestRunJobNotModifiedDoesNotAddItems(t *testing.T) {
	c := &fakeCrawler{result: &crawler.FetchResult{StatusCode: 304}}
	n := &fakeNormalizer{}
	runner, repo, feedID := newTestRunner(t, c, n)

	if err := runner.RunJob(context.Background(), feedID); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	feed, _ := repo.GetFeed(context.Background(), feedID)
	if feed.LastFetchStatus != repository.StatusNotModified {
		t.Errorf("LastFetchStatus = %q, want not_modified", feed.LastFetchStatus)
	}
	total, _ := repo.CountItems(context.Background())
	if total != 0 {
		t.Errorf("CountItems() = %d, want 0", total)
	}
}

var errFetchFailed = fetchError("simulated transport failure")

type fetchError string

func (e fetchError) Error() string { return string(e) }
