package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/adewale/rogue_planet/pkg/crawler"
	"github.com/adewale/rogue_planet/pkg/jobrunner"
	"github.com/adewale/rogue_planet/pkg/logging"
	"github.com/adewale/rogue_planet/pkg/metrics"
	"github.com/adewale/rogue_planet/pkg/normalizer"
	"github.com/adewale/rogue_planet/pkg/ratelimit"
	"github.com/adewale/rogue_planet/pkg/repository"
	"github.com/adewale/rogue_planet/pkg/timeprovider"
)

type countingCrawler struct {
	calls chan struct{}
}

func (c *countingCrawler) FetchWithRetry(ctx context.Context, feedURL, etag, lastModified string, onRetryAfter func(string, time.Duration)) (*crawler.FetchResult, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return &crawler.FetchResult{StatusCode: 304}, nil
}

type emptyNormalizer struct{}

func (emptyNormalizer) Parse(ctx context.Context, feedID int64, feedData []byte) (*normalizer.FeedMetadata, []normalizer.Item, error) {
	return &normalizer.FeedMetadata{}, nil, nil
}

func TestJitterStaysWithinBounds(t *testing.T) {
	t.Parallel()
	interval := time.Hour
	for i := 0; i < 50; i++ {
		got := jitter(interval)
		if got < time.Duration(float64(interval)*jitterMin) || got > time.Duration(float64(interval)*jitterMax) {
			t.Fatalf("jitter(%v) = %v, outside [%v, %v]", interval, got,
				time.Duration(float64(interval)*jitterMin), time.Duration(float64(interval)*jitterMax))
		}
	}
}

func TestRegisterFiresImmediateTick(t *testing.T) {
	repo, err := repository.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("repository.New() error = %v", err)
	}
	defer repo.Close()

	feed, err := repo.AddFeed(context.Background(), "Example", "https://example.com/feed", 3600)
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}

	calls := make(chan struct{}, 4)
	limiter := ratelimit.New(ratelimit.DefaultHostRate, ratelimit.DefaultHostBurst, ratelimit.DefaultGlobalConcurrency)
	runner := jobrunner.New(repo, &countingCrawler{calls: calls}, emptyNormalizer{}, limiter, metrics.New(), logging.New("error"), timeprovider.WallClock{}, 0)

	s := New(repo, runner, metrics.New(), logging.New("error"), Config{
		MaxWorkers:            4,
		MaintenanceCron:       "0 3 * * *",
		DegradationCron:       "0 * * * *",
		DegradationTTLHours:   48,
		FetchLogRetentionDays: 30,
	})
	s.Register(feed.ID, time.Hour)
	defer s.Stop()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate fetch on Register")
	}
}

func TestTickDropsWhenPoolSaturated(t *testing.T) {
	repo, err := repository.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("repository.New() error = %v", err)
	}
	defer repo.Close()

	feed, err := repo.AddFeed(context.Background(), "Example", "https://example.com/feed", 3600)
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}

	limiter := ratelimit.New(ratelimit.DefaultHostRate, ratelimit.DefaultHostBurst, ratelimit.DefaultGlobalConcurrency)
	runner := jobrunner.New(repo, &countingCrawler{calls: make(chan struct{}, 1)}, emptyNormalizer{}, limiter, metrics.New(), logging.New("error"), timeprovider.WallClock{}, 0)

	s := New(repo, runner, metrics.New(), logging.New("error"), Config{MaxWorkers: 1})
	// Fill the pool manually to simulate saturation.
	if !s.pool.TryAcquire(1) {
		t.Fatal("failed to pre-acquire pool slot for test setup")
	}
	defer s.pool.Release(1)

	s.tick(feed.ID) // should be dropped, not block

	status := s.GetSchedulerStatus()
	if status.PoolCapacity != 1 {
		t.Errorf("PoolCapacity = %d, want 1", status.PoolCapacity)
	}
}

func TestStartReportsRunningStatusAndJobs(t *testing.T) {
	repo, err := repository.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("repository.New() error = %v", err)
	}
	defer repo.Close()

	feed, err := repo.AddFeed(context.Background(), "Example", "https://example.com/feed", 3600)
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}

	limiter := ratelimit.New(ratelimit.DefaultHostRate, ratelimit.DefaultHostBurst, ratelimit.DefaultGlobalConcurrency)
	runner := jobrunner.New(repo, &countingCrawler{calls: make(chan struct{}, 4)}, emptyNormalizer{}, limiter, metrics.New(), logging.New("error"), timeprovider.WallClock{}, 0)

	s := New(repo, runner, metrics.New(), logging.New("error"), Config{
		MaxWorkers:      4,
		MaintenanceCron: "0 3 * * *",
		DegradationCron: "0 * * * *",
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	status := s.GetSchedulerStatus()
	if !status.Running {
		t.Error("status.Running = false, want true after Start")
	}
	if len(status.Jobs) != 1 || status.Jobs[0].FeedID != feed.ID {
		t.Errorf("status.Jobs = %+v, want one job for feed %d", status.Jobs, feed.ID)
	}
}

func TestStatusUptimeUsesInjectedClock(t *testing.T) {
	repo, err := repository.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("repository.New() error = %v", err)
	}
	defer repo.Close()

	limiter := ratelimit.New(ratelimit.DefaultHostRate, ratelimit.DefaultHostBurst, ratelimit.DefaultGlobalConcurrency)
	runner := jobrunner.New(repo, &countingCrawler{calls: make(chan struct{}, 1)}, emptyNormalizer{}, limiter, metrics.New(), logging.New("error"), timeprovider.WallClock{}, 0)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := timeprovider.NewFakeClock(start)

	s := NewWithTimeProvider(repo, runner, metrics.New(), logging.New("error"), Config{
		MaxWorkers:      1,
		MaintenanceCron: "0 3 * * *",
		DegradationCron: "0 * * * *",
	}, clock)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	clock.Advance(90 * time.Second)

	status := s.GetSchedulerStatus()
	if status.UptimeSeconds != 90 {
		t.Errorf("status.UptimeSeconds = %v, want 90 (driven by the fake clock, not wall time)", status.UptimeSeconds)
	}
}

func TestUnregisterStopsTicker(t *testing.T) {
	repo, err := repository.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("repository.New() error = %v", err)
	}
	defer repo.Close()

	feed, _ := repo.AddFeed(context.Background(), "Example", "https://example.com/feed", 3600)
	limiter := ratelimit.New(ratelimit.DefaultHostRate, ratelimit.DefaultHostBurst, ratelimit.DefaultGlobalConcurrency)
	runner := jobrunner.New(repo, &countingCrawler{calls: make(chan struct{}, 4)}, emptyNormalizer{}, limiter, metrics.New(), logging.New("error"), timeprovider.WallClock{}, 0)

	s := New(repo, runner, metrics.New(), logging.New("error"), Config{MaxWorkers: 4})
	s.Register(feed.ID, time.Hour)

	status := s.GetSchedulerStatus()
	if status.RegisteredFeeds != 1 {
		t.Fatalf("RegisteredFeeds = %d, want 1", status.RegisteredFeeds)
	}

	s.Unregister(feed.ID)
	status = s.GetSchedulerStatus()
	if status.RegisteredFeeds != 0 {
		t.Errorf("RegisteredFeeds = %d, want 0 after Unregister", status.RegisteredFeeds)
	}
}
