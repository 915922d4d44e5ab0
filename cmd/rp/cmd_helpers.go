package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/adewale/rogue_planet/pkg/config"
	"github.com/adewale/rogue_planet/pkg/crawler"
	"github.com/adewale/rogue_planet/pkg/jobrunner"
	"github.com/adewale/rogue_planet/pkg/logging"
	"github.com/adewale/rogue_planet/pkg/metrics"
	"github.com/adewale/rogue_planet/pkg/normalizer"
	"github.com/adewale/rogue_planet/pkg/ratelimit"
	"github.com/adewale/rogue_planet/pkg/repository"
	"github.com/adewale/rogue_planet/pkg/timeprovider"
)

// loadConfig loads configuration from file, falling back to defaults if the
// file doesn't exist yet (a fresh checkout with no config.yaml still runs).
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadFromFile(path)
}

// openConfigAndRepo loads config and opens the database, returning both along
// with a cleanup function the caller should defer.
func openConfigAndRepo(configPath string) (*config.Config, *repository.Repository, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	repo, err := repository.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}

	cleanup := func() { repo.Close() }
	return cfg, repo, cleanup, nil
}

// collaborators bundles the components a one-shot fetch pass or the daemon
// need to run jobs: crawler, normalizer, rate limiter, metrics, and a Runner
// wired to a particular repository.
type collaborators struct {
	crawler    *crawler.Crawler
	normalizer *normalizer.Normalizer
	limiter    *ratelimit.Manager
	metrics    *metrics.Registry
	runner     *jobrunner.Runner
}

func buildCollaborators(cfg *config.Config, repo *repository.Repository, logger *logging.StandardLogger) *collaborators {
	c := crawler.NewWithConfig(crawler.CrawlerConfig{
		UserAgent:          cfg.HTTP.UserAgent,
		HTTPTimeoutSeconds: cfg.HTTP.TimeoutSeconds,
	})
	n := normalizer.New()
	limiter := ratelimit.New(cfg.RateLimit.HostRate, cfg.RateLimit.HostBurst, cfg.RateLimit.GlobalConcurrency)
	metricsRegistry := metrics.New()
	runner := jobrunner.New(repo, c, n, limiter, metricsRegistry, logger.Component("jobrunner"), timeprovider.WallClock{}, cfg.Scheduler.ItemCap)

	return &collaborators{
		crawler:    c,
		normalizer: n,
		limiter:    limiter,
		metrics:    metricsRegistry,
		runner:     runner,
	}
}

// fetchAllOnce runs one fetch job per enabled feed, bounded by
// cfg.RateLimit.GlobalConcurrency concurrent jobs, and reports progress to
// output. It is the one-shot counterpart to the scheduler's continuous
// ticking, used by `rp fetch`.
func fetchAllOnce(ctx context.Context, cfg *config.Config, repo *repository.Repository, logger *logging.StandardLogger, output io.Writer) error {
	feeds, err := repo.GetFeeds(ctx, true)
	if err != nil {
		return fmt.Errorf("get feeds: %w", err)
	}
	if len(feeds) == 0 {
		fmt.Fprintln(output, "No feeds to fetch. Add feeds with 'rp add-feed <url>'")
		return nil
	}

	co := buildCollaborators(cfg, repo, logger)

	concurrency := cfg.RateLimit.GlobalConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, feed := range feeds {
		wg.Add(1)
		go func(index int, f repository.Feed) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			err := co.runner.RunJob(jobCtx, f.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				fmt.Fprintf(output, "  [%d/%d] Fetched %s\n", index+1, len(feeds), f.URL)
			case err == jobrunner.ErrLockHeld || err == jobrunner.ErrRateLimited:
				fmt.Fprintf(output, "  [%d/%d] Skipped %s (%v)\n", index+1, len(feeds), f.URL, err)
			default:
				logger.Error("fetch %s: %v", f.URL, err)
				fmt.Fprintf(output, "  [%d/%d] Failed %s: %v\n", index+1, len(feeds), f.URL, err)
			}
		}(i, feed)
	}
	wg.Wait()

	return nil
}

// importFeedsFromURLs adds a list of feeds to the repository with progress
// reporting. Returns the number of successfully added feeds.
func importFeedsFromURLs(ctx context.Context, repo *repository.Repository, defaultInterval int, feeds []config.FeedDef, output io.Writer) int {
	addedCount := 0
	for i, f := range feeds {
		interval := f.IntervalSeconds
		if interval <= 0 {
			interval = defaultInterval
		}
		fmt.Fprintf(output, "  [%d/%d] Adding %s\n", i+1, len(feeds), f.URL)
		feed, err := repo.AddFeed(ctx, f.Name, f.URL, interval)
		if err != nil {
			fmt.Fprintf(output, "         Warning: failed to add feed: %v\n", err)
			continue
		}
		fmt.Fprintf(output, "         added (ID: %d)\n", feed.ID)
		addedCount++
	}
	return addedCount
}
