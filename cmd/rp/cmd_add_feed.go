package main

import (
	"context"
	"fmt"
)

func cmdAddFeed(ctx context.Context, opts AddFeedOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("URL is required")
	}

	cfg, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	interval := opts.IntervalSeconds
	if interval <= 0 {
		interval = cfg.Scheduler.DefaultIntervalSeconds
	}

	feed, err := repo.AddFeed(ctx, opts.Name, opts.URL, interval)
	if err != nil {
		return fmt.Errorf("add feed: %w", err)
	}

	fmt.Fprintf(opts.Output, "Added feed: %s (ID: %d)\n", opts.URL, feed.ID)
	return nil
}
