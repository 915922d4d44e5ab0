package main

import (
	"context"
	"fmt"
)

func cmdStatus(ctx context.Context, opts StatusOptions) error {
	cfg, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := repo.GetFeedStats(ctx)
	if err != nil {
		return fmt.Errorf("get feed stats: %w", err)
	}

	fmt.Fprintln(opts.Output, "Rogue Planet Status")
	fmt.Fprintln(opts.Output, "====================")
	fmt.Fprintln(opts.Output)
	fmt.Fprintf(opts.Output, "Feeds:     %d total (%d active, %d degraded)\n", stats.TotalFeeds, stats.ActiveFeeds, stats.DegradedFeeds)
	fmt.Fprintf(opts.Output, "Items:     %d total\n", stats.TotalItems)
	fmt.Fprintln(opts.Output)
	fmt.Fprintf(opts.Output, "Database:  %s\n", cfg.Database.Path)
	fmt.Fprintf(opts.Output, "API:       enabled=%v addr=%s\n", cfg.API.Enabled, cfg.API.Addr)

	return nil
}
