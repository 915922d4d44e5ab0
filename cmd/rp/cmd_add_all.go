package main

import (
	"context"
	"fmt"

	"github.com/adewale/rogue_planet/pkg/config"
)

func cmdAddAll(ctx context.Context, opts AddAllOptions) error {
	if opts.FeedsFile == "" {
		return fmt.Errorf("feeds file is required")
	}

	cfg, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	feeds, truncated, err := config.LoadFeedsFile(opts.FeedsFile)
	if err != nil {
		return fmt.Errorf("load feeds file: %w", err)
	}
	if truncated {
		fmt.Fprintf(opts.Output, "Warning: feeds file exceeds %d entries, extra feeds were dropped\n", config.MaxFeedsInFile)
	}

	if len(feeds) == 0 {
		fmt.Fprintln(opts.Output, "No feeds found in file")
		return nil
	}

	fmt.Fprintf(opts.Output, "Adding %d feeds from %s...\n", len(feeds), opts.FeedsFile)
	addedCount := importFeedsFromURLs(ctx, repo, cfg.Scheduler.DefaultIntervalSeconds, feeds, opts.Output)

	fmt.Fprintf(opts.Output, "\nAdded %d/%d feeds\n", addedCount, len(feeds))
	return nil
}
