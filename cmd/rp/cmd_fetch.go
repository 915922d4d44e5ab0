package main

import (
	"context"
	"fmt"

	"github.com/adewale/rogue_planet/pkg/logging"
)

func cmdFetch(ctx context.Context, opts FetchOptions) error {
	level := "info"
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.New(level)

	cfg, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(opts.Output, "Fetching feeds...")
	if err := fetchAllOnce(ctx, cfg, repo, logger, opts.Output); err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}

	fmt.Fprintln(opts.Output, "Fetch complete")
	return nil
}
