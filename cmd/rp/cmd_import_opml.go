package main

import (
	"context"
	"fmt"

	"github.com/adewale/rogue_planet/pkg/crawler"
	"github.com/adewale/rogue_planet/pkg/opml"
)

func cmdImportOPML(ctx context.Context, opts ImportOPMLOptions) error {
	if opts.OPMLFile == "" {
		return fmt.Errorf("OPML file is required")
	}

	opmlDoc, err := opml.ParseFile(ctx, opts.OPMLFile)
	if err != nil {
		return fmt.Errorf("parse OPML file: %w", err)
	}

	feeds := opmlDoc.ExtractFeeds()
	if len(feeds) == 0 {
		fmt.Fprintln(opts.Output, "No feeds found in OPML file")
		return nil
	}

	cfg, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.DryRun {
		fmt.Fprintf(opts.Output, "DRY RUN: would import feeds from %s\n\n", opts.OPMLFile)
		skipCount := 0
		for i, feed := range feeds {
			if _, err := repo.GetFeedByURL(ctx, feed.URL); err == nil {
				fmt.Fprintf(opts.Output, "  [%d/%d] would skip: %s (already exists)\n", i+1, len(feeds), feed.URL)
				skipCount++
			} else {
				fmt.Fprintf(opts.Output, "  [%d/%d] would add: %s (%s)\n", i+1, len(feeds), feed.URL, feed.Name)
			}
		}
		fmt.Fprintf(opts.Output, "\nDRY RUN: would import %d/%d feeds (%d duplicates skipped)\n", len(feeds)-skipCount, len(feeds), skipCount)
		return nil
	}

	fmt.Fprintf(opts.Output, "Importing feeds from %s...\n\n", opts.OPMLFile)

	addedCount, skippedCount := 0, 0
	for i, feed := range feeds {
		if _, err := repo.GetFeedByURL(ctx, feed.URL); err == nil {
			fmt.Fprintf(opts.Output, "  [%d/%d] %s\n         skipped (already exists)\n", i+1, len(feeds), feed.URL)
			skippedCount++
			continue
		}

		if err := crawler.ValidateURL(feed.URL); err != nil {
			fmt.Fprintf(opts.Output, "  [%d/%d] %s\n         skipped (invalid URL: %v)\n", i+1, len(feeds), feed.URL, err)
			skippedCount++
			continue
		}

		name := feed.Name
		if name == "" {
			name = feed.URL
		}

		result, err := repo.AddFeed(ctx, name, feed.URL, cfg.Scheduler.DefaultIntervalSeconds)
		if err != nil {
			fmt.Fprintf(opts.Output, "  [%d/%d] %s\n         failed: %v\n", i+1, len(feeds), feed.URL, err)
			skippedCount++
			continue
		}

		fmt.Fprintf(opts.Output, "  [%d/%d] added %s (%s), ID %d\n", i+1, len(feeds), feed.URL, name, result.ID)
		addedCount++
	}

	fmt.Fprintf(opts.Output, "\nImported %d/%d feeds (%d skipped)\n", addedCount, len(feeds), skippedCount)
	return nil
}
