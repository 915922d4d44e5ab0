package main

import (
	"context"
	"fmt"
	"time"
)

func cmdListFeeds(ctx context.Context, opts ListFeedsOptions) error {
	_, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	feeds, err := repo.GetFeeds(ctx, false)
	if err != nil {
		return fmt.Errorf("get feeds: %w", err)
	}

	if len(feeds) == 0 {
		fmt.Fprintln(opts.Output, "No feeds configured.")
		return nil
	}

	fmt.Fprintf(opts.Output, "Configured feeds (%d):\n\n", len(feeds))
	for _, feed := range feeds {
		status := "active"
		if !feed.Enabled {
			status = "disabled"
		}
		if feed.Degraded {
			status += ", degraded"
		}

		fmt.Fprintf(opts.Output, "  [%d] %s\n", feed.ID, feed.URL)
		if feed.Name != "" {
			fmt.Fprintf(opts.Output, "      Name: %s\n", feed.Name)
		}
		fmt.Fprintf(opts.Output, "      Status: %s (last: %s)\n", status, feed.LastFetchStatus)
		if !feed.LastFetchTime.IsZero() {
			fmt.Fprintf(opts.Output, "      Last fetched: %s\n", feed.LastFetchTime.Format(time.RFC3339))
		}
		if feed.ConsecutiveErrors > 0 {
			fmt.Fprintf(opts.Output, "      Consecutive errors: %d\n", feed.ConsecutiveErrors)
		}
		fmt.Fprintln(opts.Output)
	}

	return nil
}
