package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func cmdRemoveFeed(ctx context.Context, opts RemoveFeedOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("URL is required")
	}

	_, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	feed, err := repo.GetFeedByURL(ctx, opts.URL)
	if err != nil {
		return fmt.Errorf("feed not found: %w", err)
	}

	itemCount, err := repo.CountItemsForFeed(ctx, feed.ID)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}

	if !opts.Force {
		if inputFile, isFile := opts.Input.(*os.File); isFile {
			stat, err := inputFile.Stat()
			if err != nil {
				return fmt.Errorf("determine terminal status: %w", err)
			}
			isTerminal := (stat.Mode() & os.ModeCharDevice) != 0
			if !isTerminal {
				return fmt.Errorf("cannot prompt for confirmation in non-interactive mode, use --force to skip confirmation")
			}
		}

		name := feed.Name
		if name == "" {
			name = "(no name)"
		}

		fmt.Fprintf(opts.Output, "Feed: %s\n", feed.URL)
		fmt.Fprintf(opts.Output, "Name: %s\n", name)
		fmt.Fprintf(opts.Output, "Items in store: %d\n\n", itemCount)
		fmt.Fprintf(opts.Output, "Remove this feed and its items? (y/N): ")

		reader := bufio.NewReader(opts.Input)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(opts.Output, "Cancelled.")
			return &ErrUserCancelled{"operation cancelled by user"}
		}
	}

	if err := repo.RemoveFeed(ctx, feed.ID); err != nil {
		return fmt.Errorf("remove feed: %w", err)
	}

	fmt.Fprintf(opts.Output, "Removed feed: %s\n", opts.URL)
	return nil
}
