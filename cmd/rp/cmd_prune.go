package main

import (
	"context"
	"fmt"
)

func cmdPrune(ctx context.Context, opts PruneOptions) error {
	_, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.DryRun {
		fmt.Fprintf(opts.Output, "Dry run: would delete items older than %d days\n", opts.Days)
		return nil
	}

	deleted, err := repo.PruneOldItems(ctx, opts.Days)
	if err != nil {
		return fmt.Errorf("prune items: %w", err)
	}

	fmt.Fprintf(opts.Output, "Deleted %d old items\n", deleted)
	return nil
}
