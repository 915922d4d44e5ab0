package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adewale/rogue_planet/pkg/config"
	"gopkg.in/yaml.v3"
)

type InitOptions struct {
	FeedsFile  string
	ConfigPath string
	Output     io.Writer
}

func cmdInit(ctx context.Context, opts InitOptions) error {
	fmt.Fprintln(opts.Output, "Initializing Rogue Planet...")

	for _, dir := range []string{"data", "public"} {
		if strings.Contains(dir, "..") {
			return fmt.Errorf("invalid directory path: %s", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	cfg := config.Default()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(opts.ConfigPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintln(opts.Output, "Created config.yaml")
	fmt.Fprintln(opts.Output, "Created data/ directory")
	fmt.Fprintln(opts.Output, "Created public/ directory")

	_, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.FeedsFile != "" {
		fmt.Fprintf(opts.Output, "\nImporting feeds from %s...\n", opts.FeedsFile)

		feeds, truncated, err := config.LoadFeedsFile(opts.FeedsFile)
		if err != nil {
			return fmt.Errorf("load feeds file: %w", err)
		}
		if truncated {
			fmt.Fprintf(opts.Output, "Warning: feeds file exceeds %d entries, extra feeds were dropped\n", config.MaxFeedsInFile)
		}

		addedCount := importFeedsFromURLs(ctx, repo, cfg.Scheduler.DefaultIntervalSeconds, feeds, opts.Output)
		fmt.Fprintf(opts.Output, "\nImported %d/%d feeds\n", addedCount, len(feeds))
	}

	fmt.Fprintln(opts.Output, "\nNext steps:")
	fmt.Fprintln(opts.Output, "  1. Edit config.yaml with your planet details")
	fmt.Fprintln(opts.Output, "  2. Add feeds with 'rp add-feed <url>' or a feeds.yaml + 'rp add-all -f feeds.yaml'")
	fmt.Fprintln(opts.Output, "  3. Run 'rp serve' to start the polling daemon, or 'rp fetch' for a one-shot pass")

	return nil
}
