package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adewale/rogue_planet/pkg/config"
	"github.com/adewale/rogue_planet/pkg/repository"
)

func cmdVerify(ctx context.Context, opts VerifyOptions) error {
	var problems []string

	cfg, err := config.LoadFromFile(opts.ConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", opts.ConfigPath)
		}
		return fmt.Errorf("invalid config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid config value: %v", err))
	}

	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		problems = append(problems, "database does not exist, run any command once to create it")
	} else {
		repo, err := repository.New(cfg.Database.Path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("database error: %v", err))
		} else {
			if _, err := repo.GetFeeds(ctx, false); err != nil {
				problems = append(problems, fmt.Sprintf("database schema error: %v", err))
			}
			repo.Close()
		}
	}

	if cfg.Site.OutputDir != "" {
		if _, err := os.Stat(cfg.Site.OutputDir); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("output directory does not exist, mkdir -p %s", cfg.Site.OutputDir))
		} else {
			testFile := filepath.Join(cfg.Site.OutputDir, ".write_test")
			if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
				problems = append(problems, fmt.Sprintf("output directory not writable: chmod 755 %s", cfg.Site.OutputDir))
			} else {
				os.Remove(testFile)
			}
		}
	}

	if cfg.Site.Template != "" {
		if _, err := os.Stat(cfg.Site.Template); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("template file not found: %s", cfg.Site.Template))
		}
	}

	if len(problems) > 0 {
		fmt.Fprintln(opts.Output, "Configuration validation failed")
		fmt.Fprintln(opts.Output)
		for _, p := range problems {
			fmt.Fprintf(opts.Output, "- %s\n", p)
		}
		fmt.Fprintf(opts.Output, "\nFound %d problems.\n", len(problems))
		return fmt.Errorf("validation failed")
	}

	repo, err := repository.New(cfg.Database.Path)
	if err == nil {
		defer repo.Close()
		stats, _ := repo.GetFeedStats(ctx)
		fmt.Fprintf(opts.Output, "Configuration valid (%d feeds, %d items)\n", stats.TotalFeeds, stats.TotalItems)
	} else {
		fmt.Fprintln(opts.Output, "Configuration valid")
	}

	return nil
}
