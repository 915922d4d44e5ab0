package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/adewale/rogue_planet/pkg/config"
	"github.com/adewale/rogue_planet/pkg/generator"
	"github.com/adewale/rogue_planet/pkg/repository"
)

func cmdGenerate(ctx context.Context, opts GenerateOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Days > 0 {
		cfg.Site.Days = opts.Days
	}

	repo, err := repository.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	fmt.Fprintln(opts.Output, "Generating site...")
	if err := generateSite(ctx, cfg, repo); err != nil {
		return fmt.Errorf("generate site: %w", err)
	}

	fmt.Fprintln(opts.Output, "Generate complete")
	return nil
}

// generateSite renders a static HTML snapshot of the most recent items into
// cfg.Site.OutputDir/index.html. It is an external collaborator of the
// polling engine: it only reads what the engine has already stored.
func generateSite(ctx context.Context, cfg *config.Config, repo *repository.Repository) error {
	items, err := repo.GetItems(ctx, repository.GetItemsOptions{
		Limit: 500,
		Sort:  "recent",
	})
	if err != nil {
		return fmt.Errorf("get items: %w", err)
	}

	feeds, err := repo.GetFeeds(ctx, false)
	if err != nil {
		return fmt.Errorf("get feeds: %w", err)
	}

	var gen *generator.Generator
	if cfg.Site.Template != "" {
		gen, err = generator.NewWithTemplate(cfg.Site.Template)
	} else {
		gen, err = generator.New()
	}
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	data := generator.TemplateData{
		Title:       cfg.Site.Title,
		Link:        cfg.Site.Link,
		OwnerName:   cfg.Site.OwnerName,
		OwnerEmail:  cfg.Site.OwnerEmail,
		Items:       items,
		Feeds:       feeds,
		GroupByDate: cfg.Site.GroupByDate,
		Days:        cfg.Site.Days,
	}

	outputPath := filepath.Join(cfg.Site.OutputDir, "index.html")
	if err := gen.GenerateToFile(ctx, outputPath, data); err != nil {
		return fmt.Errorf("generate file: %w", err)
	}

	return nil
}
