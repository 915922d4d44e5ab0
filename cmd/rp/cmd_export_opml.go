package main

import (
	"context"
	"fmt"
	"os"

	"github.com/adewale/rogue_planet/pkg/opml"
)

func cmdExportOPML(ctx context.Context, opts ExportOPMLOptions) error {
	cfg, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	repoFeeds, err := repo.GetFeeds(ctx, false)
	if err != nil {
		return fmt.Errorf("get feeds: %w", err)
	}
	if len(repoFeeds) == 0 {
		fmt.Fprintln(opts.Output, "No feeds to export")
		return nil
	}

	metadata := opml.Metadata{
		Title:      cfg.Site.Title + " Feed List",
		OwnerName:  cfg.Site.OwnerName,
		OwnerEmail: cfg.Site.OwnerEmail,
	}

	opmlDoc, err := opml.Generate(repoFeeds, metadata)
	if err != nil {
		return fmt.Errorf("generate OPML: %w", err)
	}

	xmlData, err := opmlDoc.Marshal()
	if err != nil {
		return fmt.Errorf("marshal OPML: %w", err)
	}

	if opts.OutputFile != "" {
		if err := os.WriteFile(opts.OutputFile, xmlData, 0644); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		fmt.Fprintf(opts.Output, "Exported %d feeds to %s\n", len(repoFeeds), opts.OutputFile)
	} else {
		fmt.Fprint(opts.Output, string(xmlData))
	}

	return nil
}
