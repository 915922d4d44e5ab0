package main

import (
	"context"
	"fmt"
	"os"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "init":
		err = runInit(ctx, args)
	case "add-feed":
		err = runAddFeed(ctx, args)
	case "add-all":
		err = runAddAll(ctx, args)
	case "remove-feed":
		err = runRemoveFeed(ctx, args)
	case "list-feeds":
		err = runListFeeds(ctx, args)
	case "status":
		err = runStatus(ctx, args)
	case "fetch":
		err = runFetch(ctx, args)
	case "generate":
		err = runGenerate(ctx, args)
	case "prune":
		err = runPrune(ctx, args)
	case "verify":
		err = runVerify(ctx, args)
	case "import-opml":
		err = runImportOPML(ctx, args)
	case "export-opml":
		err = runExportOPML(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "version":
		fmt.Printf("rp version %s\n", version)
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if _, cancelled := err.(*ErrUserCancelled); cancelled {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Rogue Planet - Modern feed aggregator

Usage:
  rp <command> [flags]

Commands:
  init [-f FILE]       Initialize a new planet in the current directory
  add-feed <url>       Add a feed to the planet
  add-all -f FILE      Add multiple feeds from a file
  remove-feed <url>    Remove a feed from the planet
  list-feeds           List all configured feeds
  status               Show planet status (feed and entry counts)
  fetch                Fetch all feeds once and exit
  generate             Render the static site without fetching
  serve                Run the polling daemon (and API, if enabled)
  prune                Remove old entries from the database
  verify               Validate configuration and environment
  import-opml FILE     Import feeds from an OPML file
  export-opml          Export feeds to OPML format
  version               Show version information
  help                 Show this help message

Add-Feed Flags:
  --name NAME          Display name for the feed (default: the URL)
  --interval SECONDS   Poll interval in seconds (default: config default)

Init/Add-All Flags:
  -f FILE              Feeds file (YAML list of name/url entries)

Import-OPML Flags:
  --dry-run            Preview feeds without importing

Export-OPML Flags:
  --output FILE        Output file (default: stdout)

Global Flags:
  --config <path>      Path to config file (default: ./config.yaml)
  --verbose            Enable verbose logging (fetch and serve only)

Examples:
  rp init
  rp init -f feeds.yaml
  rp add-feed https://blog.golang.org/feed.atom
  rp add-all -f feeds.yaml
  rp list-feeds
  rp status
  rp serve
  rp fetch
  rp generate --days 14
  rp prune --days 90
  rp import-opml feeds.opml
  rp import-opml feeds.opml --dry-run
  rp export-opml --output feeds.opml

`)
}

func runInit(ctx context.Context, args []string) error {
	opts, err := parseInitFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdInit(ctx, opts)
}

func runAddFeed(ctx context.Context, args []string) error {
	opts, err := parseAddFeedFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdAddFeed(ctx, opts)
}

func runAddAll(ctx context.Context, args []string) error {
	opts, err := parseAddAllFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdAddAll(ctx, opts)
}

func runRemoveFeed(ctx context.Context, args []string) error {
	opts, err := parseRemoveFeedFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	opts.Input = os.Stdin
	return cmdRemoveFeed(ctx, opts)
}

func runListFeeds(ctx context.Context, args []string) error {
	opts, err := parseListFeedsFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdListFeeds(ctx, opts)
}

func runStatus(ctx context.Context, args []string) error {
	opts, err := parseStatusFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdStatus(ctx, opts)
}

func runFetch(ctx context.Context, args []string) error {
	opts, err := parseFetchFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdFetch(ctx, opts)
}

func runGenerate(ctx context.Context, args []string) error {
	opts, err := parseGenerateFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdGenerate(ctx, opts)
}

func runPrune(ctx context.Context, args []string) error {
	opts, err := parsePruneFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdPrune(ctx, opts)
}

func runVerify(ctx context.Context, args []string) error {
	opts, err := parseVerifyFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdVerify(ctx, opts)
}

func runImportOPML(ctx context.Context, args []string) error {
	opts, err := parseImportOPMLFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdImportOPML(ctx, opts)
}

func runExportOPML(ctx context.Context, args []string) error {
	opts, err := parseExportOPMLFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdExportOPML(ctx, opts)
}

func runServe(ctx context.Context, args []string) error {
	opts, err := parseServeFlags(args)
	if err != nil {
		return err
	}
	opts.Output = os.Stdout
	return cmdServe(ctx, opts)
}
