// Package normalizer parses RSS/Atom/JSON-Feed payloads and converts them into
// the canonical Item shape the Store persists: stable identity, HTML-stripped
// summary, resolved thumbnail, and source-aware content cleaning.
package normalizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// MaxItemsPerParse caps the number of items produced by a single Parse call.
const MaxItemsPerParse = 100

// GuidHashLength is the length, in hex characters, of a generated guid.
const GuidHashLength = 16

var (
	ErrInvalidFeed = errors.New("invalid feed data")
)

// Item is a normalized, deduplication-ready feed item, matching the Item
// entity's attributes: title, link, published, author, summary (HTML-stripped),
// thumbnail, and guid.
type Item struct {
	FeedID    int64
	Title     string
	Link      string
	Published time.Time // zero value means "no published time known"
	Author    string
	Summary   string
	Thumbnail string
	GUID      string
}

// FeedMetadata contains feed-level information extracted alongside items.
type FeedMetadata struct {
	Title   string
	Link    string
	Updated time.Time
}

// cleaner applies source-aware cleaning to a title/summary pair, keyed by the
// item's link host. Additional cleaners can be registered without touching the
// generic parse path.
type cleaner func(title, summary string) (string, string)

var cleanerRegistry = map[string]cleaner{
	"reddit.com":     redditCleaner,
	"www.reddit.com": redditCleaner,
	"old.reddit.com": redditCleaner,
}

var redditTitlePrefix = regexp.MustCompile(`(?i)^\s*\[link\]\s*\[comments\]\s*`)
var redditTitleSuffix = regexp.MustCompile(`(?i)\s*\[link\]\s*\[comments\]\s*$`)
var redditSummaryFooter = regexp.MustCompile(`(?is)submitted by.*?\[.*?\]\s*\[.*?\]`)

func redditCleaner(title, summary string) (string, string) {
	title = redditTitlePrefix.ReplaceAllString(title, "")
	title = strings.TrimSpace(redditTitleSuffix.ReplaceAllString(title, ""))
	summary = strings.TrimSpace(redditSummaryFooter.ReplaceAllString(summary, ""))
	return title, summary
}

// sanitizer strips all markup from summaries; StripTagsPolicy keeps the text
// content of every tag instead of dropping it outright, which matters for
// feeds that wrap whole summaries in a single enclosing tag.
var sanitizer = bluemonday.StripTagsPolicy()

// Normalizer parses feed payloads and normalizes each entry into an Item.
type Normalizer struct {
	parser *gofeed.Parser
}

// New creates a Normalizer with default settings.
func New() *Normalizer {
	return &Normalizer{
		parser: gofeed.NewParser(),
	}
}

// Parse parses raw feed bytes for feedID into normalized items, at most
// MaxItemsPerParse. A bozo parse with zero entries yields an empty, non-error
// result; a malformed individual entry is skipped and the rest proceed.
func (n *Normalizer) Parse(ctx context.Context, feedID int64, feedData []byte) (*FeedMetadata, []Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if len(feedData) == 0 {
		return &FeedMetadata{}, []Item{}, nil
	}

	feed, err := n.parser.ParseString(string(feedData))
	if err != nil {
		if feed == nil || len(feed.Items) == 0 {
			return &FeedMetadata{}, []Item{}, nil
		}
	}
	if feed == nil {
		return &FeedMetadata{}, []Item{}, nil
	}

	metadata := &FeedMetadata{Title: feed.Title, Link: feed.Link}
	if feed.UpdatedParsed != nil {
		metadata.Updated = *feed.UpdatedParsed
	}

	items := feed.Items
	if len(items) > MaxItemsPerParse {
		items = items[:MaxItemsPerParse]
	}

	normalized := make([]Item, 0, len(items))
	for _, raw := range items {
		if raw == nil {
			continue
		}
		item := n.normalizeItem(feedID, raw, feed)
		normalized = append(normalized, item)
	}

	return metadata, normalized, nil
}

func (n *Normalizer) normalizeItem(feedID int64, raw *gofeed.Item, feed *gofeed.Feed) Item {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = "No title"
	}
	link := strings.TrimSpace(raw.Link)
	author := extractAuthor(raw, feed)
	summary := cleanHTML(firstNonEmpty(raw.Description, raw.Content))
	thumbnail := extractThumbnail(raw)

	if host := hostOfLink(link); host != "" {
		if clean, ok := cleanerRegistry[strings.ToLower(host)]; ok {
			title, summary = clean(title, summary)
		}
	}

	guid := strings.TrimSpace(raw.GUID)
	if guid == "" {
		guid = hashGUID(feedID, title, link)
	}

	return Item{
		FeedID:    feedID,
		Title:     title,
		Link:      link,
		Published: extractPublished(raw),
		Author:    author,
		Summary:   summary,
		Thumbnail: thumbnail,
		GUID:      guid,
	}
}

// hashGUID computes hash(feed_id ‖ title ‖ link), the fallback identity used
// when no upstream <guid>/<id> is present.
func hashGUID(feedID int64, title, link string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s:%s", feedID, title, link)
	return hex.EncodeToString(h.Sum(nil))[:GuidHashLength]
}

func extractAuthor(item *gofeed.Item, feed *gofeed.Feed) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		return item.Authors[0].Name
	}
	if feed != nil && feed.Author != nil && feed.Author.Name != "" {
		return feed.Author.Name
	}
	return ""
}

func extractPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// cleanHTML strips tags via bluemonday, decodes any entities left behind, and
// collapses whitespace, yielding the plain-text summary the Item entity stores.
func cleanHTML(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := sanitizer.Sanitize(raw)
	unescaped := html.UnescapeString(stripped)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(unescaped, " "))
}

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src="([^"]+)"`)

// extractThumbnail tries, in order: media:thumbnail, media:content, the first
// image-typed enclosure, the first enclosure of any type, the item's image,
// then an <img src> found in the item's content (or, failing that, description).
func extractThumbnail(item *gofeed.Item) string {
	if ext, ok := item.Extensions["media"]["thumbnail"]; ok && len(ext) > 0 {
		if url, ok := ext[0].Attrs["url"]; ok && url != "" {
			return url
		}
	}
	if ext, ok := item.Extensions["media"]["content"]; ok && len(ext) > 0 {
		if url, ok := ext[0].Attrs["url"]; ok && url != "" {
			return url
		}
	}
	for _, enc := range item.Enclosures {
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image") {
			return enc.URL
		}
	}
	if len(item.Enclosures) > 0 && item.Enclosures[0].URL != "" {
		return item.Enclosures[0].URL
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	content := firstNonEmpty(item.Content, item.Description)
	if m := imgSrcPattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func hostOfLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
