package crawler

import (
	"context"
	"time"
)

// FeedCrawler defines the interface for HTTP feed fetching operations.
// This interface enables dependency injection and makes testing easier by allowing
// mock implementations to be used in place of the concrete Crawler.
type FeedCrawler interface {
	// FetchWithRetry fetches a feed with exponential backoff retry logic.
	// onRetryAfter is invoked on a 429 response with the parsed Retry-After delay.
	FetchWithRetry(ctx context.Context, feedURL, etag, lastModified string, onRetryAfter func(host string, delay time.Duration)) (*FetchResult, error)
}

// Ensure Crawler implements FeedCrawler interface
var _ FeedCrawler = (*Crawler)(nil)
