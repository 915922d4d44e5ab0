package normalizer

import (
	"context"
)

// FeedNormalizer defines the interface for feed parsing and content normalization.
// This interface enables dependency injection and makes testing easier by allowing
// mock implementations to be used in place of the concrete Normalizer.
type FeedNormalizer interface {
	// Parse parses and normalizes a feed from raw bytes for the given feed ID.
	// Returns feed metadata, normalized items, and any parsing errors.
	Parse(ctx context.Context, feedID int64, feedData []byte) (*FeedMetadata, []Item, error)
}

// Ensure Normalizer implements FeedNormalizer interface
var _ FeedNormalizer = (*Normalizer)(nil)
