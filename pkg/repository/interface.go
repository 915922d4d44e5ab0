package repository

import (
	"context"
	"time"
)

// FeedRepository defines the interface for feed, item, and fetch-log storage
// operations. This interface enables dependency injection and makes testing
// easier by allowing mock implementations to be used in place of the concrete
// Repository.
type FeedRepository interface {
	AddFeed(ctx context.Context, name, url string, intervalSeconds int) (*Feed, error)
	GetFeed(ctx context.Context, id int64) (*Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*Feed, error)
	GetFeeds(ctx context.Context, enabledOnly bool) ([]Feed, error)
	RemoveFeed(ctx context.Context, id int64) error

	AcquireFeedLock(ctx context.Context, id int64) (bool, error)
	ReleaseFeedLock(ctx context.Context, id int64) error

	UpdateFeedStatus(ctx context.Context, id int64, status, etag, lastModified string) error
	UpdateAdaptiveBackoff(ctx context.Context, id int64, success bool) error
	UpdateFeedPublishedTime(ctx context.Context, id int64, t time.Time) error

	CheckAndDegradeFeeds(ctx context.Context, ttlHours int) (int64, error)

	AddItems(ctx context.Context, items []Item, itemCap int64) (int64, error)
	GetItems(ctx context.Context, opts GetItemsOptions) ([]Item, error)
	MarkOldItemsAsRead(ctx context.Context, ageHours int) (int64, error)
	PruneOldItems(ctx context.Context, days int) (int64, error)
	CountItems(ctx context.Context) (int64, error)
	CountItemsForFeed(ctx context.Context, feedID int64) (int64, error)

	LogFetch(ctx context.Context, entry FetchLogEntry) error
	PruneOldFetchLogs(ctx context.Context, days int) (int64, error)

	GetFeedStats(ctx context.Context) (FeedStats, error)

	Vacuum(ctx context.Context) error
	DBSize(ctx context.Context) (int64, error)

	Close() error
}

// Ensure Repository implements FeedRepository interface
var _ FeedRepository = (*Repository)(nil)
