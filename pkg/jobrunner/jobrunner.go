// Package jobrunner composes the rate limiter, HTTP client, normalizer, and
// store into the single unit of work the scheduler ticks: fetch one feed,
// normalize whatever came back, persist it, and leave an unlocked feed behind
// regardless of how the attempt ended. Every attempt the rate limiter admits,
// and every attempt that panics, leaves exactly one fetch log row; an attempt
// the limiter declines (or whose context ends while waiting) leaves none.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/adewale/rogue_planet/pkg/crawler"
	"github.com/adewale/rogue_planet/pkg/logging"
	"github.com/adewale/rogue_planet/pkg/metrics"
	"github.com/adewale/rogue_planet/pkg/normalizer"
	"github.com/adewale/rogue_planet/pkg/ratelimit"
	"github.com/adewale/rogue_planet/pkg/repository"
	"github.com/adewale/rogue_planet/pkg/timeprovider"
)

// ErrLockHeld is returned (and swallowed by the scheduler, which drops the
// tick) when a feed's fetch lock is already held by an in-flight job.
var ErrLockHeld = errors.New("jobrunner: feed lock already held, dropping tick")

// ErrRateLimited is returned when the rate limiter declines to admit this
// attempt; the scheduler's next regular tick will simply try again.
var ErrRateLimited = errors.New("jobrunner: rate limited, deferring to next tick")

// Runner executes one feed fetch end to end.
type Runner struct {
	repo       repository.FeedRepository
	crawler    crawler.FeedCrawler
	normalizer normalizer.FeedNormalizer
	limiter    *ratelimit.Manager
	metrics    *metrics.Registry
	logger     logging.Logger
	clock      timeprovider.TimeProvider
	itemCap    int64
}

// New constructs a Runner from its collaborators.
func New(
	repo repository.FeedRepository,
	crawlerImpl crawler.FeedCrawler,
	normalizerImpl normalizer.FeedNormalizer,
	limiter *ratelimit.Manager,
	metricsRegistry *metrics.Registry,
	logger logging.Logger,
	clock timeprovider.TimeProvider,
	itemCap int64,
) *Runner {
	return &Runner{
		repo:       repo,
		crawler:    crawlerImpl,
		normalizer: normalizerImpl,
		limiter:    limiter,
		metrics:    metricsRegistry,
		logger:     logger,
		clock:      clock,
		itemCap:    itemCap,
	}
}

// RunJob fetches, normalizes, and persists one feed by id. It always clears
// the feed's fetch lock before returning, even on panic, so a single
// misbehaving job never permanently starves a feed's future ticks.
func (r *Runner) RunJob(ctx context.Context, feedID int64) (err error) {
	feed, err := r.repo.GetFeed(ctx, feedID)
	if err != nil {
		return fmt.Errorf("get feed %d: %w", feedID, err)
	}

	acquired, err := r.repo.AcquireFeedLock(ctx, feedID)
	if err != nil {
		return fmt.Errorf("acquire lock for feed %d: %w", feedID, err)
	}
	if !acquired {
		return ErrLockHeld
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("jobrunner: panic running feed %d: %v", feedID, p)
			r.logFetch(context.Background(), feedID, 0, 0, 0, err.Error(), 0)
		}
		if releaseErr := r.repo.ReleaseFeedLock(context.Background(), feedID); releaseErr != nil {
			r.logger.Error("release feed lock for feed %d: %v", feedID, releaseErr)
		}
	}()

	host := hostOf(feed.URL)

	effectiveInterval := time.Duration(float64(feed.IntervalSeconds)*feed.BackoffMultiplier) * time.Second
	r.logger.Debug("feed %d effective interval %v (backoff multiplier %.1f)", feed.ID, effectiveInterval, feed.BackoffMultiplier)

	allowed, err := r.limiter.Acquire(ctx, host)
	if err != nil {
		return fmt.Errorf("acquire rate limit slot for %s: %w", host, err)
	}
	if !allowed {
		return ErrRateLimited
	}
	defer r.limiter.Release()

	start := r.clock.Now()
	result, fetchErr := r.crawler.FetchWithRetry(ctx, feed.URL, feed.ETag, feed.LastModified, func(retryHost string, delay time.Duration) {
		r.limiter.SetCooldown(retryHost, delay)
	})
	duration := r.clock.Since(start)

	if fetchErr != nil {
		r.finishWithTransportError(ctx, feed, host, fetchErr, duration)
		return nil
	}

	r.limiter.Record(host, result.IsSuccess() || result.IsNotModified())

	switch {
	case result.IsNotModified():
		r.finishNotModified(ctx, feed, host, result, duration)
	case result.IsSuccess():
		r.finishSuccess(ctx, feed, host, result, duration)
	default:
		r.finishHTTPError(ctx, feed, host, result, duration)
	}
	return nil
}

func (r *Runner) finishWithTransportError(ctx context.Context, feed *repository.Feed, host string, fetchErr error, duration time.Duration) {
	r.logger.Warn("fetch feed %d (%s): %v", feed.ID, feed.URL, fetchErr)
	r.metrics.RecordFetchError(host, "transport_error")
	r.metrics.ObserveFetchDuration(feedIDLabel(feed.ID), host, "error", duration.Seconds())

	if err := r.repo.UpdateFeedStatus(ctx, feed.ID, repository.StatusError, "", ""); err != nil {
		r.logger.Error("update feed status for feed %d: %v", feed.ID, err)
	}
	if err := r.repo.UpdateAdaptiveBackoff(ctx, feed.ID, false); err != nil {
		r.logger.Error("update adaptive backoff for feed %d: %v", feed.ID, err)
	}
	r.logFetch(ctx, feed.ID, 0, 0, 0, fetchErr.Error(), duration)
}

func (r *Runner) finishNotModified(ctx context.Context, feed *repository.Feed, host string, result *crawler.FetchResult, duration time.Duration) {
	r.metrics.ObserveFetchDuration(feedIDLabel(feed.ID), host, "not_modified", duration.Seconds())

	if err := r.repo.UpdateFeedStatus(ctx, feed.ID, repository.StatusNotModified, result.ETag, result.LastModified); err != nil {
		r.logger.Error("update feed status for feed %d: %v", feed.ID, err)
	}
	if err := r.repo.UpdateAdaptiveBackoff(ctx, feed.ID, true); err != nil {
		r.logger.Error("update adaptive backoff for feed %d: %v", feed.ID, err)
	}
	r.logFetch(ctx, feed.ID, result.StatusCode, 0, 0, "", duration)
}

func (r *Runner) finishHTTPError(ctx context.Context, feed *repository.Feed, host string, result *crawler.FetchResult, duration time.Duration) {
	r.logger.Warn("fetch feed %d (%s) returned status %d", feed.ID, feed.URL, result.StatusCode)
	r.metrics.RecordFetchError(host, "http_error")
	r.metrics.ObserveFetchDuration(feedIDLabel(feed.ID), host, "error", duration.Seconds())

	if err := r.repo.UpdateFeedStatus(ctx, feed.ID, repository.StatusError, "", ""); err != nil {
		r.logger.Error("update feed status for feed %d: %v", feed.ID, err)
	}
	if err := r.repo.UpdateAdaptiveBackoff(ctx, feed.ID, false); err != nil {
		r.logger.Error("update adaptive backoff for feed %d: %v", feed.ID, err)
	}
	r.logFetch(ctx, feed.ID, result.StatusCode, 0, 0, result.ErrorMessage, duration)
}

func (r *Runner) finishSuccess(ctx context.Context, feed *repository.Feed, host string, result *crawler.FetchResult, duration time.Duration) {
	metadata, items, err := r.normalizer.Parse(ctx, feed.ID, result.Body)
	if err != nil {
		r.logger.Warn("parse feed %d (%s): %v", feed.ID, feed.URL, err)
		r.metrics.RecordFetchError(host, "parse_error")
		r.metrics.ObserveFetchDuration(feedIDLabel(feed.ID), host, "error", duration.Seconds())
		if statusErr := r.repo.UpdateFeedStatus(ctx, feed.ID, repository.StatusError, "", ""); statusErr != nil {
			r.logger.Error("update feed status for feed %d: %v", feed.ID, statusErr)
		}
		if backoffErr := r.repo.UpdateAdaptiveBackoff(ctx, feed.ID, false); backoffErr != nil {
			r.logger.Error("update adaptive backoff for feed %d: %v", feed.ID, backoffErr)
		}
		r.logFetch(ctx, feed.ID, result.StatusCode, 0, 0, err.Error(), duration)
		return
	}

	status := repository.StatusSuccess
	if len(items) == 0 {
		status = repository.StatusNoItems
	}
	r.metrics.ObserveFetchDuration(feedIDLabel(feed.ID), host, "success", duration.Seconds())

	if err := r.repo.UpdateFeedStatus(ctx, feed.ID, status, result.ETag, result.LastModified); err != nil {
		r.logger.Error("update feed status for feed %d: %v", feed.ID, err)
	}
	if err := r.repo.UpdateAdaptiveBackoff(ctx, feed.ID, true); err != nil {
		r.logger.Error("update adaptive backoff for feed %d: %v", feed.ID, err)
	}

	repoItems := make([]repository.Item, 0, len(items))
	var newestPublished time.Time
	for _, item := range items {
		repoItems = append(repoItems, repository.Item{
			FeedID:    item.FeedID,
			Title:     item.Title,
			Link:      item.Link,
			Published: item.Published,
			Author:    item.Author,
			Summary:   item.Summary,
			Thumbnail: item.Thumbnail,
			GUID:      item.GUID,
		})
		if item.Published.After(newestPublished) {
			newestPublished = item.Published
		}
	}

	newCount, err := r.repo.AddItems(ctx, repoItems, r.itemCap)
	if err != nil {
		r.logger.Error("add items for feed %d: %v", feed.ID, err)
	} else {
		r.metrics.RecordNewItems(feedIDLabel(feed.ID), int(newCount))
	}

	if !newestPublished.IsZero() {
		if err := r.repo.UpdateFeedPublishedTime(ctx, feed.ID, newestPublished); err != nil {
			r.logger.Error("update published time for feed %d: %v", feed.ID, err)
		}
	}

	if metadata != nil {
		r.logger.Debug("fetched feed %d (%s): %d items, %d new", feed.ID, metadata.Title, len(items), newCount)
	}

	r.logFetch(ctx, feed.ID, result.StatusCode, len(items), int(newCount), "", duration)
}

func (r *Runner) logFetch(ctx context.Context, feedID int64, statusCode, itemsFound, itemsNew int, errMsg string, duration time.Duration) {
	entry := repository.FetchLogEntry{
		FeedID:       feedID,
		StatusCode:   statusCode,
		ItemsFound:   itemsFound,
		ItemsNew:     itemsNew,
		ErrorMessage: errMsg,
		FetchTime:    r.clock.Now(),
		DurationMs:   duration.Milliseconds(),
	}
	if err := r.repo.LogFetch(ctx, entry); err != nil {
		r.logger.Error("log fetch for feed %d: %v", feedID, err)
	}
}

func feedIDLabel(id int64) string {
	return fmt.Sprintf("%d", id)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	return u.Hostname()
}
