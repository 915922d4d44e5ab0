// Package scheduler drives the polling engine: one ticker per feed at its own
// jittered interval, a bounded worker pool so a burst of simultaneous ticks
// can't overrun the machine, and two fixed-cadence maintenance jobs (fetch
// log retention, feed degradation sweep) run on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/adewale/rogue_planet/pkg/jobrunner"
	"github.com/adewale/rogue_planet/pkg/logging"
	"github.com/adewale/rogue_planet/pkg/metrics"
	"github.com/adewale/rogue_planet/pkg/repository"
	"github.com/adewale/rogue_planet/pkg/timeprovider"
)

// jitterMin and jitterMax bound the multiplicative jitter applied to each
// feed's configured interval, so that feeds registered at the same moment
// don't all tick in lockstep forever.
const (
	jitterMin = 0.9
	jitterMax = 1.1
)

// Config holds the scheduler's tunable knobs.
type Config struct {
	MaxWorkers            int
	MaintenanceCron       string
	DegradationCron       string
	DegradationTTLHours   int
	FetchLogRetentionDays int
}

// Scheduler owns one goroutine per registered feed plus a cron-driven
// maintenance loop, and funnels all fetch work through a bounded pool. The
// pool sits at the scheduler layer and bounds concurrent jobs machine-wide;
// the rate limiter's own semaphore (pkg/ratelimit) separately bounds
// concurrent in-flight HTTP requests, so the two serve different purposes
// even though both are "a cap on concurrency."
type Scheduler struct {
	repo   repository.FeedRepository
	runner *jobrunner.Runner
	metric *metrics.Registry
	logger logging.Logger
	clock  timeprovider.TimeProvider
	cfg    Config

	pool         *semaphore.Weighted
	poolCapacity int64
	queueDepth   int64 // accessed only via sync/atomic

	mu        sync.Mutex
	stopChs   map[int64]chan struct{}
	nextRun   map[int64]time.Time
	running   bool
	startedAt time.Time

	cronRunner *cron.Cron
}

// New constructs a Scheduler using the system clock. Call Start to begin
// ticking registered feeds.
func New(repo repository.FeedRepository, runner *jobrunner.Runner, metricRegistry *metrics.Registry, logger logging.Logger, cfg Config) *Scheduler {
	return NewWithTimeProvider(repo, runner, metricRegistry, logger, cfg, timeprovider.WallClock{})
}

// NewWithTimeProvider constructs a Scheduler with an injected clock, so
// uptime and next-run bookkeeping can be driven deterministically in tests
// via timeprovider.FakeClock instead of the wall clock.
func NewWithTimeProvider(repo repository.FeedRepository, runner *jobrunner.Runner, metricRegistry *metrics.Registry, logger logging.Logger, cfg Config, clock timeprovider.TimeProvider) *Scheduler {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 8
	}
	return &Scheduler{
		repo:         repo,
		runner:       runner,
		metric:       metricRegistry,
		logger:       logger,
		clock:        clock,
		cfg:          cfg,
		pool:         semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		poolCapacity: int64(cfg.MaxWorkers),
		stopChs:      make(map[int64]chan struct{}),
		nextRun:      make(map[int64]time.Time),
	}
}

// Start loads every feed from the store, registers a ticker for each, and
// starts the cron-driven maintenance jobs. It returns once everything is
// registered; ticking continues in the background until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.startedAt = s.clock.Now()
	s.mu.Unlock()

	feeds, err := s.repo.GetFeeds(ctx, true)
	if err != nil {
		return err
	}
	for _, feed := range feeds {
		s.Register(feed.ID, time.Duration(feed.IntervalSeconds)*time.Second)
	}

	loc := time.UTC
	s.cronRunner = cron.New(cron.WithLocation(loc))
	if _, err := s.cronRunner.AddFunc(s.cfg.MaintenanceCron, func() { s.runMaintenance(context.Background()) }); err != nil {
		return err
	}
	if _, err := s.cronRunner.AddFunc(s.cfg.DegradationCron, func() { s.runDegradation(context.Background()) }); err != nil {
		return err
	}
	s.cronRunner.Start()

	return nil
}

// Stop halts every per-feed ticker and the cron runner. Jobs already admitted
// to the worker pool are allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	for _, stop := range s.stopChs {
		close(stop)
	}
	s.stopChs = make(map[int64]chan struct{})
	s.nextRun = make(map[int64]time.Time)
	if s.cronRunner != nil {
		s.cronRunner.Stop()
	}
}

// Register starts a per-feed ticker at a jittered version of interval and
// fires one immediate tick so a newly-added feed doesn't wait a full interval
// for its first fetch.
func (s *Scheduler) Register(feedID int64, interval time.Duration) {
	stop := make(chan struct{})
	jittered := jitter(interval)

	s.mu.Lock()
	if old, exists := s.stopChs[feedID]; exists {
		close(old)
	}
	s.stopChs[feedID] = stop
	s.nextRun[feedID] = s.clock.Now().Add(jittered)
	s.mu.Unlock()

	go s.tick(feedID)
	go s.runLoop(feedID, jittered, stop)
}

// Unregister stops a feed's ticker, e.g. after it has been removed or disabled.
func (s *Scheduler) Unregister(feedID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.stopChs[feedID]; ok {
		close(stop)
		delete(s.stopChs, feedID)
	}
	delete(s.nextRun, feedID)
}

// Refresh fires an out-of-band tick for feedID immediately, without disturbing
// its regular ticker.
func (s *Scheduler) Refresh(feedID int64) {
	go s.tick(feedID)
}

// Job summarizes one registered feed's ticker for the status API.
type Job struct {
	FeedID  int64
	NextRun time.Time
}

// Status summarizes the scheduler's current state for the status API, per
// the get_scheduler_status control-surface contract:
// {running, job_count, uptime_seconds, jobs[{id,name,next_run}]}. Job names
// are an external-collaborator concern (the store has them); the scheduler
// reports by feed id only.
type Status struct {
	Running         bool
	RegisteredFeeds int
	QueueDepth      int
	PoolCapacity    int
	UptimeSeconds   float64
	Jobs            []Job
}

// GetSchedulerStatus returns a snapshot of the scheduler's load.
func (s *Scheduler) GetSchedulerStatus() Status {
	s.mu.Lock()
	registered := len(s.stopChs)
	running := s.running
	startedAt := s.startedAt
	jobs := make([]Job, 0, len(s.nextRun))
	for feedID, next := range s.nextRun {
		jobs = append(jobs, Job{FeedID: feedID, NextRun: next})
	}
	s.mu.Unlock()

	var uptime float64
	if running && !startedAt.IsZero() {
		uptime = s.clock.Since(startedAt).Seconds()
	}

	return Status{
		Running:         running,
		RegisteredFeeds: registered,
		QueueDepth:      int(atomic.LoadInt64(&s.queueDepth)),
		PoolCapacity:    int(s.poolCapacity),
		UptimeSeconds:   uptime,
		Jobs:            jobs,
	}
}

func (s *Scheduler) runLoop(feedID int64, interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.nextRun[feedID] = s.clock.Now().Add(interval)
			s.mu.Unlock()
			s.tick(feedID)
		case <-stop:
			return
		}
	}
}

// tick admits one fetch job to the bounded worker pool. If the pool is
// saturated the tick is dropped outright — the feed's next regular tick, or a
// manual Refresh, will try again rather than queuing unboundedly.
func (s *Scheduler) tick(feedID int64) {
	if !s.pool.TryAcquire(1) {
		s.logger.Warn("scheduler: worker pool saturated, dropping tick for feed %d", feedID)
		return
	}

	depth := atomic.AddInt64(&s.queueDepth, 1)
	s.metric.SetSchedulerQueueDepth(int(depth))

	go func() {
		defer func() {
			s.pool.Release(1)
			depth := atomic.AddInt64(&s.queueDepth, -1)
			s.metric.SetSchedulerQueueDepth(int(depth))
		}()

		err := s.runner.RunJob(context.Background(), feedID)
		if err == nil {
			return
		}
		if errors.Is(err, jobrunner.ErrLockHeld) || errors.Is(err, jobrunner.ErrRateLimited) {
			s.logger.Debug("scheduler: feed %d tick skipped: %v", feedID, err)
			return
		}
		s.logger.Error("scheduler: run job for feed %d: %v", feedID, err)
	}()
}

// newItemAgeHours is the window after which an item stops counting as "new"
// (Item.is_new), matching the 1h window in the item entity's invariants.
const newItemAgeHours = 1

func (s *Scheduler) runMaintenance(ctx context.Context) {
	s.logger.Info("scheduler: running daily maintenance")

	n, err := s.repo.PruneOldFetchLogs(ctx, s.cfg.FetchLogRetentionDays)
	if err != nil {
		s.logger.Error("scheduler: prune old fetch logs: %v", err)
	} else {
		s.logger.Info("scheduler: maintenance pruned %d fetch log rows", n)
	}

	demoted, err := s.repo.MarkOldItemsAsRead(ctx, newItemAgeHours)
	if err != nil {
		s.logger.Error("scheduler: demote new items: %v", err)
	} else {
		s.logger.Debug("scheduler: maintenance demoted %d items from is_new", demoted)
	}

	if err := s.repo.Vacuum(ctx); err != nil {
		s.logger.Error("scheduler: vacuum: %v", err)
	}

	s.reportGauges(ctx)
}

func (s *Scheduler) reportGauges(ctx context.Context) {
	stats, err := s.repo.GetFeedStats(ctx)
	if err != nil {
		s.logger.Error("scheduler: get feed stats: %v", err)
	} else {
		s.metric.SetFeedAndItemCounts(stats.TotalFeeds, stats.TotalItems)
	}

	size, err := s.repo.DBSize(ctx)
	if err != nil {
		s.logger.Error("scheduler: get db size: %v", err)
		return
	}
	s.metric.SetDBSizeBytes(size)
}

func (s *Scheduler) runDegradation(ctx context.Context) {
	n, err := s.repo.CheckAndDegradeFeeds(ctx, s.cfg.DegradationTTLHours)
	if err != nil {
		s.logger.Error("scheduler: check and degrade feeds: %v", err)
		return
	}
	if n > 0 {
		s.logger.Warn("scheduler: %d feeds newly marked degraded", n)
	}
}

// jitter returns interval scaled by a uniform random factor in
// [jitterMin, jitterMax), rounded to the nearest millisecond.
func jitter(interval time.Duration) time.Duration {
	factor := jitterMin + rand.Float64()*(jitterMax-jitterMin)
	return time.Duration(float64(interval) * factor).Round(time.Millisecond)
}
