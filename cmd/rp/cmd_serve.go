package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/adewale/rogue_planet/pkg/api"
	"github.com/adewale/rogue_planet/pkg/logging"
	"github.com/adewale/rogue_planet/pkg/scheduler"
)

// cmdServe runs the polling daemon: it loads every enabled feed into the
// scheduler, starts ticking them on their own intervals, and, if configured,
// serves the read/control HTTP API alongside it. It blocks until the given
// context is cancelled (normally by SIGINT/SIGTERM) and then drains both
// cleanly before returning.
func cmdServe(ctx context.Context, opts ServeOptions) error {
	level := "info"
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.New(level)

	cfg, repo, cleanup, err := openConfigAndRepo(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	co := buildCollaborators(cfg, repo, logger)

	sched := scheduler.New(repo, co.runner, co.metrics, logger.Component("scheduler"), scheduler.Config{
		MaxWorkers:            cfg.Scheduler.MaxWorkers,
		MaintenanceCron:       cfg.Scheduler.MaintenanceCron,
		DegradationCron:       cfg.Scheduler.DegradationCron,
		DegradationTTLHours:   cfg.Scheduler.DegradationTTLHours,
		FetchLogRetentionDays: cfg.Scheduler.FetchLogRetentionDays,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start loads every enabled feed from the store and registers its ticker;
	// it must be the only place registration happens, or a feed would end up
	// with two independent tickers racing each other.
	if err := sched.Start(runCtx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	status := sched.GetSchedulerStatus()
	fmt.Fprintf(opts.Output, "Registered %d feed(s)\n", status.RegisteredFeeds)

	var httpServer *http.Server
	serveErrs := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer := api.New(repo, sched, co.metrics, logger.Component("api"))
		httpServer = &http.Server{Addr: cfg.API.Addr, Handler: apiServer.Handler()}
		fmt.Fprintf(opts.Output, "Serving API on %s\n", cfg.API.Addr)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrs <- err
				return
			}
			serveErrs <- nil
		}()
	}

	fmt.Fprintln(opts.Output, "rp serve running, press Ctrl-C to stop")

	select {
	case <-runCtx.Done():
	case err := <-serveErrs:
		if err != nil {
			logger.Error("api server: %v", err)
		}
	}

	fmt.Fprintln(opts.Output, "Shutting down...")
	sched.Stop()

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shut down API server: %w", err)
		}
	}

	fmt.Fprintln(opts.Output, "Stopped")
	return nil
}
