// Package api exposes the read/control HTTP surface for the polling engine:
// item search, feed listing, a manual refresh trigger, scheduler status, and
// the Prometheus /metrics endpoint. It is an external collaborator that reads
// the store and scheduler the core populates; it never touches the fetch path
// directly.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adewale/rogue_planet/pkg/logging"
	"github.com/adewale/rogue_planet/pkg/metrics"
	"github.com/adewale/rogue_planet/pkg/repository"
	"github.com/adewale/rogue_planet/pkg/scheduler"
)

// Scheduler is the subset of *scheduler.Scheduler the API needs, so tests can
// inject a double instead of driving a real ticking scheduler.
type Scheduler interface {
	Refresh(feedID int64)
	GetSchedulerStatus() scheduler.Status
}

// Server wires the repository, scheduler, and metrics registry into an
// http.Handler.
type Server struct {
	repo    repository.FeedRepository
	sched   Scheduler
	metrics *metrics.Registry
	logger  logging.Logger
	router  chi.Router
}

// New builds a Server and sets up its routes.
func New(repo repository.FeedRepository, sched Scheduler, metricsRegistry *metrics.Registry, logger logging.Logger) *Server {
	s := &Server{repo: repo, sched: sched, metrics: metricsRegistry, logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/feeds", s.handleListFeeds)
	r.Get("/items", s.handleSearchItems)
	r.Post("/refresh/{feedID}", s.handleRefreshFeed)
	r.Get("/scheduler/status", s.handleSchedulerStatus)
	r.Handle("/metrics", s.metrics.Handler())

	s.router = r
}

// Handler returns the HTTP handler this Server serves.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.repo.GetFeeds(r.Context(), false)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, feeds)
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := repository.GetItemsOptions{
		Search: q.Get("q"),
		Sort:   q.Get("sort"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = limit
	}
	if feedIDStr := q.Get("feed_id"); feedIDStr != "" {
		if feedID, err := strconv.ParseInt(feedIDStr, 10, 64); err == nil {
			opts.FeedID = &feedID
		}
	}

	items, err := s.repo.GetItems(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRefreshFeed(w http.ResponseWriter, r *http.Request) {
	feedIDStr := chi.URLParam(r, "feedID")
	feedID, err := strconv.ParseInt(feedIDStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := s.repo.GetFeed(ctx, feedID); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	s.sched.Refresh(feedID)
	s.writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "feed_id": feedID})
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sched.GetSchedulerStatus())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("api: encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
