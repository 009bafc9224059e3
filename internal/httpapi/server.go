package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/johnrirwin/newsdesk/internal/auth"
	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/newsroom"
	"github.com/johnrirwin/newsdesk/internal/ratelimit"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200

	refreshThrottleKey = "feed-refresh"
	rewriteThrottleKey = "newsroom-run"
)

// FeedService is the aggregated feed as seen by the API.
type FeedService interface {
	Run(ctx context.Context) (models.AggregationResult, error)
	Feed(ctx context.Context, query models.FeedQuery) (models.FeedResponse, error)
	Stats(ctx context.Context) (models.FeedStats, error)
	Sources() []models.SourceInfo
}

// Newsroom is the rewrite pipeline as seen by the API.
type Newsroom interface {
	Run(ctx context.Context) models.RewriteRunResult
	Promote(ctx context.Context, now time.Time) (int64, error)
	BackfillQuizzes(ctx context.Context, limit int) (int, error)
}

// CategoryLister lists the category registry.
type CategoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

// Options holds the optional parts of the server.
type Options struct {
	Categories          CategoryLister
	RefreshLimiter      ratelimit.RateLimiter
	EnableManualRefresh bool
	RefreshTimeout      time.Duration
}

type Server struct {
	feed           FeedService
	newsroom       Newsroom
	categories     CategoryLister
	authSvc        *auth.Service
	authMiddleware *auth.Middleware
	refreshLimiter ratelimit.RateLimiter
	manualRefresh  bool
	refreshTimeout time.Duration
	logger         *logging.Logger
	server         *http.Server
}

func New(feed FeedService, nr Newsroom, authSvc *auth.Service, authMiddleware *auth.Middleware, logger *logging.Logger, opts Options) *Server {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 5 * time.Minute
	}
	if authMiddleware == nil {
		authMiddleware = auth.NewMiddleware(authSvc)
	}
	return &Server{
		feed:           feed,
		newsroom:       nr,
		categories:     opts.Categories,
		authSvc:        authSvc,
		authMiddleware: authMiddleware,
		refreshLimiter: opts.RefreshLimiter,
		manualRefresh:  opts.EnableManualRefresh,
		refreshTimeout: opts.RefreshTimeout,
		logger:         logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Feed routes
	mux.HandleFunc("/api/feed", s.corsMiddleware(s.handleGetFeed))
	mux.HandleFunc("/api/feed/stats", s.corsMiddleware(s.handleGetStats))
	mux.HandleFunc("/api/feed/refresh", s.corsMiddleware(s.authMiddleware.RequireAdmin(s.handleRefresh)))
	mux.HandleFunc("/api/sources", s.corsMiddleware(s.handleGetSources))
	if s.categories != nil {
		mux.HandleFunc("/api/categories", s.corsMiddleware(s.handleGetCategories))
	}

	// Newsroom routes
	if s.newsroom != nil {
		newsroomAPI := NewNewsroomAPI(s.newsroom, s.authMiddleware, s.refreshLimiter, s.refreshTimeout, s.logger)
		newsroomAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Auth routes
	if s.authSvc != nil {
		authAPI := NewAuthAPI(s.authSvc, s.logger)
		authAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.refreshTimeout + 15*time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	params := models.FeedQuery{
		Category: query.Get("category"),
		Source:   query.Get("source"),
		Limit:    parseLimit(query.Get("limit"), defaultFeedLimit, maxFeedLimit),
		FromDate: query.Get("fromDate"),
		ToDate:   query.Get("toDate"),
	}

	response, err := s.feed.Feed(r.Context(), params)
	if err != nil {
		s.logger.Error("Failed to load feed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load feed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"count":      len(response.Items),
		"totalCount": response.TotalCount,
		"fetchedAt":  response.FetchedAt,
		"news":       response.Items,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.feed.Stats(r.Context())
	if err != nil {
		s.logger.Error("Failed to load feed stats", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sources := s.feed.Sources()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": sources,
		"count":   len(sources),
	})
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	categories, err := s.categories.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list categories", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.manualRefresh {
		writeError(w, http.StatusForbidden, "refresh_disabled", "manual refresh is disabled")
		return
	}
	if s.refreshLimiter != nil && !s.refreshLimiter.Allow(refreshThrottleKey) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "refresh was requested too recently")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.refreshTimeout)
	defer cancel()

	result, err := s.feed.Run(ctx)
	if err != nil {
		s.logger.Error("Failed to refresh feed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "refresh_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Feed refreshed successfully",
		"saved":      result.Saved,
		"skipped":    result.Skipped,
		"failed":     result.Failed,
		"fetched":    result.Fetched,
		"durationMs": result.Duration.Milliseconds(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func parseLimit(value string, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

var _ Newsroom = (*newsroom.Pipeline)(nil)
