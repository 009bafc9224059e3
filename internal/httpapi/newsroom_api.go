package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/johnrirwin/newsdesk/internal/auth"
	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/newsroom"
	"github.com/johnrirwin/newsdesk/internal/ratelimit"
)

// NewsroomAPI exposes the admin controls of the rewrite pipeline.
type NewsroomAPI struct {
	newsroom       Newsroom
	authMiddleware *auth.Middleware
	limiter        ratelimit.RateLimiter
	timeout        time.Duration
	logger         *logging.Logger
	now            func() time.Time
}

func NewNewsroomAPI(nr Newsroom, authMiddleware *auth.Middleware, limiter ratelimit.RateLimiter, timeout time.Duration, logger *logging.Logger) *NewsroomAPI {
	return &NewsroomAPI{
		newsroom:       nr,
		authMiddleware: authMiddleware,
		limiter:        limiter,
		timeout:        timeout,
		logger:         logger,
		now:            time.Now,
	}
}

// RegisterRoutes registers the newsroom routes. All of them require an admin token.
func (api *NewsroomAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/newsroom/run", corsMiddleware(api.authMiddleware.RequireAdmin(api.handleRun)))
	mux.HandleFunc("/api/newsroom/promote", corsMiddleware(api.authMiddleware.RequireAdmin(api.handlePromote)))
	mux.HandleFunc("/api/quizzes/backfill", corsMiddleware(api.authMiddleware.RequireAdmin(api.handleBackfill)))
}

func (api *NewsroomAPI) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if api.limiter != nil && !api.limiter.Allow(rewriteThrottleKey) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "rewrite was requested too recently")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), api.timeout)
	defer cancel()

	result := api.newsroom.Run(ctx)
	switch {
	case result.Error == newsroom.ErrRunInProgress.Error():
		writeJSON(w, http.StatusConflict, result)
	case !result.Success:
		api.logger.Error("Rewrite run failed", logging.WithField("error", result.Error))
		writeJSON(w, http.StatusInternalServerError, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (api *NewsroomAPI) handlePromote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	promoted, err := api.newsroom.Promote(r.Context(), api.now())
	if err != nil {
		api.logger.Error("Failed to promote scheduled news", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to promote news")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"promoted": promoted})
}

type backfillRequest struct {
	Limit int `json:"limit"`
}

func (api *NewsroomAPI) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Limit <= 0 {
		req.Limit = newsroom.DefaultBackfillLimit
	}
	if req.Limit > newsroom.MaxBackfillLimit {
		req.Limit = newsroom.MaxBackfillLimit
	}

	ctx, cancel := context.WithTimeout(r.Context(), api.timeout)
	defer cancel()

	created, err := api.newsroom.BackfillQuizzes(ctx, req.Limit)
	if err != nil {
		api.logger.Error("Quiz backfill failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "quiz backfill failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}
