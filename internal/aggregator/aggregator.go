package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/johnrirwin/newsdesk/internal/cache"
	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/dedup"
	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/ranking"
	"github.com/johnrirwin/newsdesk/internal/sources"
)

// ErrNoSources is returned by Run when no fetchers are configured.
var ErrNoSources = sources.ErrNoSources

const (
	feedVersionKey = "feed:version"
	statsKeyPrefix = "feed:stats:"
	feedKeyPrefix  = "feed:list:"
	versionTTL     = 7 * 24 * time.Hour
)

// Store is the persistence the aggregator writes ranked articles to.
type Store interface {
	InsertIfAbsent(ctx context.Context, article models.FeedArticle) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Query(ctx context.Context, query models.FeedQuery) ([]models.FeedArticle, int, error)
	Stats(ctx context.Context) (models.FeedStats, error)
}

type Config struct {
	Concurrency  int
	Retention    time.Duration
	FeedCacheTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:  8,
		Retention:    30 * 24 * time.Hour,
		FeedCacheTTL: 5 * time.Minute,
	}
}

type Aggregator struct {
	fetchers []sources.Fetcher
	store    Store
	cache    cache.Cache
	logger   *logging.Logger
	config   Config
	now      func() time.Time
}

func New(fetchers []sources.Fetcher, store Store, c cache.Cache, logger *logging.Logger, config Config) *Aggregator {
	return &Aggregator{
		fetchers: fetchers,
		store:    store,
		cache:    c,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// Run fetches every source, deduplicates and ranks the merged batch and
// stores each article unless its URL is already known. Per-source and
// per-article failures are logged and counted; only an empty fetch plan
// fails the run.
func (a *Aggregator) Run(ctx context.Context) (models.AggregationResult, error) {
	start := a.now()
	var result models.AggregationResult

	if len(a.fetchers) == 0 {
		return result, ErrNoSources
	}

	merged := make([]models.RawArticle, 0)
	for _, res := range sources.FetchAll(ctx, a.fetchers, a.config.Concurrency) {
		if res.Error != nil {
			a.logger.Warn("Failed to fetch from source", logging.WithFields(map[string]interface{}{
				"source": res.Source.Name,
				"error":  res.Error.Error(),
			}))
			continue
		}

		a.logger.Info("Fetched items from source", logging.WithFields(map[string]interface{}{
			"source": res.Source.Name,
			"count":  len(res.Items),
		}))
		merged = append(merged, res.Items...)
	}
	result.Fetched = len(merged)

	unique := dedup.Batch(merged)
	ranked := ranking.Rank(unique, start)
	ranking.Sort(ranked)

	for _, article := range ranked {
		if ctx.Err() != nil {
			break
		}

		inserted, err := a.store.InsertIfAbsent(ctx, article)
		switch {
		case errors.Is(err, database.ErrDuplicate) || (err == nil && !inserted):
			result.Skipped++
		case err != nil:
			result.Failed++
			a.logger.Error("Failed to save feed article", logging.WithFields(map[string]interface{}{
				"title": article.Title,
				"url":   article.URL,
				"error": err.Error(),
			}))
		default:
			result.Saved++
		}
	}

	if result.Saved > 0 {
		a.invalidate()
	}

	result.Duration = a.now().Sub(start)
	a.logger.Info("Aggregation complete", logging.WithFields(map[string]interface{}{
		"fetched":     result.Fetched,
		"unique":      len(unique),
		"saved":       result.Saved,
		"skipped":     result.Skipped,
		"failed":      result.Failed,
		"duration_ms": result.Duration.Milliseconds(),
	}))

	return result, nil
}

// Cleanup deletes stored articles older than the retention window.
func (a *Aggregator) Cleanup(ctx context.Context) (int64, error) {
	cutoff := a.now().Add(-a.config.Retention)
	deleted, err := a.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		a.invalidate()
		a.logger.Info("Removed expired feed articles", logging.WithFields(map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}))
	}
	return deleted, nil
}

// Feed returns the ranked feed for query, served from cache when possible.
func (a *Aggregator) Feed(ctx context.Context, query models.FeedQuery) (models.FeedResponse, error) {
	key := feedKeyPrefix + a.version() + ":" + queryKey(query)

	var cached models.FeedResponse
	if cache.GetInto(a.cache, key, &cached) {
		return cached, nil
	}

	items, total, err := a.store.Query(ctx, query)
	if err != nil {
		return models.FeedResponse{}, fmt.Errorf("query feed: %w", err)
	}

	resp := models.FeedResponse{
		Items:      items,
		TotalCount: total,
		FetchedAt:  a.now(),
	}
	if a.cache != nil {
		a.cache.SetWithTTL(key, resp, a.config.FeedCacheTTL)
	}
	return resp, nil
}

func (a *Aggregator) Stats(ctx context.Context) (models.FeedStats, error) {
	key := statsKeyPrefix + a.version()

	var cached models.FeedStats
	if cache.GetInto(a.cache, key, &cached) {
		return cached, nil
	}

	stats, err := a.store.Stats(ctx)
	if err != nil {
		return models.FeedStats{}, fmt.Errorf("feed stats: %w", err)
	}
	if a.cache != nil {
		a.cache.SetWithTTL(key, stats, a.config.FeedCacheTTL)
	}
	return stats, nil
}

func (a *Aggregator) Sources() []models.SourceInfo {
	sourcesInfo := make([]models.SourceInfo, 0, len(a.fetchers))
	for _, f := range a.fetchers {
		sourcesInfo = append(sourcesInfo, f.SourceInfo())
	}
	return sourcesInfo
}

// version is part of every cached key; bumping it orphans all cached
// listings at once, on every replica sharing the cache.
func (a *Aggregator) version() string {
	var v int64
	cache.GetInto(a.cache, feedVersionKey, &v)
	return strconv.FormatInt(v, 10)
}

func (a *Aggregator) invalidate() {
	if a.cache == nil {
		return
	}
	a.cache.Incr(feedVersionKey, versionTTL)
}

func queryKey(q models.FeedQuery) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(q.Category)),
		strings.ToLower(strings.TrimSpace(q.Source)),
		strconv.Itoa(q.Limit),
		q.FromDate,
		q.ToDate,
	}, "|")
}
