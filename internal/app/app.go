package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnrirwin/newsdesk/internal/aggregator"
	"github.com/johnrirwin/newsdesk/internal/auth"
	"github.com/johnrirwin/newsdesk/internal/cache"
	"github.com/johnrirwin/newsdesk/internal/config"
	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/httpapi"
	"github.com/johnrirwin/newsdesk/internal/jobs"
	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/mcp"
	"github.com/johnrirwin/newsdesk/internal/memstore"
	"github.com/johnrirwin/newsdesk/internal/moderation"
	"github.com/johnrirwin/newsdesk/internal/newsroom"
	"github.com/johnrirwin/newsdesk/internal/ratelimit"
	"github.com/johnrirwin/newsdesk/internal/rewrite"
	"github.com/johnrirwin/newsdesk/internal/scraper"
	"github.com/johnrirwin/newsdesk/internal/sources"
)

const redisPrefix = "newsdesk:"

type stores struct {
	feed       aggregator.Store
	news       newsroom.NewsStore
	categories interface {
		newsroom.CategoryStore
		httpapi.CategoryLister
	}
	quizzes newsroom.QuizStore
}

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Cache
	Aggregator     *aggregator.Aggregator
	Newsroom       *newsroom.Pipeline
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	MCPServer      *mcp.Server
	Jobs           *jobs.Runner
	db             *database.DB
	stores         stores
	redisClient    *redis.Client
	refreshLimiter ratelimit.RateLimiter
	rewriteBackend *rewrite.GeminiBackend
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize logger
	app.Logger = app.initLogger()

	// Initialize cache
	app.Cache = app.initCache()

	// Initialize database or in-memory stores
	app.initStores()

	// Host limiter shared by fetchers and the scraper
	limiter := ratelimit.New(cfg.Server.RateLimitDur)
	fetchers := app.initFetchers(limiter)

	aggConfig := aggregator.DefaultConfig()
	aggConfig.Concurrency = cfg.Sources.Concurrency
	aggConfig.Retention = cfg.Schedule.RetentionAge
	aggConfig.FeedCacheTTL = cfg.Cache.TTL
	app.Aggregator = aggregator.New(fetchers, app.stores.feed, app.Cache, app.Logger, aggConfig)

	app.initNewsroom(fetchers, limiter)

	// Initialize auth
	app.AuthService = auth.NewService(cfg.Auth, app.Logger)
	app.AuthMiddleware = auth.NewMiddleware(app.AuthService)

	app.initJobs()
	app.initServers()

	return app, nil
}

// Run starts the application in the appropriate mode
func (a *App) Run(ctx context.Context) error {
	if a.Config.Server.RunOnceMode {
		return a.runOnce(ctx)
	}
	if a.Config.Server.MCPMode {
		return a.runMCPMode(ctx)
	}
	return a.runHTTPMode(ctx)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.Jobs != nil {
		a.Jobs.Wait()
	}

	if a.rewriteBackend != nil {
		if err := a.rewriteBackend.Close(); err != nil {
			a.Logger.Warn("Gemini client close error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	switch c := a.Cache.(type) {
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	case *cache.MemoryCache:
		c.Stop()
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(a.Config.Logging.Level))
}

func (a *App) initCache() cache.Cache {
	window := a.Config.Server.RefreshWindow
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: redisPrefix,
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			a.refreshLimiter = ratelimit.New(window)
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		// Use Redis for distributed rate limiting and job locks when available
		a.redisClient = redisCache.Client()
		a.refreshLimiter = ratelimit.NewRedis(a.redisClient, redisPrefix+"ratelimit:", window)
		a.Logger.Info("Using Redis for distributed rate limiting")
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		a.refreshLimiter = ratelimit.New(window)
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

func (a *App) initStores() {
	dbConfig := database.DefaultConfig()
	dbConfig.Host = a.Config.Database.Host
	dbConfig.Port = a.Config.Database.Port
	dbConfig.User = a.Config.Database.User
	dbConfig.Password = a.Config.Database.Password
	dbConfig.Database = a.Config.Database.Database
	dbConfig.SSLMode = a.Config.Database.SSLMode

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(dbConfig)
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, using in-memory stores", logging.WithField("error", err.Error()))
		a.useMemoryStores(ctx)
		return
	}

	a.Logger.Info("Connected to PostgreSQL")
	if err := db.Migrate(ctx); err != nil {
		a.Logger.Warn("Failed to run migrations, using in-memory stores", logging.WithField("error", err.Error()))
		_ = db.Close()
		a.useMemoryStores(ctx)
		return
	}

	a.db = db
	categories := database.NewCategoryStore(db)
	if err := categories.EnsureDefaults(ctx); err != nil {
		a.Logger.Warn("Failed to seed categories", logging.WithField("error", err.Error()))
	}

	a.stores = stores{
		feed:       database.NewFeedArticleStore(db),
		news:       database.NewNewsStore(db),
		categories: categories,
		quizzes:    database.NewQuizStore(db),
	}
}

func (a *App) useMemoryStores(ctx context.Context) {
	quizzes := memstore.NewQuizzes()
	categories := memstore.NewCategories()
	_ = categories.EnsureDefaults(ctx)
	a.stores = stores{
		feed:       memstore.NewFeedArticles(),
		news:       memstore.NewNews(quizzes),
		categories: categories,
		quizzes:    quizzes,
	}
}

func (a *App) initFetchers(limiter *ratelimit.Limiter) []sources.Fetcher {
	src := a.Config.Sources
	fetcherConfig := sources.DefaultConfig()
	fetcherConfig.Timeout = src.FetchTimeout
	fetcherConfig.MaxItems = src.MaxItems
	fetcherConfig.Concurrency = src.Concurrency

	newsAPI := sources.DefaultNewsAPIConfig()
	newsAPI.APIKey = src.NewsAPIKey
	newsAPI.BaseURL = src.NewsAPIBaseURL
	newsAPI.PageSize = src.NewsAPIPageSize
	newsAPI.MaxPages = src.NewsAPIMaxPages
	if newsAPI.APIKey == "" {
		a.Logger.Info("NEWS_API_KEY not set, NewsAPI sources disabled")
	}

	// Try to load feeds from config file
	configPath := src.FeedsConfigPath
	if configPath == "" {
		configPath = sources.FindFeedsConfig()
	}
	if configPath != "" {
		feedsConfig, err := sources.LoadFeedsConfig(configPath)
		if err != nil {
			a.Logger.Warn("Failed to load feeds config, using defaults", logging.WithFields(map[string]interface{}{
				"path":  configPath,
				"error": err.Error(),
			}))
		} else {
			a.Logger.Info("Loaded feeds configuration", logging.WithFields(map[string]interface{}{
				"path":    configPath,
				"sources": len(feedsConfig.Sources),
			}))
			return sources.CreateFetchersFromConfig(feedsConfig, limiter, fetcherConfig, newsAPI)
		}
	} else {
		a.Logger.Info("No feeds config found, using default sources")
	}

	// Fallback to default config
	return sources.CreateFetchersFromConfig(sources.GetDefaultFeedsConfig(), limiter, fetcherConfig, newsAPI)
}

func (a *App) initNewsroom(fetchers []sources.Fetcher, limiter *ratelimit.Limiter) {
	ai := a.Config.AI
	if ai.GeminiAPIKey == "" {
		a.Logger.Warn("GEMINI_API_KEY not set, rewrite pipeline disabled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := rewrite.NewGeminiBackend(ctx, ai.GeminiAPIKey)
	if err != nil {
		a.Logger.Error("Failed to create Gemini client, rewrite pipeline disabled", logging.WithField("error", err.Error()))
		return
	}
	a.rewriteBackend = backend

	rwConfig := rewrite.DefaultConfig()
	rwConfig.Models = ai.Models
	rwConfig.AttemptsPerModel = ai.AttemptsPerModel
	rwConfig.Backoff = ai.Backoff
	rwConfig.MaxInputChars = ai.MaxInputChars
	rewriter := rewrite.New(backend, rwConfig, a.Logger)

	scrConfig := scraper.DefaultConfig()
	scrConfig.Timeout = a.Config.Scraper.Timeout
	scrConfig.MinDelay = a.Config.Scraper.MinDelay
	scrConfig.MaxDelay = a.Config.Scraper.MaxDelay
	scrConfig.BlockedDomains = a.Config.Scraper.BlockedDomains
	scr := scraper.New(scrConfig, limiter, a.Logger)

	nrConfig := newsroom.DefaultConfig()
	nrConfig.Limit = ai.ItemsPerRun
	nrConfig.Stagger = ai.Stagger
	nrConfig.ItemDelay = ai.ItemDelay
	nrConfig.MinWords = ai.MinWords
	nrConfig.FetchConcurrency = a.Config.Sources.Concurrency
	nrConfig.GenerateQuizzes = ai.GenerateQuizzes

	a.Newsroom = newsroom.New(fetchers, a.stores.news, a.stores.categories, a.stores.quizzes, scr, rewriter, a.Logger, nrConfig)

	if checker := a.initModeration(ctx, scrConfig.UserAgent); checker != nil {
		a.Newsroom.WithImageChecker(checker)
	}
}

func (a *App) initModeration(ctx context.Context, userAgent string) *moderation.ImageChecker {
	mod := a.Config.Moderation
	if !mod.Enabled {
		return nil
	}

	detector, err := moderation.NewAWSDetector(ctx, mod.AWSRegion)
	if err != nil {
		a.Logger.Error("Failed to initialize Rekognition, image moderation disabled", logging.WithField("error", err.Error()))
		return nil
	}

	a.Logger.Info("Image moderation enabled", logging.WithField("region", mod.AWSRegion))
	svc := moderation.NewService(detector, mod.RejectConfidence)
	return moderation.NewImageChecker(svc, mod.Timeout, userAgent, a.Logger)
}

func (a *App) initJobs() {
	var lock jobs.Lock
	if a.redisClient != nil && a.Config.Schedule.DistributedLock {
		lock = jobs.NewRedisLock(a.redisClient, redisPrefix+"jobs:")
	}
	a.Jobs = jobs.New(lock, a.Logger)

	for _, job := range a.jobList() {
		a.Jobs.Add(job)
	}
}

func (a *App) jobList() []jobs.Job {
	sched := a.Config.Schedule
	list := []jobs.Job{
		{
			Name:       "aggregation",
			Interval:   sched.Aggregation,
			RunOnStart: sched.RunOnStart,
			Run: func(ctx context.Context) error {
				_, err := a.Aggregator.Run(ctx)
				return err
			},
		},
		{
			Name:     "retention",
			Interval: sched.Retention,
			Run: func(ctx context.Context) error {
				_, err := a.Aggregator.Cleanup(ctx)
				return err
			},
		},
	}

	if a.Newsroom == nil {
		return list
	}

	return append(list,
		jobs.Job{
			Name:       "rewrite",
			Interval:   sched.Rewrite,
			RunOnStart: sched.RunOnStart,
			Run: func(ctx context.Context) error {
				if result := a.Newsroom.Run(ctx); !result.Success {
					return errors.New(result.Error)
				}
				return nil
			},
		},
		jobs.Job{
			Name:       "promotion",
			Interval:   sched.Promotion,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.Newsroom.Promote(ctx, time.Now())
				return err
			},
		},
	)
}

func (a *App) initServers() {
	opts := httpapi.Options{
		Categories:          a.stores.categories,
		RefreshLimiter:      a.refreshLimiter,
		EnableManualRefresh: a.Config.Server.EnableManualRefresh,
	}

	// A nil *Pipeline must not be stored in the interface.
	var nr httpapi.Newsroom
	if a.Newsroom != nil {
		nr = a.Newsroom
	}
	a.HTTPServer = httpapi.New(a.Aggregator, nr, a.AuthService, a.AuthMiddleware, a.Logger, opts)

	var mcpNewsroom mcp.Newsroom
	if a.Newsroom != nil {
		mcpNewsroom = a.Newsroom
	}
	a.MCPServer = mcp.NewServer(mcp.NewHandler(a.Aggregator, mcpNewsroom, a.Logger), a.Logger)
}

// runOnce runs aggregation, rewrite and promotion in order, then returns.
func (a *App) runOnce(ctx context.Context) error {
	a.Logger.Info("Running pipelines once")

	var errs []error
	for _, job := range a.jobList() {
		if job.Name == "retention" {
			continue
		}
		if err := job.Run(ctx); err != nil {
			a.Logger.Error("Run-once job failed", logging.WithFields(map[string]interface{}{
				"job":   job.Name,
				"error": err.Error(),
			}))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) runMCPMode(ctx context.Context) error {
	a.Logger.Info("Starting MCP server in stdio mode")

	a.Logger.Info("Pre-fetching feeds...")
	if _, err := a.Aggregator.Run(ctx); err != nil {
		a.Logger.Warn("Initial fetch had errors", logging.WithField("error", err.Error()))
	}

	return a.MCPServer.Run(ctx)
}

func (a *App) runHTTPMode(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	a.Jobs.Start(ctx)

	if err := a.HTTPServer.Start(a.Config.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
