package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Auth       AuthConfig
	Sources    SourcesConfig
	Scraper    ScraperConfig
	AI         AIConfig
	Schedule   ScheduleConfig
	Moderation ModerationConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr            string
	RateLimitDur        time.Duration
	EnableManualRefresh bool
	RunOnceMode         bool          // run every pipeline once, then exit
	MCPMode             bool          // serve MCP over stdio instead of HTTP
	RefreshWindow       time.Duration // minimum gap between manual triggers
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds admin token configuration
type AuthConfig struct {
	JWTSecret         string
	JWTIssuer         string
	JWTAudience       string
	AccessTokenTTL    time.Duration
	AdminUsername     string
	AdminPasswordHash string // bcrypt; login is disabled when empty
}

// SourcesConfig controls the feed fetchers
type SourcesConfig struct {
	FeedsConfigPath string
	NewsAPIKey      string
	NewsAPIBaseURL  string
	NewsAPIPageSize int
	NewsAPIMaxPages int
	FetchTimeout    time.Duration
	MaxItems        int
	Concurrency     int
}

// ScraperConfig controls article page scraping
type ScraperConfig struct {
	Timeout        time.Duration
	MinDelay       time.Duration
	MaxDelay       time.Duration
	BlockedDomains []string
}

// AIConfig controls the rewrite pipeline
type AIConfig struct {
	GeminiAPIKey     string
	Models           []string
	AttemptsPerModel int
	Backoff          time.Duration
	MaxInputChars    int
	ItemsPerRun      int
	ItemDelay        time.Duration
	Stagger          time.Duration
	MinWords         int
	GenerateQuizzes  bool
}

// ScheduleConfig holds the intervals of the background jobs. A zero
// interval disables the job.
type ScheduleConfig struct {
	Aggregation     time.Duration
	Rewrite         time.Duration
	Promotion       time.Duration
	Retention       time.Duration
	RetentionAge    time.Duration
	RunOnStart      bool
	DistributedLock bool
}

// ModerationConfig holds lead image moderation settings.
type ModerationConfig struct {
	Enabled          bool
	AWSRegion        string
	RejectConfidence float64
	Timeout          time.Duration
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	httpAddr := flag.String("http", ":8080", "HTTP server address")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "Cache TTL for feed listings")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	rateLimitDur := flag.Duration("rate-limit", time.Second, "Minimum delay between requests to same host")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	runOnce := flag.Bool("run-once", false, "Run every pipeline once and exit")
	mcpMode := flag.Bool("mcp", false, "Run in MCP stdio mode")
	feedsConfig := flag.String("feeds-config", "", "Path to feeds.yaml or feeds.json")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "newsdesk", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	applyEnvOverrides(httpAddr, cacheTTL, cacheBackend, redisAddr, rateLimitDur, logLevel, runOnce, feedsConfig, dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg.Server = ServerConfig{
		HTTPAddr:            *httpAddr,
		RateLimitDur:        *rateLimitDur,
		EnableManualRefresh: getEnvBool("ENABLE_MANUAL_REFRESH", true),
		RunOnceMode:         *runOnce,
		MCPMode:             *mcpMode || getEnvBool("MCP_MODE", false),
		RefreshWindow:       getEnvDuration("REFRESH_WINDOW", 2*time.Minute),
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.Auth = loadAuthConfig()
	cfg.Sources = loadSourcesConfig(*feedsConfig)
	cfg.Scraper = loadScraperConfig()
	cfg.AI = loadAIConfig()
	cfg.Schedule = loadScheduleConfig()
	cfg.Moderation = loadModerationConfig()

	return cfg
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:         getEnvOrDefault("AUTH_JWT_SECRET", "change-me-in-production"),
		JWTIssuer:         getEnvOrDefault("AUTH_JWT_ISSUER", "newsdesk"),
		JWTAudience:       getEnvOrDefault("AUTH_JWT_AUDIENCE", "newsdesk-admin"),
		AccessTokenTTL:    getEnvDuration("AUTH_ACCESS_TOKEN_TTL", 12*time.Hour),
		AdminUsername:     getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
	}
}

func loadSourcesConfig(feedsConfigPath string) SourcesConfig {
	return SourcesConfig{
		FeedsConfigPath: feedsConfigPath,
		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		NewsAPIBaseURL:  getEnvOrDefault("NEWS_API_BASE_URL", "https://newsapi.org/v2"),
		NewsAPIPageSize: getEnvInt("NEWS_API_PAGE_SIZE", 20),
		NewsAPIMaxPages: getEnvInt("NEWS_API_MAX_PAGES", 3),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxItems:        getEnvInt("FETCH_MAX_ITEMS", 50),
		Concurrency:     getEnvInt("FETCH_CONCURRENCY", 8),
	}
}

func loadScraperConfig() ScraperConfig {
	return ScraperConfig{
		Timeout:        getEnvDuration("SCRAPE_TIMEOUT", 10*time.Second),
		MinDelay:       getEnvDuration("SCRAPE_MIN_DELAY", time.Second),
		MaxDelay:       getEnvDuration("SCRAPE_MAX_DELAY", 3*time.Second),
		BlockedDomains: getEnvList("SCRAPE_BLOCKED_DOMAINS", []string{"nytimes.com"}),
	}
}

func loadAIConfig() AIConfig {
	return AIConfig{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		Models:           getEnvList("AI_MODELS", []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}),
		AttemptsPerModel: getEnvInt("AI_ATTEMPTS_PER_MODEL", 2),
		Backoff:          getEnvDuration("AI_BACKOFF", time.Second),
		MaxInputChars:    getEnvInt("AI_MAX_INPUT_CHARS", 6000),
		ItemsPerRun:      getEnvInt("AI_ITEMS_PER_RUN", 10),
		ItemDelay:        getEnvDuration("AI_ITEM_DELAY", 2*time.Second),
		Stagger:          getEnvDuration("AI_PUBLISH_STAGGER", 15*time.Minute),
		MinWords:         getEnvInt("AI_MIN_WORDS", 400),
		GenerateQuizzes:  getEnvBool("AI_GENERATE_QUIZZES", true),
	}
}

func loadScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Aggregation:     getEnvDuration("SCHEDULE_AGGREGATION", time.Hour),
		Rewrite:         getEnvDuration("SCHEDULE_REWRITE", time.Hour),
		Promotion:       getEnvDuration("SCHEDULE_PROMOTION", time.Minute),
		Retention:       getEnvDuration("SCHEDULE_RETENTION", 24*time.Hour),
		RetentionAge:    getEnvDuration("FEED_RETENTION", 30*24*time.Hour),
		RunOnStart:      getEnvBool("SCHEDULE_RUN_ON_START", true),
		DistributedLock: getEnvBool("SCHEDULE_DISTRIBUTED_LOCK", true),
	}
}

func loadModerationConfig() ModerationConfig {
	rejectConfidence := 70.0
	if v := os.Getenv("MODERATION_REJECT_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rejectConfidence = parsed
		}
	}

	return ModerationConfig{
		Enabled:          getEnvBool("IMAGE_MODERATION_ENABLED", false),
		AWSRegion:        os.Getenv("AWS_REGION"),
		RejectConfidence: rejectConfidence,
		Timeout:          getEnvDuration("MODERATION_TIMEOUT", 5*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings; "0" disables.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func applyEnvOverrides(
	httpAddr *string,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	rateLimitDur *time.Duration,
	logLevel *string,
	runOnce *bool,
	feedsConfig *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*rateLimitDur = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("RUN_ONCE_MODE"); v == "true" || v == "1" {
		*runOnce = true
	}
	if v := os.Getenv("FEEDS_CONFIG_PATH"); v != "" && *feedsConfig == "" {
		*feedsConfig = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
