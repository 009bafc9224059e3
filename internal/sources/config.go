package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/johnrirwin/newsdesk/internal/ratelimit"
)

// FeedSource represents a single feed source from config
type FeedSource struct {
	Name     string            `json:"name" yaml:"name"`
	URL      string            `json:"url,omitempty" yaml:"url,omitempty"`
	Type     string            `json:"type" yaml:"type"` // "rss", "newsapi"
	Category string            `json:"category" yaml:"category"`
	Endpoint string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Params   map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Enabled  bool              `json:"enabled" yaml:"enabled"`
}

// FeedsConfig holds the feeds configuration
type FeedsConfig struct {
	Sources []FeedSource `json:"sources" yaml:"sources"`
}

// LoadFeedsConfig loads feed sources from a YAML or JSON config file,
// chosen by extension.
func LoadFeedsConfig(configPath string) (*FeedsConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds config: %w", err)
	}

	var config FeedsConfig
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse feeds config: %w", err)
	}

	return &config, nil
}

// FindFeedsConfig searches for a feeds file in common locations
func FindFeedsConfig() string {
	var locations []string
	for _, dir := range []string{".", "..", "/app", "config"} {
		for _, name := range []string{"feeds.yaml", "feeds.yml", "feeds.json"} {
			locations = append(locations, filepath.Join(dir, name))
		}
	}

	if envPath := os.Getenv("FEEDS_CONFIG_PATH"); envPath != "" {
		locations = append([]string{envPath}, locations...)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}

	return ""
}

// CreateFetchersFromConfig creates fetchers from the feeds configuration.
// NewsAPI sources share the given API settings.
func CreateFetchersFromConfig(config *FeedsConfig, limiter *ratelimit.Limiter, fetcherConfig FetcherConfig, newsAPI NewsAPIConfig) []Fetcher {
	fetchers := make([]Fetcher, 0, len(config.Sources))

	for _, source := range config.Sources {
		if !source.Enabled {
			continue
		}

		var fetcher Fetcher
		switch source.Type {
		case "rss":
			if source.URL == "" {
				continue
			}
			fetcher = NewRSSFetcher(source.Name, source.URL, source.Category, limiter, fetcherConfig)
		case "newsapi":
			if source.Endpoint == "" {
				continue
			}
			query := NewsAPIQuery{
				Name:     source.Name,
				Endpoint: source.Endpoint,
				Params:   source.Params,
				Category: source.Category,
			}
			fetcher = NewNewsAPIFetcher(query, newsAPI, limiter, fetcherConfig)
		default:
			continue
		}

		fetchers = append(fetchers, fetcher)
	}

	return fetchers
}

// GetDefaultFeedsConfig returns a default configuration when no config file is found
func GetDefaultFeedsConfig() *FeedsConfig {
	config := &FeedsConfig{
		Sources: []FeedSource{
			{Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/rss.xml", Type: "rss", Category: "general", Enabled: true},
			{Name: "NY Times World", URL: "https://rss.nytimes.com/services/xml/rss/nyt/World.xml", Type: "rss", Category: "international", Enabled: true},
			{Name: "BBC Tech", URL: "https://feeds.bbci.co.uk/news/technology/rss.xml", Type: "rss", Category: "tech", Enabled: true},
			{Name: "The Guardian", URL: "https://www.theguardian.com/world/rss", Type: "rss", Category: "international", Enabled: true},
		},
	}

	for _, q := range DefaultNewsAPIQueries() {
		config.Sources = append(config.Sources, FeedSource{
			Name:     q.Name,
			Type:     "newsapi",
			Category: q.Category,
			Endpoint: q.Endpoint,
			Params:   q.Params,
			Enabled:  true,
		})
	}

	return config
}
