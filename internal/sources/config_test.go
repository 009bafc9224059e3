package sources

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/johnrirwin/newsdesk/internal/ratelimit"
)

func TestLoadFeedsConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := `sources:
  - name: BBC News
    url: https://feeds.bbci.co.uk/news/rss.xml
    type: rss
    category: general
    enabled: true
  - name: Health
    type: newsapi
    endpoint: top-headlines
    params:
      category: health
    category: health
    enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFeedsConfig(path)
	if err != nil {
		t.Fatalf("LoadFeedsConfig() error = %v", err)
	}
	if len(config.Sources) != 2 {
		t.Fatalf("LoadFeedsConfig() returned %d sources, want 2", len(config.Sources))
	}
	if config.Sources[1].Params["category"] != "health" {
		t.Errorf("LoadFeedsConfig() params = %v", config.Sources[1].Params)
	}
}

func TestLoadFeedsConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.json")
	content := `{"sources":[{"name":"The Guardian","url":"https://www.theguardian.com/world/rss","type":"rss","category":"international","enabled":true}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFeedsConfig(path)
	if err != nil {
		t.Fatalf("LoadFeedsConfig() error = %v", err)
	}
	if len(config.Sources) != 1 || config.Sources[0].Name != "The Guardian" {
		t.Errorf("LoadFeedsConfig() = %+v", config.Sources)
	}
}

func TestLoadFeedsConfig_Errors(t *testing.T) {
	if _, err := LoadFeedsConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFeedsConfig() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFeedsConfig(path); err == nil {
		t.Error("LoadFeedsConfig() should fail for invalid JSON")
	}
}

func TestFindFeedsConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("sources: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FEEDS_CONFIG_PATH", path)

	if got := FindFeedsConfig(); got != path {
		t.Errorf("FindFeedsConfig() = %q, want %q", got, path)
	}
}

func TestCreateFetchersFromConfig(t *testing.T) {
	config := &FeedsConfig{
		Sources: []FeedSource{
			{Name: "RSS", URL: "https://example.com/rss", Type: "rss", Category: "general", Enabled: true},
			{Name: "Disabled", URL: "https://example.com/off", Type: "rss", Enabled: false},
			{Name: "No URL", Type: "rss", Enabled: true},
			{Name: "Tech", Type: "newsapi", Endpoint: "top-headlines", Category: "tech", Enabled: true},
			{Name: "No endpoint", Type: "newsapi", Enabled: true},
			{Name: "Unknown", URL: "https://example.com", Type: "podcast", Enabled: true},
		},
	}

	fetchers := CreateFetchersFromConfig(config, ratelimit.New(time.Second), DefaultConfig(), DefaultNewsAPIConfig())
	if len(fetchers) != 2 {
		t.Fatalf("CreateFetchersFromConfig() returned %d fetchers, want 2", len(fetchers))
	}
	if _, ok := fetchers[0].(*RSSFetcher); !ok {
		t.Errorf("fetchers[0] = %T, want *RSSFetcher", fetchers[0])
	}
	if _, ok := fetchers[1].(*NewsAPIFetcher); !ok {
		t.Errorf("fetchers[1] = %T, want *NewsAPIFetcher", fetchers[1])
	}
}

func TestGetDefaultFeedsConfig(t *testing.T) {
	config := GetDefaultFeedsConfig()

	var rss, newsapi int
	for _, s := range config.Sources {
		switch s.Type {
		case "rss":
			rss++
		case "newsapi":
			newsapi++
		}
		if !s.Enabled {
			t.Errorf("default source %q is disabled", s.Name)
		}
	}
	if rss != 4 || newsapi != 4 {
		t.Errorf("GetDefaultFeedsConfig() has %d rss and %d newsapi sources, want 4 and 4", rss, newsapi)
	}
}
