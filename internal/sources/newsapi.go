package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/ratelimit"
)

const (
	DefaultNewsAPIBaseURL = "https://newsapi.org/v2"
	newsAPIRemovedTitle   = "[Removed]"
)

// NewsAPIConfig holds the credentials and paging limits shared by all queries.
type NewsAPIConfig struct {
	APIKey   string
	BaseURL  string
	PageSize int
	MaxPages int
}

func DefaultNewsAPIConfig() NewsAPIConfig {
	return NewsAPIConfig{
		BaseURL:  DefaultNewsAPIBaseURL,
		PageSize: 20,
		MaxPages: 3,
	}
}

// NewsAPIQuery is one endpoint/parameter combination, e.g. top headlines for a category.
type NewsAPIQuery struct {
	Name     string
	Endpoint string
	Params   map[string]string
	Category string
}

type NewsAPIFetcher struct {
	query   NewsAPIQuery
	api     NewsAPIConfig
	limiter *ratelimit.Limiter
	config  FetcherConfig
	client  *http.Client
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func NewNewsAPIFetcher(query NewsAPIQuery, api NewsAPIConfig, limiter *ratelimit.Limiter, config FetcherConfig) *NewsAPIFetcher {
	if api.BaseURL == "" {
		api.BaseURL = DefaultNewsAPIBaseURL
	}
	if api.PageSize <= 0 {
		api.PageSize = 20
	}
	if api.MaxPages <= 0 {
		api.MaxPages = 1
	}

	return &NewsAPIFetcher{
		query:   query,
		api:     api,
		limiter: limiter,
		config:  config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (f *NewsAPIFetcher) Name() string {
	return "NewsAPI " + f.query.Name
}

func (f *NewsAPIFetcher) SourceInfo() models.SourceInfo {
	return models.SourceInfo{
		ID:          "newsapi-" + strings.ToLower(strings.ReplaceAll(f.query.Name, " ", "-")),
		Name:        f.Name(),
		URL:         strings.TrimRight(f.api.BaseURL, "/") + "/" + f.query.Endpoint,
		SourceType:  "news",
		Category:    f.query.Category,
		Description: "NewsAPI " + f.query.Endpoint + " query " + f.query.Name,
		FeedType:    "newsapi",
		Enabled:     f.api.APIKey != "",
	}
}

// Fetch pages through the query until a page comes back empty, an error
// occurs, the reported total is reached or MaxPages is hit. Without an API
// key it returns no articles and no error.
func (f *NewsAPIFetcher) Fetch(ctx context.Context) ([]models.RawArticle, error) {
	if f.api.APIKey == "" {
		return []models.RawArticle{}, nil
	}

	items := make([]models.RawArticle, 0)
	for page := 1; page <= f.api.MaxPages; page++ {
		resp, err := f.fetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			break
		}
		if len(resp.Articles) == 0 {
			break
		}

		for _, a := range resp.Articles {
			if article, ok := f.normalize(a); ok {
				items = append(items, article)
			}
		}

		if page*f.api.PageSize >= resp.TotalResults {
			break
		}
		if f.config.MaxItems > 0 && len(items) >= f.config.MaxItems {
			break
		}
	}

	if f.config.MaxItems > 0 && len(items) > f.config.MaxItems {
		items = items[:f.config.MaxItems]
	}
	return items, nil
}

func (f *NewsAPIFetcher) fetchPage(ctx context.Context, page int) (*newsAPIResponse, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, ratelimit.HostOf(f.api.BaseURL)); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	params := url.Values{}
	for k, v := range f.query.Params {
		params.Set(k, v)
	}
	params.Set("pageSize", strconv.Itoa(f.api.PageSize))
	params.Set("page", strconv.Itoa(page))

	endpoint := strings.TrimRight(f.api.BaseURL, "/") + "/" + strings.TrimLeft(f.query.Endpoint, "/") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("X-Api-Key", f.api.APIKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s page %d: %w", f.query.Name, page, err)
	}
	defer resp.Body.Close()

	var data newsAPIResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&data)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && data.Message != "" {
			return nil, fmt.Errorf("newsapi returned status %d: %s", resp.StatusCode, data.Message)
		}
		return nil, fmt.Errorf("newsapi returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode newsapi response: %w", decodeErr)
	}
	if data.Status == "error" {
		return nil, fmt.Errorf("newsapi error %s: %s", data.Code, data.Message)
	}

	return &data, nil
}

func (f *NewsAPIFetcher) normalize(a newsAPIArticle) (models.RawArticle, bool) {
	title := strings.TrimSpace(a.Title)
	link := strings.TrimSpace(a.URL)
	if title == "" || title == newsAPIRemovedTitle || link == "" {
		return models.RawArticle{}, false
	}

	source := a.Source.Name
	if source == "" {
		source = "NewsAPI"
	}

	return models.RawArticle{
		Title:       title,
		Summary:     StripHTML(a.Description),
		Content:     StripHTML(firstNonEmpty(a.Content, a.Description)),
		URL:         link,
		Image:       a.URLToImage,
		Source:      source,
		Category:    f.query.Category,
		PublishedAt: models.ParsePublishedAt(a.PublishedAt),
	}, true
}

// DefaultNewsAPIQueries mirrors the editorial mix: India coverage, US top
// headlines, technology and health.
func DefaultNewsAPIQueries() []NewsAPIQuery {
	return []NewsAPIQuery{
		{Name: "India", Endpoint: "everything", Params: map[string]string{"q": "india", "sortBy": "publishedAt"}, Category: "india"},
		{Name: "International", Endpoint: "top-headlines", Params: map[string]string{"country": "us"}, Category: "international"},
		{Name: "Technology", Endpoint: "top-headlines", Params: map[string]string{"category": "technology"}, Category: "tech"},
		{Name: "Health", Endpoint: "top-headlines", Params: map[string]string{"category": "health"}, Category: "health"},
	}
}
