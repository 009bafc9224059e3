package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/ratelimit"
)

const maxSummaryLength = 500

type RSSFetcher struct {
	name     string
	url      string
	category string
	parser   *gofeed.Parser
	limiter  *ratelimit.Limiter
	config   FetcherConfig
}

func NewRSSFetcher(name, url, category string, limiter *ratelimit.Limiter, config FetcherConfig) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = config.UserAgent

	return &RSSFetcher{
		name:     name,
		url:      url,
		category: category,
		parser:   parser,
		limiter:  limiter,
		config:   config,
	}
}

func (f *RSSFetcher) Name() string {
	return f.name
}

func (f *RSSFetcher) SourceInfo() models.SourceInfo {
	return models.SourceInfo{
		ID:          strings.ToLower(strings.ReplaceAll(f.name, " ", "-")),
		Name:        f.name,
		URL:         f.url,
		SourceType:  "news",
		Category:    f.category,
		Description: "RSS feed from " + f.name,
		FeedType:    "rss",
		Enabled:     true,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context) ([]models.RawArticle, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, ratelimit.HostOf(f.url)); err != nil {
			return nil, fmt.Errorf("rate limit wait for %s: %w", f.url, err)
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(f.url, ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed %s: %w", f.url, err)
	}

	items := make([]models.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if f.config.MaxItems > 0 && len(items) >= f.config.MaxItems {
			break
		}

		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if link == "" || title == "" {
			continue
		}

		article := models.RawArticle{
			Title:    title,
			Summary:  truncate(StripHTML(firstNonEmpty(item.Description, item.Content)), maxSummaryLength),
			Content:  StripHTML(firstNonEmpty(item.Content, item.Description)),
			URL:      link,
			Image:    itemImage(item),
			Source:   f.name,
			Category: f.category,
		}
		if item.PublishedParsed != nil {
			article.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			article.PublishedAt = *item.UpdatedParsed
		}

		items = append(items, article)
	}

	return items, nil
}

// itemImage picks the item image, then an image enclosure, then media:content
// or media:thumbnail.
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && (enc.Type == "" || strings.HasPrefix(enc.Type, "image/")) {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
