package models

import "time"

// RawArticle is the normalized shape every fetcher and the scraper produce.
// A zero PublishedAt means the source did not provide a usable date.
type RawArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url"`
	Image       string    `json:"image,omitempty"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"publishedAt"`
}

// HasPublishedAt reports whether the source supplied a publish date.
func (a RawArticle) HasPublishedAt() bool {
	return !a.PublishedAt.IsZero()
}

// FeedArticle is a ranked article as persisted by the feed aggregation pipeline.
type FeedArticle struct {
	ID string `json:"id,omitempty"`
	RawArticle
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type SourceInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	SourceType  string `json:"sourceType"`
	Category    string `json:"category"`
	Description string `json:"description"`
	FeedType    string `json:"feedType"`
	Enabled     bool   `json:"enabled"`
}

// FeedQuery filters the public feed listing.
type FeedQuery struct {
	Category string `json:"category"`
	Source   string `json:"source"`
	Limit    int    `json:"limit"`
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

type FeedResponse struct {
	Items      []FeedArticle `json:"items"`
	TotalCount int           `json:"totalCount"`
	FetchedAt  time.Time     `json:"fetchedAt"`
}

// StatCount is one bucket of a grouped count.
type StatCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type FeedStats struct {
	Total      int         `json:"total"`
	ByCategory []StatCount `json:"byCategory"`
	BySource   []StatCount `json:"bySource"`
}

// AggregationResult summarizes one feed aggregation run.
type AggregationResult struct {
	Saved    int           `json:"saved"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Fetched  int           `json:"fetched"`
	Duration time.Duration `json:"-"`
}
