package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnrirwin/newsdesk/internal/cache"
	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/memstore"
	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/sources"
	"github.com/johnrirwin/newsdesk/internal/testutil"
)

type stubFetcher struct {
	name  string
	items []models.RawArticle
	err   error
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context) ([]models.RawArticle, error) {
	return s.items, s.err
}

func (s *stubFetcher) SourceInfo() models.SourceInfo {
	return models.SourceInfo{ID: s.name, Name: s.name}
}

// failingStore wraps a memstore and fails inserts for selected URLs.
type failingStore struct {
	*memstore.FeedArticles
	fail map[string]error
}

func (s *failingStore) InsertIfAbsent(ctx context.Context, article models.FeedArticle) (bool, error) {
	if err := s.fail[article.URL]; err != nil {
		return false, err
	}
	return s.FeedArticles.InsertIfAbsent(ctx, article)
}

func raw(url, title, source string, age time.Duration, now time.Time) models.RawArticle {
	return models.RawArticle{
		Title:       title,
		URL:         url,
		Source:      source,
		Category:    "general",
		PublishedAt: now.Add(-age),
	}
}

func newTestAggregator(fetchers []sources.Fetcher, store Store, c cache.Cache) *Aggregator {
	return New(fetchers, store, c, testutil.NullLogger(), DefaultConfig())
}

func TestRun_SavesRankedAndIsIdempotent(t *testing.T) {
	now := time.Now()
	fetchers := []sources.Fetcher{
		&stubFetcher{name: "BBC News", items: []models.RawArticle{
			raw("https://bbc/1", "BREAKING: market crashes", "BBC News", time.Hour, now),
			raw("https://bbc/2", "Council approves new park budget", "BBC News", 2*time.Hour, now),
		}},
		&stubFetcher{name: "Guardian", items: []models.RawArticle{
			raw("https://bbc/1", "Market crash coverage", "The Guardian", time.Hour, now),
			raw("https://g/3", "Scientists map distant galaxy cluster", "The Guardian", 3*time.Hour, now),
		}},
		&stubFetcher{name: "Broken", err: errors.New("timeout")},
	}
	store := memstore.NewFeedArticles()
	agg := newTestAggregator(fetchers, store, nil)

	first, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if first.Saved != 3 || first.Skipped != 0 || first.Failed != 0 {
		t.Errorf("Run() = %+v, want 3 saved", first)
	}
	if first.Fetched != 4 {
		t.Errorf("Run() fetched = %d, want 4", first.Fetched)
	}

	second, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.Saved != 0 || second.Skipped != 3 {
		t.Errorf("second Run() = %+v, want 0 saved and 3 skipped", second)
	}

	feed, err := agg.Feed(context.Background(), models.FeedQuery{})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if feed.TotalCount != 3 {
		t.Fatalf("Feed() total = %d, want 3", feed.TotalCount)
	}
	if feed.Items[0].URL != "https://bbc/1" || feed.Items[0].Score != 87 {
		t.Errorf("Feed() top item = %s score %v, want https://bbc/1 score 87", feed.Items[0].URL, feed.Items[0].Score)
	}
}

func TestRun_CountsFailuresAndDuplicates(t *testing.T) {
	now := time.Now()
	fetchers := []sources.Fetcher{
		&stubFetcher{name: "src", items: []models.RawArticle{
			raw("https://a", "Alpha story about trains", "src", time.Hour, now),
			raw("https://b", "Bravo report on weather", "src", time.Hour, now),
			raw("https://c", "Charlie notes on markets", "src", time.Hour, now),
		}},
	}
	store := &failingStore{
		FeedArticles: memstore.NewFeedArticles(),
		fail: map[string]error{
			"https://b": database.ErrDuplicate,
			"https://c": errors.New("connection reset"),
		},
	}
	agg := newTestAggregator(fetchers, store, nil)

	result, err := agg.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Saved != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Errorf("Run() = %+v, want 1 saved, 1 skipped, 1 failed", result)
	}
}

func TestRun_NoFetchers(t *testing.T) {
	agg := newTestAggregator(nil, memstore.NewFeedArticles(), nil)
	if _, err := agg.Run(context.Background()); !errors.Is(err, ErrNoSources) {
		t.Errorf("Run() error = %v, want ErrNoSources", err)
	}
}

func TestFeed_CacheInvalidatedByRun(t *testing.T) {
	now := time.Now()
	fetcher := &stubFetcher{name: "src", items: []models.RawArticle{
		raw("https://a", "First headline about rivers", "src", time.Hour, now),
	}}
	c := cache.NewMemory(time.Minute)
	defer c.Stop()
	agg := newTestAggregator([]sources.Fetcher{fetcher}, memstore.NewFeedArticles(), c)
	ctx := context.Background()

	if _, err := agg.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	feed, _ := agg.Feed(ctx, models.FeedQuery{})
	if feed.TotalCount != 1 {
		t.Fatalf("Feed() total = %d, want 1", feed.TotalCount)
	}
	stats, _ := agg.Stats(ctx)
	if stats.Total != 1 {
		t.Fatalf("Stats() total = %d, want 1", stats.Total)
	}

	fetcher.items = append(fetcher.items, raw("https://b", "Second headline about mountains", "src", time.Hour, now))
	if _, err := agg.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	feed, _ = agg.Feed(ctx, models.FeedQuery{})
	if feed.TotalCount != 2 {
		t.Errorf("Feed() after run total = %d, want 2", feed.TotalCount)
	}
	stats, _ = agg.Stats(ctx)
	if stats.Total != 2 {
		t.Errorf("Stats() after run total = %d, want 2", stats.Total)
	}
}

func TestCleanup(t *testing.T) {
	store := memstore.NewFeedArticles()
	agg := newTestAggregator(nil, store, nil)
	ctx := context.Background()

	old := models.FeedArticle{RawArticle: models.RawArticle{URL: "https://old", Title: "Old"}, CreatedAt: time.Now().Add(-31 * 24 * time.Hour)}
	fresh := models.FeedArticle{RawArticle: models.RawArticle{URL: "https://fresh", Title: "Fresh"}}
	_, _ = store.InsertIfAbsent(ctx, old)
	_, _ = store.InsertIfAbsent(ctx, fresh)

	deleted, err := agg.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Cleanup() deleted %d, want 1", deleted)
	}
}

func TestSources(t *testing.T) {
	agg := newTestAggregator([]sources.Fetcher{&stubFetcher{name: "a"}, &stubFetcher{name: "b"}}, nil, nil)
	got := agg.Sources()
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Errorf("Sources() = %+v", got)
	}
}

func TestQueryKey(t *testing.T) {
	a := queryKey(models.FeedQuery{Category: "Tech ", Limit: 10})
	b := queryKey(models.FeedQuery{Category: "tech", Limit: 10})
	c := queryKey(models.FeedQuery{Category: "tech", Limit: 20})
	if a != b {
		t.Errorf("queryKey() should normalise case and spaces: %q vs %q", a, b)
	}
	if b == c {
		t.Error("queryKey() should differ by limit")
	}
}
