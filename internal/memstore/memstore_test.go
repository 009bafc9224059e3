package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/models"
)

func feedArticle(url, category, source string, score float64, published time.Time) models.FeedArticle {
	return models.FeedArticle{
		RawArticle: models.RawArticle{
			Title:       url,
			URL:         url,
			Category:    category,
			Source:      source,
			PublishedAt: published,
		},
		Score: score,
	}
}

func TestFeedArticles_InsertIfAbsent(t *testing.T) {
	store := NewFeedArticles()
	ctx := context.Background()
	now := time.Now()

	if ok, err := store.InsertIfAbsent(ctx, feedArticle("a", "general", "BBC News", 10, now)); !ok || err != nil {
		t.Fatalf("InsertIfAbsent() = %v, %v, want true, nil", ok, err)
	}

	replacement := feedArticle("a", "tech", "BBC Tech", 99, now)
	if ok, err := store.InsertIfAbsent(ctx, replacement); ok || err != nil {
		t.Fatalf("InsertIfAbsent(duplicate) = %v, %v, want false, nil", ok, err)
	}

	items, total, _ := store.Query(ctx, models.FeedQuery{})
	if total != 1 || items[0].Score != 10 || items[0].ID == "" {
		t.Errorf("Query() = %+v; first insert should win", items)
	}
}

func TestFeedArticles_QueryOrderingAndFilters(t *testing.T) {
	store := NewFeedArticles()
	ctx := context.Background()
	now := time.Now()

	_, _ = store.InsertIfAbsent(ctx, feedArticle("low", "tech", "BBC Tech", 5, now))
	_, _ = store.InsertIfAbsent(ctx, feedArticle("old-tie", "tech", "BBC Tech", 20, now.Add(-time.Hour)))
	_, _ = store.InsertIfAbsent(ctx, feedArticle("new-tie", "tech", "BBC Tech", 20, now))
	_, _ = store.InsertIfAbsent(ctx, feedArticle("world", "international", "The Guardian", 50, now))

	items, total, _ := store.Query(ctx, models.FeedQuery{Category: "Tech"})
	if total != 3 {
		t.Fatalf("Query(tech) total = %d, want 3", total)
	}
	want := []string{"new-tie", "old-tie", "low"}
	for i, w := range want {
		if items[i].URL != w {
			t.Errorf("Query(tech)[%d] = %q, want %q", i, items[i].URL, w)
		}
	}

	items, total, _ = store.Query(ctx, models.FeedQuery{Limit: 2})
	if total != 4 || len(items) != 2 || items[0].URL != "world" {
		t.Errorf("Query(limit 2) = %d items of %d, first %q", len(items), total, items[0].URL)
	}

	items, _, _ = store.Query(ctx, models.FeedQuery{Source: "the guardian"})
	if len(items) != 1 {
		t.Errorf("Query(source) returned %d items, want 1", len(items))
	}
}

func TestFeedArticles_StatsAndCleanup(t *testing.T) {
	store := NewFeedArticles()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	_, _ = store.InsertIfAbsent(ctx, feedArticle("a", "tech", "BBC Tech", 1, base))
	store.now = func() time.Time { return base.Add(40 * 24 * time.Hour) }
	_, _ = store.InsertIfAbsent(ctx, feedArticle("b", "tech", "BBC Tech", 1, base))
	_, _ = store.InsertIfAbsent(ctx, feedArticle("c", "general", "BBC News", 1, base))

	stats, _ := store.Stats(ctx)
	if stats.Total != 3 || stats.ByCategory[0].Key != "tech" || stats.ByCategory[0].Count != 2 {
		t.Errorf("Stats() = %+v", stats)
	}

	deleted, _ := store.DeleteOlderThan(ctx, base.Add(10*24*time.Hour))
	if deleted != 1 {
		t.Errorf("DeleteOlderThan() = %d, want 1", deleted)
	}
	if ok, _ := store.InsertIfAbsent(ctx, feedArticle("a", "tech", "BBC Tech", 1, base)); !ok {
		t.Error("InsertIfAbsent() should accept a url removed by cleanup")
	}
	if ok, _ := store.InsertIfAbsent(ctx, feedArticle("b", "tech", "BBC Tech", 1, base)); ok {
		t.Error("InsertIfAbsent() should still reject a kept url")
	}
}

func newsArticle(url, title string, status models.NewsStatus, published time.Time) *models.NewsArticle {
	return &models.NewsArticle{
		Title:       models.NewLocalizedText(title),
		Content:     models.NewLocalizedText("Body of " + title),
		SourceURL:   url,
		Status:      status,
		PublishedAt: published,
	}
}

func TestNews_CreateAndLookups(t *testing.T) {
	store := NewNews(nil)
	ctx := context.Background()
	now := time.Now()

	if err := store.Create(ctx, newsArticle("u1", "First", models.NewsStatusScheduled, now)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(ctx, newsArticle("u1", "Other", models.NewsStatusScheduled, now)); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("Create(duplicate) error = %v, want ErrDuplicate", err)
	}
	if err := store.Create(ctx, &models.NewsArticle{SourceURL: "u2"}); err == nil {
		t.Error("Create() should validate the article")
	}

	if ok, _ := store.ExistsBySourceURL(ctx, "u1"); !ok {
		t.Error("ExistsBySourceURL() = false, want true")
	}
	if ok, _ := store.TitleExists(ctx, "FIRST"); !ok {
		t.Error("TitleExists() should be case-insensitive")
	}

	user := newsArticle("u3", "User post", models.NewsStatusPublished, now.Add(48*time.Hour))
	user.IsUserPost = true
	_ = store.Create(ctx, user)

	latest, ok, _ := store.LatestPublishedAt(ctx)
	if !ok || !latest.Equal(now) {
		t.Errorf("LatestPublishedAt() = %v, %v, want %v ignoring user posts", latest, ok, now)
	}

	texts, _ := store.ListSince(ctx, now.Add(-time.Hour))
	if len(texts) != 2 {
		t.Errorf("ListSince() returned %d texts, want 2", len(texts))
	}
}

func TestNews_PromoteDue(t *testing.T) {
	store := NewNews(nil)
	ctx := context.Background()
	now := time.Now()

	_ = store.Create(ctx, newsArticle("due", "Due", models.NewsStatusScheduled, now.Add(-5*time.Minute)))
	_ = store.Create(ctx, newsArticle("future", "Future", models.NewsStatusScheduled, now.Add(5*time.Minute)))

	if n, _ := store.PromoteDue(ctx, now); n != 1 {
		t.Errorf("PromoteDue() = %d, want 1", n)
	}
	if n, _ := store.PromoteDue(ctx, now); n != 0 {
		t.Errorf("second PromoteDue() = %d, want 0", n)
	}

	for _, a := range store.All() {
		want := models.NewsStatusScheduled
		if a.SourceURL == "due" {
			want = models.NewsStatusPublished
		}
		if a.Status != want {
			t.Errorf("article %s status = %q, want %q", a.SourceURL, a.Status, want)
		}
	}
}

func TestNews_ListWithoutQuiz(t *testing.T) {
	quizzes := NewQuizzes()
	store := NewNews(quizzes)
	ctx := context.Background()
	now := time.Now()

	a := newsArticle("a", "A", models.NewsStatusPublished, now.Add(-time.Hour))
	b := newsArticle("b", "B", models.NewsStatusPublished, now)
	c := newsArticle("c", "C", models.NewsStatusScheduled, now)
	for _, n := range []*models.NewsArticle{a, b, c} {
		_ = store.Create(ctx, n)
	}
	_ = quizzes.Create(ctx, &models.Quiz{Title: "Quiz", NewsID: b.ID})

	got, _ := store.ListWithoutQuiz(ctx, 10)
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("ListWithoutQuiz() = %+v, want only article a", got)
	}

	if err := quizzes.Create(ctx, &models.Quiz{Title: "Again", NewsID: b.ID}); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("Quizzes.Create(duplicate) error = %v, want ErrDuplicate", err)
	}
}

func TestCategories(t *testing.T) {
	categories := NewCategories("World News")
	ctx := context.Background()

	if err := categories.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"technology", "Technology"},
		{"world-news", "World News"},
		{"WORLD", "World"},
		{"Space", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := categories.FindByNameOrSlug(ctx, tt.name)
		if err != nil {
			t.Fatalf("FindByNameOrSlug(%q) error = %v", tt.name, err)
		}
		name := ""
		if got != nil {
			name = got.Name
		}
		if name != tt.want {
			t.Errorf("FindByNameOrSlug(%q) = %q, want %q", tt.name, name, tt.want)
		}
	}

	list, _ := categories.List(ctx)
	if len(list) != len(database.DefaultCategories)+1 {
		t.Errorf("List() returned %d categories, want %d", len(list), len(database.DefaultCategories)+1)
	}
}
