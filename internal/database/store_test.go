package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/testutil"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	ctx := context.Background()
	db := database.Wrap(tdb.DB)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	tdb.Cleanup(ctx)
	return db
}

func TestFeedArticleStore_InsertIfAbsent(t *testing.T) {
	db := setupDB(t)
	store := database.NewFeedArticleStore(db)
	ctx := context.Background()

	article := models.FeedArticle{
		RawArticle: models.RawArticle{
			Title:       "First title",
			URL:         "https://example.com/a",
			Source:      "BBC News",
			Category:    "general",
			PublishedAt: time.Now().Add(-time.Hour),
		},
		Score: 57,
	}

	inserted, err := store.InsertIfAbsent(ctx, article)
	if err != nil || !inserted {
		t.Fatalf("InsertIfAbsent() = %v, %v, want true, nil", inserted, err)
	}

	article.Title = "Changed title"
	article.Score = 1
	inserted, err = store.InsertIfAbsent(ctx, article)
	if err != nil || inserted {
		t.Fatalf("second InsertIfAbsent() = %v, %v, want false, nil", inserted, err)
	}

	items, total, err := store.Query(ctx, models.FeedQuery{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if total != 1 || items[0].Title != "First title" || items[0].Score != 57 {
		t.Errorf("Query() = %+v, total %d; stored row should be unchanged", items, total)
	}
}

func TestFeedArticleStore_QueryAndStats(t *testing.T) {
	db := setupDB(t)
	store := database.NewFeedArticleStore(db)
	ctx := context.Background()
	now := time.Now()

	rows := []models.FeedArticle{
		{RawArticle: models.RawArticle{Title: "A", URL: "https://e.com/a", Source: "BBC News", Category: "general", PublishedAt: now}, Score: 10},
		{RawArticle: models.RawArticle{Title: "B", URL: "https://e.com/b", Source: "BBC Tech", Category: "tech", PublishedAt: now}, Score: 30},
		{RawArticle: models.RawArticle{Title: "C", URL: "https://e.com/c", Source: "BBC Tech", Category: "tech"}, Score: 20},
	}
	for _, r := range rows {
		if _, err := store.InsertIfAbsent(ctx, r); err != nil {
			t.Fatalf("InsertIfAbsent() error = %v", err)
		}
	}

	items, total, err := store.Query(ctx, models.FeedQuery{Category: "TECH"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if total != 2 || len(items) != 2 || items[0].Title != "B" {
		t.Errorf("Query(category) = %+v, total %d", items, total)
	}
	if items[1].HasPublishedAt() {
		t.Error("Query() should keep a missing publish date as zero")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 3 || stats.ByCategory[0].Key != "tech" || stats.ByCategory[0].Count != 2 {
		t.Errorf("Stats() = %+v", stats)
	}

	deleted, err := store.DeleteOlderThan(ctx, now.Add(time.Hour))
	if err != nil || deleted != 3 {
		t.Errorf("DeleteOlderThan() = %d, %v, want 3, nil", deleted, err)
	}
}

func TestNewsStore_Lifecycle(t *testing.T) {
	db := setupDB(t)
	categories := database.NewCategoryStore(db)
	news := database.NewNewsStore(db)
	quizzes := database.NewQuizStore(db)
	ctx := context.Background()
	now := time.Now()

	if err := categories.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}
	world, err := categories.FindByNameOrSlug(ctx, "world")
	if err != nil || world == nil || world.Name != "World" {
		t.Fatalf("FindByNameOrSlug(world) = %+v, %v", world, err)
	}
	if missing, err := categories.FindByNameOrSlug(ctx, "Space"); err != nil || missing != nil {
		t.Errorf("FindByNameOrSlug(Space) = %+v, %v, want nil, nil", missing, err)
	}

	due := &models.NewsArticle{
		ID:          uuid.NewString(),
		Title:       models.NewLocalizedText("Due story"),
		Summary:     models.NewLocalizedText("Summary"),
		Content:     models.NewLocalizedText("Body of the due story"),
		SourceURL:   "https://example.com/due",
		Category:    models.ResolvedCategory(world.ID, world.Name),
		Country:     models.CountryGlobal,
		Status:      models.NewsStatusScheduled,
		PublishedAt: now.Add(-5 * time.Minute),
	}
	future := &models.NewsArticle{
		ID:          uuid.NewString(),
		Title:       models.NewLocalizedText("Future story"),
		Content:     models.NewLocalizedText("Body of the future story"),
		SourceURL:   "https://example.com/future",
		Category:    models.UnresolvedCategory("Space"),
		Country:     models.CountryIndia,
		Status:      models.NewsStatusScheduled,
		PublishedAt: now.Add(time.Hour),
	}
	for _, a := range []*models.NewsArticle{due, future} {
		if err := news.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	dup := *due
	dup.ID = uuid.NewString()
	if err := news.Create(ctx, &dup); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("Create(duplicate) error = %v, want ErrDuplicate", err)
	}

	if ok, _ := news.ExistsBySourceURL(ctx, "https://example.com/due"); !ok {
		t.Error("ExistsBySourceURL() = false, want true")
	}
	if ok, _ := news.TitleExists(ctx, "DUE STORY"); !ok {
		t.Error("TitleExists() should be case-insensitive")
	}
	latest, ok, err := news.LatestPublishedAt(ctx)
	if err != nil || !ok || !latest.Equal(future.PublishedAt.Truncate(time.Microsecond)) {
		t.Errorf("LatestPublishedAt() = %v, %v, %v", latest, ok, err)
	}

	promoted, err := news.PromoteDue(ctx, now)
	if err != nil || promoted != 1 {
		t.Fatalf("PromoteDue() = %d, %v, want 1", promoted, err)
	}
	again, _ := news.PromoteDue(ctx, now)
	if again != 0 {
		t.Errorf("second PromoteDue() = %d, want 0", again)
	}

	stored, err := news.GetByID(ctx, due.ID)
	if err != nil || stored.Status != models.NewsStatusPublished || !stored.Category.IsResolved() {
		t.Errorf("GetByID() = %+v, %v", stored, err)
	}
	if f, _ := news.GetByID(ctx, future.ID); f.Status != models.NewsStatusScheduled || f.Category.Name() != "Space" {
		t.Errorf("future article = %+v, want scheduled and unresolved", f)
	}

	pending, err := news.ListWithoutQuiz(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListWithoutQuiz() = %d items, %v, want 1", len(pending), err)
	}

	quiz := &models.Quiz{
		ID:           uuid.NewString(),
		Title:        "Quiz",
		Category:     "general",
		Questions:    []models.QuizQuestion{{QuestionText: "Q", Options: []string{"a", "b", "c", "d"}}},
		NewsID:       due.ID,
		SourceType:   models.QuizSourceAINews,
		Status:       models.QuizStatusPublished,
		TimerMinutes: models.QuizTimerMinutes,
	}
	if err := quizzes.Create(ctx, quiz); err != nil {
		t.Fatalf("QuizStore.Create() error = %v", err)
	}
	if ok, _ := quizzes.ExistsForNews(ctx, due.ID); !ok {
		t.Error("ExistsForNews() = false, want true")
	}
	if pending, _ := news.ListWithoutQuiz(ctx, 10); len(pending) != 0 {
		t.Errorf("ListWithoutQuiz() after quiz = %d, want 0", len(pending))
	}
}

func TestCreate_AssignsMissingIDs(t *testing.T) {
	db := setupDB(t)
	news := database.NewNewsStore(db)
	quizzes := database.NewQuizStore(db)
	ctx := context.Background()

	article := &models.NewsArticle{
		Title:       models.NewLocalizedText("Story without an ID"),
		Content:     models.NewLocalizedText("Body of the story"),
		SourceURL:   "https://example.com/no-id",
		Category:    models.UnresolvedCategory("General"),
		Country:     models.CountryGlobal,
		Status:      models.NewsStatusScheduled,
		PublishedAt: time.Now(),
	}
	if err := news.Create(ctx, article); err != nil {
		t.Fatalf("NewsStore.Create() error = %v", err)
	}
	if _, err := uuid.Parse(article.ID); err != nil {
		t.Errorf("NewsStore.Create() ID = %q, want a UUID", article.ID)
	}
	if stored, err := news.GetByID(ctx, article.ID); err != nil || stored == nil {
		t.Errorf("GetByID(%q) = %+v, %v", article.ID, stored, err)
	}

	quiz := &models.Quiz{
		Title:        "Quiz",
		Category:     "general",
		Questions:    []models.QuizQuestion{{QuestionText: "Q", Options: []string{"a", "b", "c", "d"}}},
		NewsID:       article.ID,
		SourceType:   models.QuizSourceAINews,
		Status:       models.QuizStatusPublished,
		TimerMinutes: models.QuizTimerMinutes,
	}
	if err := quizzes.Create(ctx, quiz); err != nil {
		t.Fatalf("QuizStore.Create() error = %v", err)
	}
	if _, err := uuid.Parse(quiz.ID); err != nil {
		t.Errorf("QuizStore.Create() ID = %q, want a UUID", quiz.ID)
	}
}
