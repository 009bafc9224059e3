// Package memstore keeps feed articles, news, categories and quizzes in
// memory. It mirrors the Postgres stores and is used when no database is
// configured.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/models"
)

const defaultFeedLimit = 50

type FeedArticles struct {
	mu    sync.RWMutex
	items []models.FeedArticle
	byURL map[string]int
	now   func() time.Time
}

func NewFeedArticles() *FeedArticles {
	return &FeedArticles{
		byURL: make(map[string]int),
		now:   time.Now,
	}
}

func (s *FeedArticles) InsertIfAbsent(ctx context.Context, article models.FeedArticle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byURL[article.URL]; ok {
		return false, nil
	}
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = s.now()
	}
	s.byURL[article.URL] = len(s.items)
	s.items = append(s.items, article)
	return true, nil
}

func (s *FeedArticles) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	var deleted int64
	for _, item := range s.items {
		if item.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept

	s.byURL = make(map[string]int, len(s.items))
	for i, item := range s.items {
		s.byURL[item.URL] = i
	}
	return deleted, nil
}

func (s *FeedArticles) Query(ctx context.Context, query models.FeedQuery) ([]models.FeedArticle, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, hasFrom := models.ParseDateFilter(query.FromDate)
	to, hasTo := models.ParseDateFilter(query.ToDate)
	if hasTo {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	matched := make([]models.FeedArticle, 0)
	for _, item := range s.items {
		if query.Category != "" && !strings.EqualFold(item.Category, strings.TrimSpace(query.Category)) {
			continue
		}
		if query.Source != "" && !strings.EqualFold(item.Source, strings.TrimSpace(query.Source)) {
			continue
		}
		if hasFrom && (item.PublishedAt.IsZero() || item.PublishedAt.Before(from)) {
			continue
		}
		if hasTo && (item.PublishedAt.IsZero() || item.PublishedAt.After(to)) {
			continue
		}
		matched = append(matched, item)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].PublishedAt.After(matched[j].PublishedAt)
	})

	total := len(matched)
	limit := query.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *FeedArticles) Stats(ctx context.Context) (models.FeedStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[string]int)
	bySource := make(map[string]int)
	for _, item := range s.items {
		byCategory[item.Category]++
		bySource[item.Source]++
	}

	return models.FeedStats{
		Total:      len(s.items),
		ByCategory: sortedCounts(byCategory),
		BySource:   sortedCounts(bySource),
	}, nil
}

func sortedCounts(m map[string]int) []models.StatCount {
	counts := make([]models.StatCount, 0, len(m))
	for k, v := range m {
		counts = append(counts, models.StatCount{Key: k, Count: v})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})
	return counts
}

type News struct {
	mu       sync.RWMutex
	articles []models.NewsArticle
	quizzes  *Quizzes
}

// NewNews creates a news store; quizzes may be nil when quiz lookups are
// not needed.
func NewNews(quizzes *Quizzes) *News {
	return &News{quizzes: quizzes}
}

func (s *News) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if a.SourceURL == sourceURL {
			return true, nil
		}
	}
	return false, nil
}

func (s *News) Create(ctx context.Context, article *models.NewsArticle) error {
	if err := article.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.SourceURL == article.SourceURL {
			return database.ErrDuplicate
		}
	}
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	article.CreatedAt = time.Now()
	s.articles = append(s.articles, *article)
	return nil
}

func (s *News) LatestPublishedAt(ctx context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, a := range s.articles {
		if a.IsUserPost {
			continue
		}
		if !found || a.PublishedAt.After(latest) {
			latest = a.PublishedAt
			found = true
		}
	}
	return latest, found, nil
}

func (s *News) TitleExists(ctx context.Context, title string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if strings.EqualFold(a.Title.Default(), title) {
			return true, nil
		}
	}
	return false, nil
}

func (s *News) ListSince(ctx context.Context, since time.Time) ([]models.StoredText, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	texts := make([]models.StoredText, 0)
	for _, a := range s.articles {
		if a.PublishedAt.Before(since) {
			continue
		}
		texts = append(texts, models.StoredText{Title: a.Title.Default(), Content: a.Content.Default()})
	}
	return texts, nil
}

func (s *News) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var promoted int64
	for i := range s.articles {
		a := &s.articles[i]
		if a.Status == models.NewsStatusScheduled && !a.PublishedAt.After(now) {
			a.Status = models.NewsStatusPublished
			promoted++
		}
	}
	return promoted, nil
}

func (s *News) ListWithoutQuiz(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	s.mu.RLock()
	candidates := make([]models.NewsArticle, 0)
	for _, a := range s.articles {
		if a.Status == models.NewsStatusPublished && !a.IsUserPost {
			candidates = append(candidates, a)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})

	out := make([]models.NewsArticle, 0)
	for _, a := range candidates {
		if limit > 0 && len(out) >= limit {
			break
		}
		if s.quizzes != nil {
			if ok, _ := s.quizzes.ExistsForNews(ctx, a.ID); ok {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *News) GetByID(ctx context.Context, id string) (*models.NewsArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

// All returns a copy of every stored article in insertion order.
func (s *News) All() []models.NewsArticle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NewsArticle(nil), s.articles...)
}

type Categories struct {
	mu         sync.RWMutex
	categories []models.Category
}

// NewCategories creates a registry holding the given names.
func NewCategories(names ...string) *Categories {
	c := &Categories{}
	for _, name := range names {
		c.add(name)
	}
	return c
}

func (c *Categories) add(name string) {
	for _, existing := range c.categories {
		if strings.EqualFold(existing.Name, name) {
			return
		}
	}
	c.categories = append(c.categories, models.Category{
		ID:   uuid.NewString(),
		Name: name,
		Slug: models.Slugify(name),
	})
}

func (c *Categories) FindByNameOrSlug(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if strings.EqualFold(cat.Name, name) {
			found := cat
			return &found, nil
		}
	}
	for _, cat := range c.categories {
		if strings.EqualFold(cat.Slug, name) {
			found := cat
			return &found, nil
		}
	}
	return nil, nil
}

func (c *Categories) List(ctx context.Context) ([]models.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := append([]models.Category(nil), c.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Categories) EnsureDefaults(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range database.DefaultCategories {
		c.add(name)
	}
	return nil
}

type Quizzes struct {
	mu      sync.RWMutex
	quizzes []models.Quiz
}

func NewQuizzes() *Quizzes {
	return &Quizzes{}
}

func (q *Quizzes) Create(ctx context.Context, quiz *models.Quiz) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if quiz.NewsID != "" {
		for _, existing := range q.quizzes {
			if existing.NewsID == quiz.NewsID {
				return database.ErrDuplicate
			}
		}
	}
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	quiz.CreatedAt = time.Now()
	q.quizzes = append(q.quizzes, *quiz)
	return nil
}

func (q *Quizzes) ExistsForNews(ctx context.Context, newsID string) (bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, existing := range q.quizzes {
		if existing.NewsID == newsID {
			return true, nil
		}
	}
	return false, nil
}

// All returns a copy of every stored quiz.
func (q *Quizzes) All() []models.Quiz {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]models.Quiz(nil), q.quizzes...)
}
