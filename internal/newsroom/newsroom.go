// Package newsroom turns fetched headlines into scheduled, AI rewritten
// articles and later promotes them once they are due.
package newsroom

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/dedup"
	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/scraper"
	"github.com/johnrirwin/newsdesk/internal/sources"
)

// ErrRunInProgress is reported when Run is called while another run is active.
var ErrRunInProgress = errors.New("rewrite run already in progress")

const defaultSource = "AI Daily"

type NewsStore interface {
	ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error)
	Create(ctx context.Context, article *models.NewsArticle) error
	LatestPublishedAt(ctx context.Context) (time.Time, bool, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	ListSince(ctx context.Context, since time.Time) ([]models.StoredText, error)
	PromoteDue(ctx context.Context, now time.Time) (int64, error)
	ListWithoutQuiz(ctx context.Context, limit int) ([]models.NewsArticle, error)
}

type CategoryStore interface {
	FindByNameOrSlug(ctx context.Context, name string) (*models.Category, error)
}

type QuizStore interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	ExistsForNews(ctx context.Context, newsID string) (bool, error)
}

// Scraper is satisfied by *scraper.Scraper.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*models.ScrapedPage, error)
}

// Rewriter is satisfied by *rewrite.Rewriter.
type Rewriter interface {
	Rewrite(ctx context.Context, text, title string) models.Rewrite
	Expand(ctx context.Context, text, title string) models.Rewrite
	GenerateQuiz(ctx context.Context, content, title string) (*models.QuizDraft, error)
}

// ImageChecker is satisfied by *moderation.ImageChecker.
type ImageChecker interface {
	Allowed(ctx context.Context, imageURL string) (bool, error)
}

type Config struct {
	// Limit is the number of articles stored per run.
	Limit            int
	Stagger          time.Duration
	ItemDelay        time.Duration
	MinWords         int
	FetchConcurrency int
	// GenerateQuizzes attaches a quiz to every stored article when the model
	// can produce one.
	GenerateQuizzes bool
}

func DefaultConfig() Config {
	return Config{
		Limit:            10,
		Stagger:          DefaultStagger,
		ItemDelay:        2 * time.Second,
		MinWords:         400,
		FetchConcurrency: 8,
		GenerateQuizzes:  true,
	}
}

type Pipeline struct {
	fetchers   []sources.Fetcher
	news       NewsStore
	quizzes    QuizStore
	categories *CategoryResolver
	duplicates *dedup.Checker
	scraper    Scraper
	rewriter   Rewriter
	images     ImageChecker
	logger     *logging.Logger
	config     Config

	running atomic.Bool
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(
	fetchers []sources.Fetcher,
	news NewsStore,
	categories CategoryStore,
	quizzes QuizStore,
	scr Scraper,
	rw Rewriter,
	logger *logging.Logger,
	config Config,
) *Pipeline {
	if config.Limit <= 0 {
		config.Limit = DefaultConfig().Limit
	}
	if config.MinWords <= 0 {
		config.MinWords = DefaultConfig().MinWords
	}
	return &Pipeline{
		fetchers:   fetchers,
		news:       news,
		quizzes:    quizzes,
		categories: NewCategoryResolver(categories, logger),
		duplicates: dedup.NewChecker(news),
		scraper:    scr,
		rewriter:   rw,
		logger:     logger,
		config:     config,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// WithImageChecker enables moderation of scraped and source lead images.
func (p *Pipeline) WithImageChecker(checker ImageChecker) *Pipeline {
	p.images = checker
	return p
}

type outcome int

const (
	outcomeSaved outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Run fetches candidates and stores up to Config.Limit new scheduled
// articles. Item failures are logged and counted; the run itself only
// fails when there is nothing to fetch from or a run is already active.
func (p *Pipeline) Run(ctx context.Context) models.RewriteRunResult {
	if !p.running.CompareAndSwap(false, true) {
		return models.RewriteRunResult{Error: ErrRunInProgress.Error()}
	}
	defer p.running.Store(false)

	if len(p.fetchers) == 0 {
		p.logger.Error("Rewrite pipeline has no sources")
		return models.RewriteRunResult{Error: sources.ErrNoSources.Error()}
	}

	candidates := p.candidates(ctx)
	p.logger.Info("Rewrite pipeline started", logging.WithField("candidates", len(candidates)))

	latest, _, err := p.news.LatestPublishedAt(ctx)
	if err != nil {
		p.logger.Warn("Could not load latest publish time", logging.WithField("error", err.Error()))
		latest = time.Time{}
	}
	slots := NewScheduler(latest, p.now(), p.config.Stagger)

	result := models.RewriteRunResult{Success: true}
	for _, item := range candidates {
		if result.Count >= p.config.Limit || ctx.Err() != nil {
			break
		}

		switch p.process(ctx, item, slots) {
		case outcomeSaved:
			result.Count++
			slots.Advance()
			_ = p.sleep(ctx, p.config.ItemDelay)
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	p.logger.Info("Rewrite pipeline finished", logging.WithFields(map[string]interface{}{
		"saved":   result.Count,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}))
	return result
}

// candidates merges every source in fetcher order, keeping the first item per URL.
func (p *Pipeline) candidates(ctx context.Context) []models.RawArticle {
	seen := make(map[string]bool)
	items := make([]models.RawArticle, 0)
	for _, res := range sources.FetchAll(ctx, p.fetchers, p.config.FetchConcurrency) {
		if res.Error != nil {
			p.logger.Warn("Failed to fetch from source", logging.WithFields(map[string]interface{}{
				"source": res.Source.Name,
				"error":  res.Error.Error(),
			}))
			continue
		}
		for _, item := range res.Items {
			if item.URL == "" || seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			items = append(items, item)
		}
	}
	return items
}

func (p *Pipeline) process(ctx context.Context, item models.RawArticle, slots *Scheduler) outcome {
	log := p.logger.With(logging.WithFields(map[string]interface{}{
		"title": item.Title,
		"url":   item.URL,
	}))

	exists, err := p.news.ExistsBySourceURL(ctx, item.URL)
	if err != nil {
		log.Error("Failed to check existing article", logging.WithField("error", err.Error()))
		return outcomeFailed
	}
	if exists {
		return outcomeSkipped
	}

	page, err := p.scraper.Scrape(ctx, item.URL)
	switch {
	case errors.Is(err, scraper.ErrBlocked), errors.Is(err, scraper.ErrTooShort), errors.Is(err, scraper.ErrNotFound):
		log.Debug("Article not usable", logging.WithField("reason", err.Error()))
		return outcomeSkipped
	case err != nil:
		log.Warn("Scrape failed", logging.WithField("error", err.Error()))
		return outcomeFailed
	case page == nil || len(page.Content) < scraper.MinContentLength:
		return outcomeSkipped
	}

	dup, err := p.duplicates.IsDuplicate(ctx, item.Title, page.Content)
	if err != nil {
		log.Error("Duplicate check failed", logging.WithField("error", err.Error()))
		return outcomeFailed
	}
	if dup {
		log.Debug("Skipping story already covered")
		return outcomeSkipped
	}

	rw := p.rewrite(ctx, page.Content, item.Title, log)
	if strings.TrimSpace(rw.Title) == "" || strings.TrimSpace(rw.Content) == "" {
		return outcomeSkipped
	}

	category := rw.Category
	if strings.TrimSpace(category) == "" {
		category = DefaultCategory
	}
	imageURL, images := p.chooseImages(ctx, page.Images, item.Image, category)

	source := item.Source
	if strings.TrimSpace(source) == "" {
		source = defaultSource
	}

	article := &models.NewsArticle{
		ID:          uuid.NewString(),
		Title:       models.NewLocalizedText(rw.Title),
		Summary:     models.NewLocalizedText(rw.Summary),
		Content:     models.NewLocalizedText(rw.Content),
		ImageURL:    imageURL,
		Images:      images,
		Videos:      page.Videos,
		SourceURL:   item.URL,
		Source:      source,
		Category:    p.categories.Resolve(ctx, category),
		Country:     models.CountryForRegion(rw.Region),
		Status:      models.NewsStatusScheduled,
		PublishedAt: slots.Assign(item.PublishedAt),
		AIFallback:  rw.Fallback,
	}

	if err := p.news.Create(ctx, article); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return outcomeSkipped
		}
		log.Error("Failed to save scheduled article", logging.WithField("error", err.Error()))
		return outcomeFailed
	}

	log.Info("Scheduled article", logging.WithFields(map[string]interface{}{
		"id":         article.ID,
		"words":      rw.WordCount(),
		"publish_at": article.PublishedAt.Format(time.RFC3339),
		"category":   article.Category.Name(),
		"fallback":   rw.Fallback,
	}))

	if p.config.GenerateQuizzes {
		if _, err := p.createQuiz(ctx, article); err != nil {
			log.Warn("Quiz generation failed", logging.WithField("error", err.Error()))
		}
	}

	return outcomeSaved
}

// rewrite runs the model once and asks for one longer version when the
// result is short. A short article is still kept.
func (p *Pipeline) rewrite(ctx context.Context, text, title string, log *logging.Logger) models.Rewrite {
	rw := p.rewriter.Rewrite(ctx, text, title)
	words := rw.WordCount()
	if words >= p.config.MinWords {
		return rw
	}

	log.Info("Rewrite too short, asking for expansion", logging.WithField("words", words))
	expanded := p.rewriter.Expand(ctx, text, title)
	if expanded.Fallback && !rw.Fallback {
		return rw
	}
	return expanded
}

// chooseImages picks the lead image: the first scraped image, then the
// source image, then a stock image for the category. Candidates rejected by
// moderation are skipped and dropped from the gallery.
func (p *Pipeline) chooseImages(ctx context.Context, scraped []string, sourceImage, category string) (string, []string) {
	rejected := make(map[string]bool)
	lead := ""

	for _, candidate := range []string{firstOf(scraped), sourceImage} {
		if candidate == "" {
			continue
		}
		if p.imageAllowed(ctx, candidate) {
			lead = candidate
			break
		}
		rejected[candidate] = true
	}
	if lead == "" {
		lead = FallbackImage(category)
	}

	gallery := make([]string, 0, len(scraped))
	for _, img := range scraped {
		if !rejected[img] {
			gallery = append(gallery, img)
		}
	}
	if len(gallery) == 0 {
		gallery = []string{lead}
	}
	return lead, gallery
}

func (p *Pipeline) imageAllowed(ctx context.Context, imageURL string) bool {
	if p.images == nil {
		return true
	}
	ok, err := p.images.Allowed(ctx, imageURL)
	if err != nil {
		p.logger.Warn("Image check failed", logging.WithFields(map[string]interface{}{
			"image": imageURL,
			"error": err.Error(),
		}))
		return false
	}
	return ok
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
