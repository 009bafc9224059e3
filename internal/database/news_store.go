package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/johnrirwin/newsdesk/internal/models"
)

// NewsStore persists rewritten articles awaiting or past publication.
type NewsStore struct {
	db *DB
}

func NewNewsStore(db *DB) *NewsStore {
	return &NewsStore{db: db}
}

const newsColumns = `
	id, title, summary, content, image_url, images, videos,
	source_url, source, category_id, category_name, country,
	status, published_at, is_user_post, ai_fallback, created_at`

func (s *NewsStore) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM news_articles WHERE source_url = $1)`, sourceURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check news source url: %w", err)
	}
	return exists, nil
}

// Create inserts a news article, assigning an ID when it has none. A second
// article with the same source URL fails with ErrDuplicate.
func (s *NewsStore) Create(ctx context.Context, article *models.NewsArticle) error {
	if err := article.Validate(); err != nil {
		return fmt.Errorf("invalid news article: %w", err)
	}
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	images := article.Images
	if images == nil {
		images = []string{}
	}
	videos := article.Videos
	if videos == nil {
		videos = []string{}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO news_articles (`+newsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		RETURNING created_at
	`,
		article.ID,
		article.Title,
		article.Summary,
		article.Content,
		nullString(article.ImageURL),
		pq.Array(images),
		pq.Array(videos),
		article.SourceURL,
		nullString(article.Source),
		nullString(article.Category.ID()),
		nullString(article.Category.Name()),
		article.Country,
		string(article.Status),
		article.PublishedAt,
		article.IsUserPost,
		article.AIFallback,
	).Scan(&article.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert news article: %w", err)
	}
	return nil
}

// LatestPublishedAt returns the newest publish time among pipeline-created
// articles, whatever their status.
func (s *NewsStore) LatestPublishedAt(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(published_at) FROM news_articles WHERE is_user_post = FALSE`,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest publish time: %w", err)
	}
	return latest.Time, latest.Valid, nil
}

func (s *NewsStore) TitleExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM news_articles WHERE LOWER(title->>'en') = LOWER($1))`, title,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check news title: %w", err)
	}
	return exists, nil
}

// ListSince returns the default-language title and body of articles
// published at or after since.
func (s *NewsStore) ListSince(ctx context.Context, since time.Time) ([]models.StoredText, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(title->>'en', ''), COALESCE(content->>'en', '')
		FROM news_articles
		WHERE published_at >= $1
		ORDER BY published_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list recent news: %w", err)
	}
	defer rows.Close()

	texts := make([]models.StoredText, 0)
	for rows.Next() {
		var t models.StoredText
		if err := rows.Scan(&t.Title, &t.Content); err != nil {
			return nil, fmt.Errorf("scan recent news: %w", err)
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}

// PromoteDue publishes every scheduled article whose publish time has passed.
func (s *NewsStore) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE news_articles
		SET status = $1
		WHERE status = $2 AND published_at <= $3
	`, string(models.NewsStatusPublished), string(models.NewsStatusScheduled), now)
	if err != nil {
		return 0, fmt.Errorf("promote scheduled news: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

// ListWithoutQuiz returns published pipeline articles that have no quiz, newest first.
func (s *NewsStore) ListWithoutQuiz(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+newsColumns+`
		FROM news_articles n
		WHERE n.status = $1
		  AND n.is_user_post = FALSE
		  AND NOT EXISTS (SELECT 1 FROM quizzes q WHERE q.news_id = n.id)
		ORDER BY n.published_at DESC
		LIMIT $2
	`, string(models.NewsStatusPublished), limit)
	if err != nil {
		return nil, fmt.Errorf("list news without quiz: %w", err)
	}
	defer rows.Close()

	articles := make([]models.NewsArticle, 0)
	for rows.Next() {
		article, err := scanNewsArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	return articles, rows.Err()
}

// GetByID returns the article or nil when it does not exist.
func (s *NewsStore) GetByID(ctx context.Context, id string) (*models.NewsArticle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+newsColumns+` FROM news_articles WHERE id = $1`, id)
	article, err := scanNewsArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return article, err
}

func scanNewsArticle(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.NewsArticle, error) {
	var a models.NewsArticle
	var imageURL, source, categoryID, categoryName sql.NullString
	var images, videos pq.StringArray
	var status string

	err := scanner.Scan(
		&a.ID,
		&a.Title,
		&a.Summary,
		&a.Content,
		&imageURL,
		&images,
		&videos,
		&a.SourceURL,
		&source,
		&categoryID,
		&categoryName,
		&a.Country,
		&status,
		&a.PublishedAt,
		&a.IsUserPost,
		&a.AIFallback,
		&a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan news article: %w", err)
	}

	a.ImageURL = imageURL.String
	a.Source = source.String
	a.Images = []string(images)
	a.Videos = []string(videos)
	a.Status = models.NewsStatus(status)
	if categoryID.Valid {
		a.Category = models.ResolvedCategory(categoryID.String, categoryName.String)
	} else {
		a.Category = models.UnresolvedCategory(categoryName.String)
	}
	return &a, nil
}
