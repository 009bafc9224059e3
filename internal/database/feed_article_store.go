package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/johnrirwin/newsdesk/internal/models"
)

const defaultFeedLimit = 50

// FeedArticleStore persists ranked feed articles in Postgres.
type FeedArticleStore struct {
	db *DB
}

func NewFeedArticleStore(db *DB) *FeedArticleStore {
	return &FeedArticleStore{db: db}
}

// InsertIfAbsent stores the article unless its URL is already present.
// Existing rows are never updated.
func (s *FeedArticleStore) InsertIfAbsent(ctx context.Context, article models.FeedArticle) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_articles (
			title, summary, content, url, image,
			source, category, published_at, score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (url) DO NOTHING
	`,
		article.Title,
		nullString(article.Summary),
		nullString(article.Content),
		article.URL,
		nullString(article.Image),
		article.Source,
		article.Category,
		nullTime(article.PublishedAt),
		article.Score,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicate
		}
		return false, fmt.Errorf("insert feed article %s: %w", article.URL, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert feed article %s: %w", article.URL, err)
	}
	return rows > 0, nil
}

// DeleteOlderThan removes articles stored before cutoff.
func (s *FeedArticleStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feed_articles WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old feed articles: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

// Query returns the ranked feed and the total matching count.
func (s *FeedArticleStore) Query(ctx context.Context, query models.FeedQuery) ([]models.FeedArticle, int, error) {
	whereParts := []string{"TRUE"}
	args := make([]interface{}, 0)
	argPos := 1

	if c := strings.TrimSpace(query.Category); c != "" {
		whereParts = append(whereParts, fmt.Sprintf("LOWER(category) = LOWER($%d)", argPos))
		args = append(args, c)
		argPos++
	}
	if src := strings.TrimSpace(query.Source); src != "" {
		whereParts = append(whereParts, fmt.Sprintf("LOWER(source) = LOWER($%d)", argPos))
		args = append(args, src)
		argPos++
	}
	if fromTime, ok := models.ParseDateFilter(query.FromDate); ok {
		whereParts = append(whereParts, fmt.Sprintf("published_at >= $%d", argPos))
		args = append(args, fromTime)
		argPos++
	}
	if toTime, ok := models.ParseDateFilter(query.ToDate); ok {
		// End of day for inclusive filter.
		toTime = toTime.Add(24*time.Hour - time.Nanosecond)
		whereParts = append(whereParts, fmt.Sprintf("published_at <= $%d", argPos))
		args = append(args, toTime)
		argPos++
	}

	whereSQL := strings.Join(whereParts, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feed_articles WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feed articles: %w", err)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	selectQuery := `
		SELECT id, title, summary, content, url, image,
		       source, category, published_at, score, created_at
		FROM feed_articles
		WHERE ` + whereSQL + `
		ORDER BY score DESC, published_at DESC NULLS LAST
		LIMIT $` + fmt.Sprint(argPos)

	rows, err := s.db.QueryContext(ctx, selectQuery, append(args, limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query feed articles: %w", err)
	}
	defer rows.Close()

	items := make([]models.FeedArticle, 0)
	for rows.Next() {
		var item models.FeedArticle
		var summary, content, image sql.NullString
		var publishedAt sql.NullTime

		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&summary,
			&content,
			&item.URL,
			&image,
			&item.Source,
			&item.Category,
			&publishedAt,
			&item.Score,
			&item.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan feed article: %w", err)
		}

		item.Summary = summary.String
		item.Content = content.String
		item.Image = image.String
		if publishedAt.Valid {
			item.PublishedAt = publishedAt.Time
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate feed articles: %w", err)
	}

	return items, total, nil
}

// Stats counts stored articles overall, per category and per source.
func (s *FeedArticleStore) Stats(ctx context.Context) (models.FeedStats, error) {
	stats := models.FeedStats{
		ByCategory: []models.StatCount{},
		BySource:   []models.StatCount{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed_articles`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("count feed articles: %w", err)
	}

	var err error
	if stats.ByCategory, err = s.groupCount(ctx, "category"); err != nil {
		return stats, err
	}
	if stats.BySource, err = s.groupCount(ctx, "source"); err != nil {
		return stats, err
	}
	return stats, nil
}

// groupCount is only called with fixed column names.
func (s *FeedArticleStore) groupCount(ctx context.Context, column string) ([]models.StatCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*)
		FROM feed_articles
		GROUP BY `+column+`
		ORDER BY COUNT(*) DESC, `+column)
	if err != nil {
		return nil, fmt.Errorf("group feed articles by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make([]models.StatCount, 0)
	for rows.Next() {
		var c models.StatCount
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
