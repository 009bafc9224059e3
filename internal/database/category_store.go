package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/johnrirwin/newsdesk/internal/models"
)

// DefaultCategories seeds the registry on first start.
var DefaultCategories = []string{
	"World", "Politics", "Business", "Technology",
	"Sports", "Health", "Entertainment", "General",
}

type CategoryStore struct {
	db *DB
}

func NewCategoryStore(db *DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// FindByNameOrSlug matches name case-insensitively against names and slugs.
// It returns nil when nothing matches.
func (s *CategoryStore) FindByNameOrSlug(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var c models.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug
		FROM categories
		WHERE LOWER(name) = LOWER($1) OR LOWER(slug) = LOWER($1)
		ORDER BY (LOWER(name) = LOWER($1)) DESC
		LIMIT 1
	`, name).Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}
	return &c, nil
}

func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// EnsureDefaults inserts any missing default category.
func (s *CategoryStore) EnsureDefaults(ctx context.Context) error {
	for _, name := range DefaultCategories {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO categories (name, slug)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, name, models.Slugify(name)); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}
