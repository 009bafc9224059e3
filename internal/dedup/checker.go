package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/johnrirwin/newsdesk/internal/models"
)

const (
	// SnippetLength is how much of a body is compared for content overlap.
	SnippetLength = 200
	// RecentWindow bounds how far back stored articles are scanned.
	RecentWindow = 3 * 24 * time.Hour
)

// Lookup is the read side of the news store needed for cross-run checks.
type Lookup interface {
	TitleExists(ctx context.Context, title string) (bool, error)
	ListSince(ctx context.Context, since time.Time) ([]models.StoredText, error)
}

// Checker decides whether a candidate story was already processed by an earlier run.
type Checker struct {
	lookup    Lookup
	window    time.Duration
	threshold float64
	now       func() time.Time
}

func NewChecker(lookup Lookup) *Checker {
	return &Checker{
		lookup:    lookup,
		window:    RecentWindow,
		threshold: CrossRunThreshold,
		now:       time.Now,
	}
}

// IsDuplicate checks an exact case-insensitive title match first, then scans
// recent articles for a similar title whose body overlaps. It returns on the
// first match.
func (c *Checker) IsDuplicate(ctx context.Context, title, content string) (bool, error) {
	exists, err := c.lookup.TitleExists(ctx, strings.TrimSpace(title))
	if err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	if exists {
		return true, nil
	}

	recent, err := c.lookup.ListSince(ctx, c.now().Add(-c.window))
	if err != nil {
		return false, fmt.Errorf("list recent articles: %w", err)
	}

	body := normalizeBody(content)
	for _, stored := range recent {
		if Jaccard(title, stored.Title) <= c.threshold {
			continue
		}
		if bodiesOverlap(body, normalizeBody(stored.Content)) {
			return true, nil
		}
	}
	return false, nil
}

func normalizeBody(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func snippet(body string) string {
	runes := []rune(body)
	if len(runes) > SnippetLength {
		runes = runes[:SnippetLength]
	}
	return string(runes)
}

// bodiesOverlap reports whether the opening of either body appears in the other.
func bodiesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(b, snippet(a)) || strings.Contains(a, snippet(b))
}
