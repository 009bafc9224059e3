// Package ranking scores articles by freshness and importance.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/johnrirwin/newsdesk/internal/models"
)

const (
	freshnessHours     = 48.0
	trustedSourceBoost = 10.0
)

var keywordBoosts = []struct {
	keyword string
	boost   float64
}{
	{"breaking", 30},
	{"urgent", 20},
	{"exclusive", 15},
	{"just in", 10},
}

var trustedSources = map[string]bool{
	"BBC News":       true,
	"NY Times World": true,
}

// Score returns max(0, 48 - hours since publish) plus keyword and source
// boosts, rounded to two decimals. Articles without a publish date get no
// freshness points.
func Score(a models.RawArticle, now time.Time) float64 {
	score := 0.0

	if a.HasPublishedAt() {
		hours := now.Sub(a.PublishedAt).Hours()
		score += math.Max(0, freshnessHours-hours)
	}

	title := strings.ToLower(a.Title)
	for _, kb := range keywordBoosts {
		if strings.Contains(title, kb.keyword) {
			score += kb.boost
		}
	}

	if trustedSources[a.Source] {
		score += trustedSourceBoost
	}

	return math.Round(score*100) / 100
}

// Rank scores every article into a new slice; the input is left untouched.
func Rank(articles []models.RawArticle, now time.Time) []models.FeedArticle {
	ranked := make([]models.FeedArticle, 0, len(articles))
	for _, a := range articles {
		ranked = append(ranked, models.FeedArticle{
			RawArticle: a,
			Score:      Score(a, now),
		})
	}
	return ranked
}

// Sort orders by score descending, newest first on ties.
func Sort(articles []models.FeedArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].Score != articles[j].Score {
			return articles[i].Score > articles[j].Score
		}
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
