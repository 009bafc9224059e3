package dedup

import "github.com/johnrirwin/newsdesk/internal/models"

// Batch removes exact URL collisions and then near-duplicate titles.
// The first occurrence in input order always wins, so Batch is stable and
// idempotent. Articles without a URL or a title are dropped.
func Batch(articles []models.RawArticle) []models.RawArticle {
	seenURL := make(map[string]bool, len(articles))
	byURL := make([]models.RawArticle, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" || seenURL[a.URL] {
			continue
		}
		seenURL[a.URL] = true
		byURL = append(byURL, a)
	}

	kept := make([]models.RawArticle, 0, len(byURL))
	for _, a := range byURL {
		if NormalizeTitle(a.Title) == "" {
			continue
		}
		if overlapsAny(a.Title, kept) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func overlapsAny(title string, kept []models.RawArticle) bool {
	for _, k := range kept {
		if TitlesOverlap(title, k.Title, BatchThreshold) {
			return true
		}
	}
	return false
}
