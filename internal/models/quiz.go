package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	QuizSourceAINews    = "ai_news"
	QuizStatusPublished = "published"
	QuizOptionCount     = 4
	QuizTimerMinutes    = 3
)

type QuizQuestion struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Explanation        string   `json:"explanation,omitempty"`
}

// QuizDraft is the generator output before it is attached to an article.
type QuizDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []QuizQuestion `json:"questions"`
}

// Validate drops malformed questions and reports whether anything usable is left.
func (d *QuizDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("quiz title is required")
	}

	valid := d.Questions[:0]
	for _, q := range d.Questions {
		if strings.TrimSpace(q.QuestionText) == "" {
			continue
		}
		if len(q.Options) != QuizOptionCount {
			continue
		}
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			continue
		}
		valid = append(valid, q)
	}
	d.Questions = valid

	if len(d.Questions) == 0 {
		return fmt.Errorf("quiz has no valid questions")
	}
	return nil
}

type Quiz struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	Questions    []QuizQuestion `json:"questions"`
	NewsID       string         `json:"newsId"`
	SourceType   string         `json:"sourceType"`
	Status       string         `json:"status"`
	TimerMinutes int            `json:"timerMinutes"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// QuizCategory maps a news category name onto the fixed quiz category set.
func QuizCategory(newsCategory string) string {
	c := strings.ToLower(newsCategory)
	switch {
	case strings.Contains(c, "tech"), strings.Contains(c, "science"):
		return "technology"
	case strings.Contains(c, "sport"):
		return "sports"
	case strings.Contains(c, "entert"), strings.Contains(c, "movie"), strings.Contains(c, "celeb"):
		return "entertainment"
	case strings.Contains(c, "polit"):
		return "politics"
	case strings.Contains(c, "histor"):
		return "history"
	case strings.Contains(c, "geo"):
		return "geography"
	}
	return "general"
}
