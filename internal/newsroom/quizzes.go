package newsroom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/johnrirwin/newsdesk/internal/database"
	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
)

const (
	// DefaultBackfillLimit is used when a backfill call names no limit.
	DefaultBackfillLimit = 5
	// MaxBackfillLimit caps the quizzes generated by one backfill call.
	MaxBackfillLimit = 50

	defaultQuizDescription = "Test your knowledge."
)

// BackfillQuizzes generates quizzes for published articles that have none.
// It returns how many quizzes were stored.
func (p *Pipeline) BackfillQuizzes(ctx context.Context, limit int) (int, error) {
	if p.quizzes == nil {
		return 0, errors.New("quiz store not configured")
	}
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}
	if limit > MaxBackfillLimit {
		limit = MaxBackfillLimit
	}

	articles, err := p.news.ListWithoutQuiz(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list articles without quiz: %w", err)
	}

	created := 0
	for i := range articles {
		if ctx.Err() != nil {
			break
		}
		ok, err := p.createQuiz(ctx, &articles[i])
		if err != nil {
			p.logger.Warn("Quiz backfill failed for article", logging.WithFields(map[string]interface{}{
				"news_id": articles[i].ID,
				"error":   err.Error(),
			}))
			continue
		}
		if ok {
			created++
		}
	}

	p.logger.Info("Quiz backfill complete", logging.WithFields(map[string]interface{}{
		"candidates": len(articles),
		"created":    created,
	}))
	return created, nil
}

// createQuiz stores a quiz for article. It reports false without error when
// the model declined, the content was too short or a quiz already exists.
func (p *Pipeline) createQuiz(ctx context.Context, article *models.NewsArticle) (bool, error) {
	if p.quizzes == nil {
		return false, nil
	}

	exists, err := p.quizzes.ExistsForNews(ctx, article.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	title := article.Title.Default()
	content := article.Content.Default()
	if content == "" {
		content = article.Summary.Default()
	}

	draft, err := p.rewriter.GenerateQuiz(ctx, content, title)
	if err != nil || draft == nil {
		return false, err
	}

	description := strings.TrimSpace(draft.Description)
	if description == "" {
		description = defaultQuizDescription
	}
	quizTitle := strings.TrimSpace(draft.Title)
	if quizTitle == "" {
		quizTitle = title
	}

	quiz := &models.Quiz{
		ID:           uuid.NewString(),
		Title:        quizTitle,
		Description:  description,
		Category:     models.QuizCategory(article.Category.Name()),
		Questions:    draft.Questions,
		NewsID:       article.ID,
		SourceType:   models.QuizSourceAINews,
		Status:       models.QuizStatusPublished,
		TimerMinutes: models.QuizTimerMinutes,
	}
	if err := p.quizzes.Create(ctx, quiz); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("save quiz: %w", err)
	}
	return true, nil
}
