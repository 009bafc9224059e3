package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/johnrirwin/newsdesk/internal/models"
)

type QuizStore struct {
	db *DB
}

func NewQuizStore(db *DB) *QuizStore {
	return &QuizStore{db: db}
}

// Create stores a quiz, assigning an ID when it has none. Each news article
// has at most one quiz; a second one fails with ErrDuplicate.
func (s *QuizStore) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("encode quiz questions: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO quizzes (
			id, title, description, category, questions,
			news_id, source_type, status, timer_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
		quiz.ID,
		quiz.Title,
		nullString(quiz.Description),
		quiz.Category,
		questions,
		nullString(quiz.NewsID),
		quiz.SourceType,
		quiz.Status,
		quiz.TimerMinutes,
	).Scan(&quiz.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) ExistsForNews(ctx context.Context, newsID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM quizzes WHERE news_id = $1)`, newsID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check quiz for news: %w", err)
	}
	return exists, nil
}
