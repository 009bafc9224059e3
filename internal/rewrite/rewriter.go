package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/retry"
)

const (
	// ExpandDirective is appended to the source text when a rewrite came back short.
	ExpandDirective = "\n\nCRITICAL: EXPAND THIS TO 500+ WORDS."

	FallbackCategory = "General"
	FallbackRegion   = "Global"

	fallbackTitleLength   = 120
	fallbackSummaryLength = 250
	minQuizContentLength  = 100
)

var errNoModels = errors.New("no rewrite models configured")

type Config struct {
	// Models are tried in order until one succeeds.
	Models           []string
	AttemptsPerModel int
	Backoff          time.Duration
	MaxInputChars    int
}

func DefaultConfig() Config {
	return Config{
		Models:           []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"},
		AttemptsPerModel: 2,
		Backoff:          time.Second,
		MaxInputChars:    6000,
	}
}

// Rewriter turns scraped article text into an original rewrite and quizzes.
type Rewriter struct {
	backend Backend
	config  Config
	logger  *logging.Logger
}

func New(backend Backend, config Config, logger *logging.Logger) *Rewriter {
	if config.MaxInputChars <= 0 {
		config.MaxInputChars = DefaultConfig().MaxInputChars
	}
	return &Rewriter{
		backend: backend,
		config:  config,
		logger:  logger,
	}
}

// Rewrite never fails: when every model fails it returns Fallback(text, title).
func (r *Rewriter) Rewrite(ctx context.Context, text, title string) models.Rewrite {
	return r.rewrite(ctx, text, title, "")
}

// Expand is Rewrite with an instruction to lengthen the article.
// The fallback still carries the unmodified text.
func (r *Rewriter) Expand(ctx context.Context, text, title string) models.Rewrite {
	return r.rewrite(ctx, text, title, ExpandDirective)
}

func (r *Rewriter) rewrite(ctx context.Context, text, title, directive string) models.Rewrite {
	prompt := rewritePrompt(trimInput(text, r.config.MaxInputChars)+directive, title)

	var result models.Rewrite
	err := r.generate(ctx, prompt, func(raw string) error {
		parsed, err := parseRewrite(raw)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	})
	if err != nil {
		r.logger.Warn("All rewrite models failed, using fallback", logging.WithFields(map[string]interface{}{
			"title": title,
			"error": err.Error(),
		}))
		return Fallback(text, title)
	}

	return result
}

// GenerateQuiz asks the models for a multiple choice quiz about the article.
// A nil draft means no quiz should be created.
func (r *Rewriter) GenerateQuiz(ctx context.Context, content, title string) (*models.QuizDraft, error) {
	if len(strings.TrimSpace(content)) < minQuizContentLength {
		return nil, nil
	}

	prompt := quizPrompt(trimInput(content, r.config.MaxInputChars), title)

	var draft *models.QuizDraft
	err := r.generate(ctx, prompt, func(raw string) error {
		var d models.QuizDraft
		if err := json.Unmarshal([]byte(stripCodeFence(raw)), &d); err != nil {
			return fmt.Errorf("decode quiz: %w", err)
		}
		if strings.TrimSpace(d.Title) == "" {
			d.Title = title
		}
		if err := d.Validate(); err != nil {
			return err
		}
		draft = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// generate walks the model list, retrying each model briefly, until parse
// accepts a response. A backend error marked retry.Permanent moves straight
// on to the next model.
func (r *Rewriter) generate(ctx context.Context, prompt string, parse func(string) error) error {
	if r.backend == nil || len(r.config.Models) == 0 {
		return errNoModels
	}

	cfg := retry.Config{
		MaxAttempts: r.config.AttemptsPerModel,
		Delay:       r.config.Backoff,
		Backoff:     true,
	}

	var errs []error
	for _, model := range r.config.Models {
		err := retry.Do(ctx, cfg, func(ctx context.Context) error {
			raw, err := r.backend.Generate(ctx, model, prompt)
			if err != nil {
				return err
			}
			return parse(raw)
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.logger.Debug("Rewrite model failed", logging.WithFields(map[string]interface{}{
			"model": model,
			"error": err.Error(),
		}))
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
	}

	return errors.Join(errs...)
}

// Fallback builds a rewrite locally from the source text.
func Fallback(text, title string) models.Rewrite {
	return models.Rewrite{
		Title:    truncateRunes(strings.TrimSpace(title), fallbackTitleLength),
		Summary:  truncateRunes(strings.Join(strings.Fields(text), " "), fallbackSummaryLength),
		Content:  text,
		Category: FallbackCategory,
		Region:   FallbackRegion,
		Fallback: true,
	}
}

func parseRewrite(raw string) (models.Rewrite, error) {
	var out models.Rewrite
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return models.Rewrite{}, fmt.Errorf("decode rewrite: %w", err)
	}

	out.Title = strings.TrimSpace(out.Title)
	out.Content = strings.TrimSpace(out.Content)
	if out.Title == "" || out.Content == "" {
		return models.Rewrite{}, errors.New("rewrite is missing title or content")
	}
	if strings.TrimSpace(out.Category) == "" {
		out.Category = FallbackCategory
	}
	if strings.TrimSpace(out.Region) == "" {
		out.Region = FallbackRegion
	}
	return out, nil
}

// stripCodeFence removes a surrounding ```json fence some models add
// despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// trimInput caps text at maxChars runes, preferring to cut at a sentence end.
func trimInput(text string, maxChars int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	trimmed := string([]rune(text)[:maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > maxChars/5 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
