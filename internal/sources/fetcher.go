package sources

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/newsdesk/internal/models"
)

// ErrNoSources means the fetch plan is empty.
var ErrNoSources = errors.New("no feed sources configured")

// Fetcher pulls raw articles from one source. A failing fetcher never
// affects the others.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]models.RawArticle, error)
	SourceInfo() models.SourceInfo
}

type FetchResult struct {
	Items  []models.RawArticle
	Source models.SourceInfo
	Error  error
}

type FetcherConfig struct {
	Timeout     time.Duration
	MaxItems    int
	UserAgent   string
	Concurrency int
}

func DefaultConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:     30 * time.Second,
		MaxItems:    50,
		UserAgent:   "NewsdeskAggregator/1.0",
		Concurrency: 8,
	}
}

// FetchAll runs every fetcher concurrently and waits for all of them.
// Results keep the order of fetchers; errors are reported per result.
func FetchAll(ctx context.Context, fetchers []Fetcher, concurrency int) []FetchResult {
	results := make([]FetchResult, len(fetchers))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, f := range fetchers {
		g.Go(func() error {
			items, err := f.Fetch(ctx)
			results[i] = FetchResult{
				Items:  items,
				Source: f.SourceInfo(),
				Error:  err,
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
