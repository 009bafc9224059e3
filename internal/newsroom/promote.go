package newsroom

import (
	"context"
	"fmt"
	"time"

	"github.com/johnrirwin/newsdesk/internal/logging"
)

// Promote publishes every scheduled article whose publish time has passed.
// Running it again with the same now changes nothing.
func (p *Pipeline) Promote(ctx context.Context, now time.Time) (int64, error) {
	promoted, err := p.news.PromoteDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("promote scheduled articles: %w", err)
	}
	if promoted > 0 {
		p.logger.Info("Scheduled articles went live", logging.WithField("count", promoted))
	}
	return promoted, nil
}
