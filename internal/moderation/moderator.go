// Package moderation screens scraped lead images before they are attached
// to a scheduled article.
package moderation

import (
	"context"

	"github.com/johnrirwin/newsdesk/internal/models"
)

// DefaultRejectConfidence is used when no positive threshold is configured.
const DefaultRejectConfidence = 70

// Detector is the provider abstraction that returns moderation labels.
type Detector interface {
	DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]models.ModerationLabel, error)
}

// Service turns labels into an approve/reject decision.
type Service struct {
	detector         Detector
	rejectConfidence float64
}

func NewService(detector Detector, rejectConfidence float64) *Service {
	if rejectConfidence <= 0 {
		rejectConfidence = DefaultRejectConfidence
	}
	return &Service{
		detector:         detector,
		rejectConfidence: rejectConfidence,
	}
}

// ModerateImageBytes rejects the image when any label reaches the configured confidence.
func (s *Service) ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error) {
	labels, err := s.detector.DetectModerationLabels(ctx, imageBytes)
	if err != nil {
		return nil, err
	}

	decision := &models.ModerationDecision{
		Status: models.ImageModerationApproved,
		Reason: "Approved",
		Labels: labels,
	}

	for _, label := range labels {
		if label.Confidence > decision.MaxConfidence {
			decision.MaxConfidence = label.Confidence
		}
		if label.Confidence >= s.rejectConfidence {
			decision.Status = models.ImageModerationRejected
			decision.Reason = label.Name
		}
	}

	return decision, nil
}
