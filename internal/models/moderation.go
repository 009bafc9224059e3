package models

// ImageModerationStatus is the outcome of moderating a lead image.
type ImageModerationStatus string

const (
	ImageModerationApproved ImageModerationStatus = "APPROVED"
	ImageModerationRejected ImageModerationStatus = "REJECTED"
)

// ModerationLabel captures a single Rekognition moderation label.
type ModerationLabel struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Confidence float64 `json:"confidence"`
}

type ModerationDecision struct {
	Status        ImageModerationStatus `json:"status"`
	Reason        string                `json:"reason,omitempty"`
	Labels        []ModerationLabel     `json:"labels,omitempty"`
	MaxConfidence float64               `json:"maxConfidence,omitempty"`
}
