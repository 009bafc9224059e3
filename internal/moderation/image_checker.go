package moderation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
)

const (
	// MaxImageBytes is the Rekognition limit for inline image bytes.
	MaxImageBytes = 5 << 20

	defaultCheckTimeout = 10 * time.Second
)

// Only JPEG and PNG can be sent to Rekognition; other image types pass unchecked.
var moderatedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Moderator is satisfied by Service.
type Moderator interface {
	ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error)
}

// ImageChecker downloads a remote image and asks the moderator about it.
type ImageChecker struct {
	moderator  Moderator
	httpClient *http.Client
	userAgent  string
	logger     *logging.Logger
}

func NewImageChecker(moderator Moderator, timeout time.Duration, userAgent string, logger *logging.Logger) *ImageChecker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &ImageChecker{
		moderator:  moderator,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Allowed reports whether imageURL may be used as a lead image. Responses that
// are not images are refused; download or moderation errors are returned so the
// caller can decide whether to fail open.
func (c *ImageChecker) Allowed(ctx context.Context, imageURL string) (bool, error) {
	data, err := c.download(ctx, imageURL)
	if err != nil {
		return false, err
	}

	contentType, isImage := detectImageContentType(data)
	if !isImage {
		return false, nil
	}
	if !moderatedContentTypes[contentType] {
		return true, nil
	}

	decision, err := c.moderator.ModerateImageBytes(ctx, data)
	if err != nil {
		return false, fmt.Errorf("moderate %s: %w", imageURL, err)
	}

	if decision.Status == models.ImageModerationRejected {
		c.logger.Warn("Lead image rejected by moderation", logging.WithFields(map[string]interface{}{
			"url":            imageURL,
			"reason":         decision.Reason,
			"max_confidence": decision.MaxConfidence,
		}))
		return false, nil
	}
	return true, nil
}

func (c *ImageChecker) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	return data, nil
}

func detectImageContentType(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	contentType := strings.ToLower(http.DetectContentType(data))
	return contentType, strings.HasPrefix(contentType, "image/")
}
