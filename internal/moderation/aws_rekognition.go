package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/johnrirwin/newsdesk/internal/models"
)

var errEmptyImage = errors.New("image bytes are required")

// minLabelConfidence keeps Rekognition from returning noise labels.
const minLabelConfidence = 40

// AWSDetector sends image bytes to Rekognition; no S3 bucket is involved.
type AWSDetector struct {
	client *rekognition.Client
}

// NewAWSDetector uses the ambient AWS credential chain.
func NewAWSDetector(ctx context.Context, region string) (*AWSDetector, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSDetector{client: rekognition.NewFromConfig(cfg)}, nil
}

func (d *AWSDetector) DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]models.ModerationLabel, error) {
	if len(imageBytes) == 0 {
		return nil, errEmptyImage
	}

	output, err := d.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &rekognitiontypes.Image{Bytes: imageBytes},
		MinConfidence: aws.Float32(minLabelConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect moderation labels: %w", err)
	}

	labels := make([]models.ModerationLabel, 0, len(output.ModerationLabels))
	for _, label := range output.ModerationLabels {
		labels = append(labels, models.ModerationLabel{
			Name:       aws.ToString(label.Name),
			ParentName: aws.ToString(label.ParentName),
			Confidence: float64(aws.ToFloat32(label.Confidence)),
		})
	}
	return labels, nil
}
