package facegate

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/veriscope/veriscope/internal/models"
)

// RekognitionDetector calls AWS Rekognition DetectFaces with byte payloads
// (no S3 round trip). It is an alternative to the generative detector for
// deployments that already run on AWS credentials.
type RekognitionDetector struct {
	client *rekognition.Client
}

// NewRekognitionDetector creates a detector using ambient AWS credentials.
func NewRekognitionDetector(ctx context.Context, region string) (*RekognitionDetector, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{}
	trimmedRegion := strings.TrimSpace(region)
	if trimmedRegion != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(trimmedRegion))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &RekognitionDetector{
		client: rekognition.NewFromConfig(cfg),
	}, nil
}

// DetectFaces implements Detector. Bounding boxes come back as 0-1 ratios
// and are normalized to 0-100 percentages.
func (d *RekognitionDetector) DetectFaces(ctx context.Context, imageBytes []byte) (*models.FaceDetectionResult, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}

	output, err := d.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: &rekognitiontypes.Image{
			Bytes: imageBytes,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect faces failed: %w", err)
	}

	regions := make([]models.FaceRegion, 0, len(output.FaceDetails))
	for _, face := range output.FaceDetails {
		box := face.BoundingBox
		if box == nil {
			continue
		}
		regions = append(regions, models.FaceRegion{
			X:      clampPct(float64(deref(box.Left)) * 100),
			Y:      clampPct(float64(deref(box.Top)) * 100),
			Width:  clampPct(float64(deref(box.Width)) * 100),
			Height: clampPct(float64(deref(box.Height)) * 100),
		})
	}

	result := &models.FaceDetectionResult{
		HasFaces:    len(regions) > 0,
		FaceCount:   len(regions),
		FaceRegions: regions,
	}
	if !result.HasFaces {
		result.Reason = "no detectable faces in the image"
	}

	return result, nil
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
