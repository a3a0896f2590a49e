// Package facegate decides whether an image contains analyzable facial
// content before any deepfake classifier is trusted on it.
package facegate

import (
	"context"

	"github.com/veriscope/veriscope/internal/models"
)

// Detector is the provider abstraction for face detection.
type Detector interface {
	DetectFaces(ctx context.Context, imageBytes []byte) (*models.FaceDetectionResult, error)
}
