package facegate

import (
	"context"

	"github.com/veriscope/veriscope/internal/models"
)

// MockDetector is a configurable detector for tests.
type MockDetector struct {
	Result *models.FaceDetectionResult
	Err    error
	Calls  int
}

// DetectFaces returns the configured result/error.
func (m *MockDetector) DetectFaces(ctx context.Context, imageBytes []byte) (*models.FaceDetectionResult, error) {
	_ = ctx
	_ = imageBytes
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &models.FaceDetectionResult{HasFaces: true, FaceCount: 1}, nil
}
