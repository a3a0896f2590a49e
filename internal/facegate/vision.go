package facegate

import (
	"context"
	"encoding/json"

	"github.com/veriscope/veriscope/internal/genai"
	"github.com/veriscope/veriscope/internal/logging"
	"github.com/veriscope/veriscope/internal/models"
)

const visionSystemPrompt = `You are a face detection component. Examine the image and report any human faces.

Respond with a JSON object (no markdown, just raw JSON):
{
  "hasFaces": boolean,
  "faceCount": integer,
  "faceRegions": [{"x": number, "y": number, "width": number, "height": number}],
  "reason": "short explanation when hasFaces is false"
}

faceRegions values are percentages of image dimensions, 0-100.`

// VisionAPI is the slice of the generative client the detector needs.
type VisionAPI interface {
	CompleteVision(ctx context.Context, system, prompt string, imageData []byte) (string, error)
}

// VisionDetector detects faces with a generative vision model.
//
// It is fail-safe, not fail-fatal: a transport error or an unparsable model
// response degrades to hasFaces=false with a generic reason, so the pipeline
// short-circuits into its uncertain terminal state instead of classifying
// non-facial content.
type VisionDetector struct {
	client VisionAPI
	logger *logging.Logger
}

// NewVisionDetector creates a generative-model face detector.
func NewVisionDetector(client VisionAPI, logger *logging.Logger) *VisionDetector {
	return &VisionDetector{client: client, logger: logger}
}

type visionFaceResponse struct {
	HasFaces    bool                `json:"hasFaces"`
	FaceCount   int                 `json:"faceCount"`
	FaceRegions []models.FaceRegion `json:"faceRegions"`
	Reason      string              `json:"reason"`
}

// DetectFaces implements Detector. It never returns an error.
func (d *VisionDetector) DetectFaces(ctx context.Context, imageBytes []byte) (*models.FaceDetectionResult, error) {
	content, err := d.client.CompleteVision(ctx, visionSystemPrompt, "Detect all human faces in this image.", imageBytes)
	if err != nil {
		d.logger.Warn("face detection call failed", logging.WithField("error", err.Error()))
		return unableToVerify(), nil
	}

	var parsed visionFaceResponse
	if err := json.Unmarshal([]byte(genai.StripFences(content)), &parsed); err != nil {
		d.logger.Warn("face detection response not parsable", logging.WithField("error", err.Error()))
		return unableToVerify(), nil
	}

	result := &models.FaceDetectionResult{
		HasFaces:    parsed.HasFaces,
		FaceCount:   parsed.FaceCount,
		FaceRegions: clampRegions(parsed.FaceRegions),
		Reason:      parsed.Reason,
	}
	if result.HasFaces && result.FaceCount < 1 {
		result.FaceCount = 1
	}
	if !result.HasFaces && result.Reason == "" {
		result.Reason = "no detectable faces in the image"
	}

	return result, nil
}

func unableToVerify() *models.FaceDetectionResult {
	return &models.FaceDetectionResult{
		HasFaces: false,
		Reason:   "face detection unavailable",
	}
}

func clampRegions(regions []models.FaceRegion) []models.FaceRegion {
	out := make([]models.FaceRegion, 0, len(regions))
	for _, r := range regions {
		out = append(out, models.FaceRegion{
			X:      clampPct(r.X),
			Y:      clampPct(r.Y),
			Width:  clampPct(r.Width),
			Height: clampPct(r.Height),
		})
	}
	return out
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
