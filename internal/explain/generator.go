// Package explain turns a finalized Decision into plain, technical, and
// legal prose. It describes decisions; it never makes or changes them.
package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/veriscope/veriscope/internal/genai"
	"github.com/veriscope/veriscope/internal/models"
)

// Request carries the finalized decision and its context to the generator.
type Request struct {
	Decision  models.Decision
	MediaType models.MediaType
	Face      *models.FaceDetectionResult
	// FrameCount/FlaggedFrames are set for video analyses.
	FrameCount    int
	FlaggedFrames int
	// ImageData optionally lets the model look at the sample it is
	// describing. Never required.
	ImageData []byte
}

// Generator produces explanations for an already-made decision.
type Generator interface {
	Explain(ctx context.Context, req Request) (*models.Explanation, error)
}

// VisionAPI is the slice of the generative client the generator needs.
type VisionAPI interface {
	CompleteVision(ctx context.Context, system, prompt string, imageData []byte) (string, error)
}

// VisionGenerator asks a generative model for the three explanation texts.
// The prompt pins the verdict and score so the model explains the decision
// instead of re-deciding it. Callers fall back to Fallback on any error.
type VisionGenerator struct {
	client VisionAPI
}

// NewVisionGenerator creates a generative explanation generator.
func NewVisionGenerator(client VisionAPI) *VisionGenerator {
	return &VisionGenerator{client: client}
}

const explainSystemPrompt = `You are a forensic media analyst writing up a finding that has already been made. The verdict and credibility score are final; do not second-guess, soften, or contradict them. Describe the kinds of indicators consistent with the finding.

Respond with a JSON object (no markdown, just raw JSON):
{
  "plain_explanation": "simple explanation for general users",
  "technical_explanation": "detailed technical analysis",
  "legal_explanation": "formal forensic finding suitable for legal use",
  "visual_artifacts": [{"type": string, "location": string, "severity": "low"|"medium"|"high"}]
}`

type explainResponse struct {
	Plain     string                  `json:"plain_explanation"`
	Technical string                  `json:"technical_explanation"`
	Legal     string                  `json:"legal_explanation"`
	Artifacts []models.VisualArtifact `json:"visual_artifacts"`
}

// Explain implements Generator.
func (g *VisionGenerator) Explain(ctx context.Context, req Request) (*models.Explanation, error) {
	content, err := g.client.CompleteVision(ctx, explainSystemPrompt, buildPrompt(req), req.ImageData)
	if err != nil {
		return nil, fmt.Errorf("explanation call failed: %w", err)
	}

	var parsed explainResponse
	if err := json.Unmarshal([]byte(genai.StripFences(content)), &parsed); err != nil {
		return nil, fmt.Errorf("explanation response not parsable: %w", err)
	}
	if parsed.Plain == "" || parsed.Technical == "" || parsed.Legal == "" {
		return nil, fmt.Errorf("explanation response missing required fields")
	}

	return &models.Explanation{
		Plain:     parsed.Plain,
		Technical: parsed.Technical,
		Legal:     parsed.Legal,
		Artifacts: sanitizeArtifacts(parsed.Artifacts),
	}, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder

	kind := "image"
	switch req.MediaType {
	case models.MediaTypeVideo:
		kind = "video"
	case models.MediaTypeAudio:
		kind = "audio recording"
	}

	fmt.Fprintf(&b, "Final decision for this %s: verdict %s, credibility score %d/100 (%s), estimated manipulation probability %.2f.\n",
		kind, req.Decision.Verdict, req.Decision.CredibilityScore, req.Decision.CredibilityLevel, req.Decision.PFake)

	if req.FrameCount > 0 {
		fmt.Fprintf(&b, "The decision aggregates %d sampled frames, %d of which were flagged as likely manipulated.\n",
			req.FrameCount, req.FlaggedFrames)
	}
	if req.Face != nil {
		if req.Face.HasFaces {
			fmt.Fprintf(&b, "Face detection found %d face(s).\n", req.Face.FaceCount)
		} else {
			reason := req.Face.Reason
			if reason == "" {
				reason = "no faces detected"
			}
			fmt.Fprintf(&b, "Face detection found no analyzable faces (%s), so the verdict is the uncertain fail-safe.\n", reason)
		}
	}

	b.WriteString("Write the three explanations for this exact decision.")
	return b.String()
}

func sanitizeArtifacts(artifacts []models.VisualArtifact) []models.VisualArtifact {
	out := make([]models.VisualArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Type == "" {
			continue
		}
		switch a.Severity {
		case "low", "medium", "high":
		default:
			a.Severity = "low"
		}
		out = append(out, a)
	}
	return out
}
