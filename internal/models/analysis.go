package models

import "time"

// MediaType identifies the kind of media a file holds.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// Verdict is the discrete outcome of the decision engine.
type Verdict string

const (
	VerdictAuthentic  Verdict = "AUTHENTIC"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictLikelyFake Verdict = "LIKELY_FAKE"
	VerdictFake       Verdict = "FAKE"
)

// CredibilityLevel is the human-readable bucket paired with a verdict.
type CredibilityLevel string

const (
	LevelAuthentic         CredibilityLevel = "authentic"
	LevelLikelyAuthentic   CredibilityLevel = "likely_authentic"
	LevelUncertain         CredibilityLevel = "uncertain"
	LevelLikelyManipulated CredibilityLevel = "likely_manipulated"
	LevelManipulated       CredibilityLevel = "manipulated"
)

// AnalysisStatus tracks the lifecycle of a persisted analysis result.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// AnalysisRequest is the parameter object for one pipeline run.
// It is immutable once constructed and is not persisted as its own entity.
type AnalysisRequest struct {
	MediaID          string    `json:"mediaId"`
	MediaType        MediaType `json:"mediaType"`
	SourceLocator    string    `json:"sourceLocator"`
	FrameLocators    []string  `json:"frameLocators,omitempty"`
	ReferenceLocator string    `json:"referenceLocator,omitempty"`
}

// Decision is the authoritative output of the decision engine.
// CredibilityScore is always round((1-PFake)*100); verdict and level are a
// discretization of the same PFake, never derived independently.
type Decision struct {
	Verdict          Verdict          `json:"verdict"`
	CredibilityLevel CredibilityLevel `json:"credibilityLevel"`
	CredibilityScore int              `json:"credibilityScore"`
	PFake            float64          `json:"pFake"`
}

// FaceRegion is a normalized bounding box, each field a percentage 0-100.
type FaceRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FaceDetectionResult is the output of the face gate.
type FaceDetectionResult struct {
	HasFaces    bool         `json:"hasFaces"`
	FaceCount   int          `json:"faceCount"`
	FaceRegions []FaceRegion `json:"faceRegions,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// VisualArtifact describes one cosmetic anomaly reported by the explanation
// generator. Artifacts are explanatory only and never decision-bearing.
type VisualArtifact struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Severity string `json:"severity"`
}

// HeatmapCell is one cell of the 10x10 anomaly intensity grid.
type HeatmapCell struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Value float64 `json:"value"`
}

// FrameResult records the classifier outcome for one sampled video frame.
type FrameResult struct {
	Index  int     `json:"index"`
	PFake  float64 `json:"pFake"`
	IsFake bool    `json:"isFake"`
}

// Explanation holds the three natural-language renderings of one Decision
// plus any cosmetic artifacts the generator reported.
type Explanation struct {
	Plain     string           `json:"plainExplanation"`
	Technical string           `json:"technicalExplanation"`
	Legal     string           `json:"legalExplanation"`
	Artifacts []VisualArtifact `json:"visualArtifacts,omitempty"`
}

// AnalysisResult is the externally visible record persisted per media item.
// One row is owned by exactly one media id; a later analysis run overwrites.
type AnalysisResult struct {
	MediaID              string           `json:"mediaId"`
	Status               AnalysisStatus   `json:"status"`
	Verdict              Verdict          `json:"verdict,omitempty"`
	CredibilityLevel     CredibilityLevel `json:"credibilityLevel,omitempty"`
	CredibilityScore     int              `json:"credibilityScore"`
	PFake                float64          `json:"pFake"`
	VisualArtifacts      []VisualArtifact `json:"visualArtifacts,omitempty"`
	PlainExplanation     string           `json:"plainExplanation,omitempty"`
	TechnicalExplanation string           `json:"technicalExplanation,omitempty"`
	LegalExplanation     string           `json:"legalExplanation,omitempty"`
	Heatmap              []HeatmapCell    `json:"heatmapData,omitempty"`
	FrameAnalysis        []FrameResult    `json:"frameAnalysis,omitempty"`
	SHA256               string           `json:"sha256Hash,omitempty"`
	ErrorMessage         string           `json:"errorMessage,omitempty"`
	CompletedAt          *time.Time       `json:"completedAt,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// ApplyDecision copies the decision fields onto the result.
func (r *AnalysisResult) ApplyDecision(d Decision) {
	r.Verdict = d.Verdict
	r.CredibilityLevel = d.CredibilityLevel
	r.CredibilityScore = d.CredibilityScore
	r.PFake = d.PFake
}
