// Package analysis runs the full media verification pipeline: fetch, face
// gate, classification, decision, explanation, and persistence.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/veriscope/veriscope/internal/cache"
	"github.com/veriscope/veriscope/internal/classifier"
	"github.com/veriscope/veriscope/internal/decision"
	"github.com/veriscope/veriscope/internal/explain"
	"github.com/veriscope/veriscope/internal/facegate"
	"github.com/veriscope/veriscope/internal/logging"
	"github.com/veriscope/veriscope/internal/models"
	"github.com/veriscope/veriscope/internal/storage"
)

// maxSampledFrames caps how many frames of a video are classified.
const maxSampledFrames = 10

// statusTTL bounds how long published pipeline statuses live in the cache.
const statusTTL = time.Hour

// ResultWriter persists pipeline outcomes. Exactly one of Complete or Fail
// terminates a run that EnsureProcessing started.
type ResultWriter interface {
	EnsureProcessing(ctx context.Context, mediaID string) error
	Complete(ctx context.Context, mediaID string, result *models.AnalysisResult) error
	Fail(ctx context.Context, mediaID, reason string) error
}

// PersistenceError wraps a result-writer failure. It is fatal: an analysis
// whose outcome cannot be recorded did not happen.
type PersistenceError struct {
	MediaID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist analysis for media %s: %v", e.MediaID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Service orchestrates one analysis run per call. All stages that can
// degrade do so toward the fixed uncertain verdict; only fetch failures,
// persistence failures, and rate-limited classification abort a run.
type Service struct {
	fetcher     *storage.Fetcher
	faces       facegate.Detector
	classifiers []classifier.Classifier
	engine      *decision.Engine
	explainer   explain.Generator
	writer      ResultWriter
	statusCache cache.Cache
	logger      *logging.Logger
}

// Config wires a Service. Faces, Explainer, and StatusCache are optional;
// Classifiers are tried in order, the first entry being the primary.
type Config struct {
	Fetcher     *storage.Fetcher
	Faces       facegate.Detector
	Classifiers []classifier.Classifier
	Engine      *decision.Engine
	Explainer   explain.Generator
	Writer      ResultWriter
	StatusCache cache.Cache
	Logger      *logging.Logger
}

// NewService creates the pipeline service.
func NewService(cfg Config) *Service {
	engine := cfg.Engine
	if engine == nil {
		engine = decision.NewEngine(decision.DefaultThresholds())
	}
	return &Service{
		fetcher:     cfg.Fetcher,
		faces:       cfg.Faces,
		classifiers: cfg.Classifiers,
		engine:      engine,
		explainer:   cfg.Explainer,
		writer:      cfg.Writer,
		statusCache: cfg.StatusCache,
		logger:      cfg.Logger,
	}
}

// Analyze runs the pipeline for one media item and returns the persisted
// result. A returned error means the run terminated without a verdict.
func (s *Service) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if req.MediaID == "" {
		return nil, fmt.Errorf("media id is required")
	}
	if len(s.classifiers) == 0 {
		return nil, s.fail(ctx, req.MediaID, "no classifier adapters configured")
	}

	if err := s.writer.EnsureProcessing(ctx, req.MediaID); err != nil {
		return nil, &PersistenceError{MediaID: req.MediaID, Err: err}
	}
	s.publishStatus(req.MediaID, models.AnalysisProcessing)

	result := &models.AnalysisResult{
		MediaID: req.MediaID,
		Status:  models.AnalysisCompleted,
	}

	var err error
	switch req.MediaType {
	case models.MediaTypeVideo:
		err = s.analyzeVideo(ctx, req, result)
	case models.MediaTypeAudio:
		err = s.analyzeSingle(ctx, req, result, false)
	default:
		err = s.analyzeSingle(ctx, req, result, true)
	}
	if err != nil {
		return nil, err
	}

	if err := s.writer.Complete(ctx, req.MediaID, result); err != nil {
		return nil, &PersistenceError{MediaID: req.MediaID, Err: err}
	}
	s.publishStatus(req.MediaID, models.AnalysisCompleted)

	s.logger.Info("analysis completed",
		logging.WithField("mediaId", req.MediaID),
		logging.WithField("mediaType", string(req.MediaType)),
		logging.WithField("verdict", string(result.Verdict)),
		logging.WithField("credibilityScore", result.CredibilityScore))

	return result, nil
}

// analyzeSingle handles images and audio, which classify one sample.
// withFaceGate is set for images only.
func (s *Service) analyzeSingle(ctx context.Context, req models.AnalysisRequest, result *models.AnalysisResult, withFaceGate bool) error {
	data, _, err := s.fetcher.FetchImage(ctx, req.SourceLocator)
	if err != nil {
		return s.fail(ctx, req.MediaID, fmt.Sprintf("media fetch failed: %v", err))
	}
	result.SHA256 = hashBytes(data)

	var face *models.FaceDetectionResult
	if withFaceGate {
		face = s.detectFaces(ctx, req.MediaID, data)
		if !face.HasFaces {
			// No analyzable facial content: the classifiers are not
			// trusted on this sample, so the fixed uncertain verdict
			// applies without calling them.
			s.finishUncertain(ctx, req, result, face, nil)
			return nil
		}
	}

	verdict, cerr := s.classifyWithFallback(ctx, req.MediaID, data)
	if cerr != nil {
		var rateLimited *classifier.RateLimitError
		if errors.As(cerr, &rateLimited) {
			// A throttled provider is retryable; recording an uncertain
			// verdict would hide that from the caller.
			return s.failWith(ctx, req.MediaID, "classification provider rate limited", cerr)
		}
		s.finishUncertain(ctx, req, result, face, data)
		return nil
	}

	d := s.engine.Decide(verdict.PFake)
	result.ApplyDecision(d)
	if req.MediaType == models.MediaTypeImage {
		result.Heatmap = GenerateHeatmap(result.SHA256, d)
	}
	s.explainInto(ctx, result, explain.Request{
		Decision:  d,
		MediaType: req.MediaType,
		Face:      face,
		ImageData: imageDataFor(req.MediaType, data),
	})
	return nil
}

// analyzeVideo classifies sampled frames and aggregates them.
func (s *Service) analyzeVideo(ctx context.Context, req models.AnalysisRequest, result *models.AnalysisResult) error {
	locators := sampleLocators(req.FrameLocators, maxSampledFrames)

	frames, err := s.fetcher.FetchFrames(ctx, locators)
	if err != nil {
		return s.fail(ctx, req.MediaID, fmt.Sprintf("frame fetch failed: %v", err))
	}
	result.SHA256 = hashFrames(frames)

	frameResults := s.classifyFrames(ctx, req.MediaID, frames)
	if len(frameResults) == 0 {
		s.finishUncertain(ctx, req, result, nil, nil)
		return nil
	}

	pFakes := make([]float64, len(frameResults))
	for i, fr := range frameResults {
		pFakes[i] = fr.PFake
	}
	d, stats := s.engine.DecideVideo(pFakes)

	result.ApplyDecision(d)
	result.FrameAnalysis = frameResults
	result.Heatmap = GenerateHeatmap(result.SHA256, d)

	s.logger.Debug("video frames aggregated",
		logging.WithField("mediaId", req.MediaID),
		logging.WithField("frames", stats.FrameCount),
		logging.WithField("flagged", stats.FlaggedCount),
		logging.WithField("usedMax", stats.UsedMax))

	s.explainInto(ctx, result, explain.Request{
		Decision:      d,
		MediaType:     models.MediaTypeVideo,
		FrameCount:    stats.FrameCount,
		FlaggedFrames: stats.FlaggedCount,
	})
	return nil
}

// classifyWithFallback tries each configured adapter once, in order. When
// every adapter fails, a rate-limit error takes precedence over later
// failures, since it is the condition the caller can act on by retrying.
func (s *Service) classifyWithFallback(ctx context.Context, mediaID string, data []byte) (*classifier.Verdict, error) {
	var lastErr error
	var rateLimited *classifier.RateLimitError
	for _, c := range s.classifiers {
		verdict, err := c.Classify(ctx, data)
		if err == nil {
			return verdict, nil
		}
		lastErr = err

		var rl *classifier.RateLimitError
		if errors.As(err, &rl) {
			if rateLimited == nil {
				rateLimited = rl
			}
			s.logger.Warn("classifier rate limited, trying next adapter",
				logging.WithField("mediaId", mediaID),
				logging.WithField("provider", c.Name()),
				logging.WithField("retryAfter", rl.RetryAfter.String()))
			continue
		}
		s.logger.Warn("classifier failed, trying next adapter",
			logging.WithField("mediaId", mediaID),
			logging.WithField("provider", c.Name()),
			logging.WithField("error", err.Error()))
	}
	if rateLimited != nil {
		return nil, rateLimited
	}
	return nil, lastErr
}

// classifyFrames scores each frame concurrently against the primary adapter
// only. There is no secondary fallback at frame granularity: a frame the
// primary cannot score is dropped and the remaining frames still aggregate.
func (s *Service) classifyFrames(ctx context.Context, mediaID string, frames []storage.Frame) []models.FrameResult {
	type outcome struct {
		result models.FrameResult
		err    error
	}

	primary := s.classifiers[0]
	outcomes := make([]outcome, len(frames))
	var wg sync.WaitGroup
	for i, frame := range frames {
		wg.Add(1)
		go func(pos int, frame storage.Frame) {
			defer wg.Done()
			verdict, err := primary.Classify(ctx, frame.Data)
			if err != nil {
				outcomes[pos] = outcome{err: err}
				return
			}
			outcomes[pos] = outcome{result: models.FrameResult{
				Index:  frame.Index,
				PFake:  verdict.PFake,
				IsFake: decision.IsFrameFake(verdict.PFake),
			}}
		}(i, frame)
	}
	wg.Wait()

	results := make([]models.FrameResult, 0, len(frames))
	for i, o := range outcomes {
		if o.err != nil {
			s.logger.Warn("dropping unclassifiable frame",
				logging.WithField("mediaId", mediaID),
				logging.WithField("frameIndex", frames[i].Index),
				logging.WithField("error", o.err.Error()))
			continue
		}
		results = append(results, o.result)
	}
	return results
}

// detectFaces never fails the pipeline: a missing or broken detector
// degrades to an unverifiable result, which the caller treats as the gate
// being closed. Classifier output is only trusted on verified facial
// content, so an unavailable gate must not silently open it.
func (s *Service) detectFaces(ctx context.Context, mediaID string, data []byte) *models.FaceDetectionResult {
	if s.faces == nil {
		return &models.FaceDetectionResult{HasFaces: false, Reason: "face detection disabled"}
	}
	face, err := s.faces.DetectFaces(ctx, data)
	if err != nil || face == nil {
		reason := "face detection unavailable"
		if err != nil {
			s.logger.Warn("face detection failed",
				logging.WithField("mediaId", mediaID),
				logging.WithField("error", err.Error()))
		}
		return &models.FaceDetectionResult{HasFaces: false, Reason: reason}
	}
	return face
}

// finishUncertain applies the fixed fail-safe verdict. The run still
// completes; uncertainty is a result, not an error.
func (s *Service) finishUncertain(ctx context.Context, req models.AnalysisRequest, result *models.AnalysisResult, face *models.FaceDetectionResult, imageData []byte) {
	d := s.engine.Uncertain()
	result.ApplyDecision(d)

	s.logger.Info("analysis fell back to uncertain verdict",
		logging.WithField("mediaId", req.MediaID),
		logging.WithField("mediaType", string(req.MediaType)))

	s.explainInto(ctx, result, explain.Request{
		Decision:  d,
		MediaType: req.MediaType,
		Face:      face,
		ImageData: imageDataFor(req.MediaType, imageData),
	})
}

// explainInto fills the explanation fields, falling back to templated text
// when the generator is absent or errors. The decision is already final.
func (s *Service) explainInto(ctx context.Context, result *models.AnalysisResult, req explain.Request) {
	var explanation *models.Explanation
	if s.explainer != nil {
		var err error
		explanation, err = s.explainer.Explain(ctx, req)
		if err != nil {
			s.logger.Warn("explanation generation failed, using fallback",
				logging.WithField("mediaId", result.MediaID),
				logging.WithField("error", err.Error()))
			explanation = nil
		}
	}
	if explanation == nil {
		explanation = explain.Fallback(req)
	}

	result.PlainExplanation = explanation.Plain
	result.TechnicalExplanation = explanation.Technical
	result.LegalExplanation = explanation.Legal
	result.VisualArtifacts = explanation.Artifacts
}

// fail records a terminal failure and returns the error the caller should
// surface. A failed write of the failure itself takes precedence.
func (s *Service) fail(ctx context.Context, mediaID, reason string) error {
	return s.failWith(ctx, mediaID, reason, nil)
}

// failWith additionally wraps cause in the returned error, so callers can
// still match its type with errors.As.
func (s *Service) failWith(ctx context.Context, mediaID, reason string, cause error) error {
	if err := s.writer.Fail(ctx, mediaID, reason); err != nil {
		return &PersistenceError{MediaID: mediaID, Err: err}
	}
	s.publishStatus(mediaID, models.AnalysisFailed)
	s.logger.Error("analysis failed",
		logging.WithField("mediaId", mediaID),
		logging.WithField("reason", reason))
	if cause != nil {
		return fmt.Errorf("analysis of media %s failed: %w", mediaID, cause)
	}
	return fmt.Errorf("analysis of media %s failed: %s", mediaID, reason)
}

func (s *Service) publishStatus(mediaID string, status models.AnalysisStatus) {
	if s.statusCache == nil {
		return
	}
	s.statusCache.SetWithTTL(StatusKey(mediaID), string(status), statusTTL)
}

// StatusKey is the cache key under which a media item's pipeline status is
// published.
func StatusKey(mediaID string) string {
	return "analysis:status:" + mediaID
}

// sampleLocators picks up to max evenly spaced locators, always keeping the
// original spacing formula so re-runs sample identical frames.
func sampleLocators(locators []string, max int) []string {
	if len(locators) <= max {
		return locators
	}
	sampled := make([]string, 0, max)
	for i := 0; i < max; i++ {
		sampled = append(sampled, locators[i*len(locators)/max])
	}
	return sampled
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashFrames digests the sampled frame bytes in order, so the stored hash
// covers exactly the material the verdict was computed from.
func hashFrames(frames []storage.Frame) string {
	h := sha256.New()
	for _, frame := range frames {
		h.Write(frame.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func imageDataFor(mediaType models.MediaType, data []byte) []byte {
	if mediaType != models.MediaTypeImage {
		return nil
	}
	return data
}
