// Package decision maps classifier probabilities to verdicts and
// credibility scores. Everything here is pure and deterministic.
package decision

import (
	"math"

	"github.com/veriscope/veriscope/internal/models"
)

// Thresholds holds the pFake cut points and the frame escalation ratio.
// These are tuned policy values, not physical constants, so deployments may
// override them.
type Thresholds struct {
	Fake            float64 // pFake >= Fake            -> FAKE / manipulated
	LikelyFake      float64 // pFake >= LikelyFake      -> LIKELY_FAKE / likely_manipulated
	Suspicious      float64 // pFake >= Suspicious      -> SUSPICIOUS / uncertain
	LikelyAuthentic float64 // pFake >= LikelyAuthentic -> AUTHENTIC / likely_authentic
	// FrameFakeRatio is the fraction of flagged frames above which a video
	// is scored by its worst frame instead of the average.
	FrameFakeRatio float64
}

// DefaultThresholds returns the observed production policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Fake:            0.70,
		LikelyFake:      0.55,
		Suspicious:      0.40,
		LikelyAuthentic: 0.20,
		FrameFakeRatio:  0.30,
	}
}

// frameFlagThreshold marks a single frame as fake for the escalation count.
const frameFlagThreshold = 0.5

// VideoStats reports how a video decision was aggregated.
type VideoStats struct {
	FrameCount   int
	FlaggedCount int
	AvgPFake     float64
	MaxPFake     float64
	Effective    float64
	UsedMax      bool
}

// Engine discretizes pFake values into Decisions.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an engine. Zero-valued thresholds fall back to defaults.
func NewEngine(t Thresholds) *Engine {
	def := DefaultThresholds()
	if t.Fake <= 0 {
		t.Fake = def.Fake
	}
	if t.LikelyFake <= 0 {
		t.LikelyFake = def.LikelyFake
	}
	if t.Suspicious <= 0 {
		t.Suspicious = def.Suspicious
	}
	if t.LikelyAuthentic <= 0 {
		t.LikelyAuthentic = def.LikelyAuthentic
	}
	if t.FrameFakeRatio <= 0 {
		t.FrameFakeRatio = def.FrameFakeRatio
	}
	return &Engine{thresholds: t}
}

// Decide maps a single pFake to a Decision. The credibility score is a
// continuous function of pFake; the verdict and level discretize the same
// value, so two samples in one bucket still get different scores.
func (e *Engine) Decide(pFake float64) models.Decision {
	pFake = clamp01(pFake)

	d := models.Decision{
		PFake:            pFake,
		CredibilityScore: Score(pFake),
	}

	t := e.thresholds
	switch {
	case pFake >= t.Fake:
		d.Verdict = models.VerdictFake
		d.CredibilityLevel = models.LevelManipulated
	case pFake >= t.LikelyFake:
		d.Verdict = models.VerdictLikelyFake
		d.CredibilityLevel = models.LevelLikelyManipulated
	case pFake >= t.Suspicious:
		d.Verdict = models.VerdictSuspicious
		d.CredibilityLevel = models.LevelUncertain
	case pFake >= t.LikelyAuthentic:
		d.Verdict = models.VerdictAuthentic
		d.CredibilityLevel = models.LevelLikelyAuthentic
	default:
		d.Verdict = models.VerdictAuthentic
		d.CredibilityLevel = models.LevelAuthentic
	}

	return d
}

// DecideVideo aggregates per-frame probabilities into one Decision.
//
// Frames with pFake >= 0.5 count as flagged. When the flagged fraction
// exceeds FrameFakeRatio the worst frame drives the verdict; otherwise the
// average does. Isolated single-frame false positives thus cannot dominate,
// while widespread manipulation escalates instead of averaging away.
func (e *Engine) DecideVideo(framePFakes []float64) (models.Decision, VideoStats) {
	if len(framePFakes) == 0 {
		return e.Uncertain(), VideoStats{}
	}

	stats := VideoStats{FrameCount: len(framePFakes)}
	sum := 0.0
	for _, p := range framePFakes {
		p = clamp01(p)
		sum += p
		if p > stats.MaxPFake {
			stats.MaxPFake = p
		}
		if p >= frameFlagThreshold {
			stats.FlaggedCount++
		}
	}
	stats.AvgPFake = sum / float64(len(framePFakes))

	flaggedRatio := float64(stats.FlaggedCount) / float64(stats.FrameCount)
	if flaggedRatio > e.thresholds.FrameFakeRatio {
		stats.Effective = stats.MaxPFake
		stats.UsedMax = true
	} else {
		stats.Effective = stats.AvgPFake
	}

	return e.Decide(stats.Effective), stats
}

// Uncertain is the fixed fail-safe decision used when no trustworthy
// probability exists (face gate short-circuit, total classifier failure).
func (e *Engine) Uncertain() models.Decision {
	return models.Decision{
		Verdict:          models.VerdictSuspicious,
		CredibilityLevel: models.LevelUncertain,
		CredibilityScore: 50,
		PFake:            0.5,
	}
}

// IsFrameFake reports whether a single frame probability counts as flagged.
func IsFrameFake(pFake float64) bool {
	return pFake >= frameFlagThreshold
}

// Score converts pFake to the 0-100 credibility score.
func Score(pFake float64) int {
	return int(math.Round((1 - clamp01(pFake)) * 100))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
