package decision

import (
	"math"
	"testing"

	"github.com/veriscope/veriscope/internal/models"
)

func TestDecide_Buckets(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	tests := []struct {
		name    string
		pFake   float64
		verdict models.Verdict
		level   models.CredibilityLevel
	}{
		{"clearly fake", 0.95, models.VerdictFake, models.LevelManipulated},
		{"fake boundary inclusive", 0.70, models.VerdictFake, models.LevelManipulated},
		{"likely fake", 0.60, models.VerdictLikelyFake, models.LevelLikelyManipulated},
		{"likely fake boundary inclusive", 0.55, models.VerdictLikelyFake, models.LevelLikelyManipulated},
		{"suspicious", 0.45, models.VerdictSuspicious, models.LevelUncertain},
		{"suspicious boundary inclusive", 0.40, models.VerdictSuspicious, models.LevelUncertain},
		{"likely authentic", 0.30, models.VerdictAuthentic, models.LevelLikelyAuthentic},
		{"likely authentic boundary inclusive", 0.20, models.VerdictAuthentic, models.LevelLikelyAuthentic},
		{"authentic", 0.05, models.VerdictAuthentic, models.LevelAuthentic},
		{"zero", 0.0, models.VerdictAuthentic, models.LevelAuthentic},
		{"one", 1.0, models.VerdictFake, models.LevelManipulated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Decide(tt.pFake)
			if d.Verdict != tt.verdict {
				t.Errorf("verdict=%s, want %s", d.Verdict, tt.verdict)
			}
			if d.CredibilityLevel != tt.level {
				t.Errorf("level=%s, want %s", d.CredibilityLevel, tt.level)
			}
			if d.PFake != tt.pFake {
				t.Errorf("pFake=%v, want %v", d.PFake, tt.pFake)
			}
		})
	}
}

func TestDecide_ScoreIsComplementOfPFake(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	for i := 0; i <= 1000; i++ {
		pFake := float64(i) / 1000
		d := engine.Decide(pFake)
		want := int(math.Round((1 - pFake) * 100))
		if d.CredibilityScore != want {
			t.Fatalf("pFake=%v: score=%d, want %d", pFake, d.CredibilityScore, want)
		}
	}
}

func TestDecide_SameBucketDifferentScores(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	a := engine.Decide(0.72)
	b := engine.Decide(0.85)
	if a.Verdict != b.Verdict {
		t.Fatalf("expected both in FAKE bucket, got %s and %s", a.Verdict, b.Verdict)
	}
	if a.CredibilityScore == b.CredibilityScore {
		t.Fatalf("expected distinct scores within one bucket, both %d", a.CredibilityScore)
	}
}

func TestDecide_Idempotent(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	first := engine.Decide(0.63)
	second := engine.Decide(0.63)
	if first != second {
		t.Fatalf("decisions differ: %+v vs %+v", first, second)
	}
}

func TestDecide_ClampsOutOfRange(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	if d := engine.Decide(-0.2); d.PFake != 0 || d.CredibilityScore != 100 {
		t.Errorf("negative input not clamped: %+v", d)
	}
	if d := engine.Decide(1.7); d.PFake != 1 || d.CredibilityScore != 0 {
		t.Errorf("oversized input not clamped: %+v", d)
	}
}

func TestDecideVideo_IsolatedSpikeUsesAverage(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	// 1 of 4 flagged = 25%, below the 30% escalation ratio.
	d, stats := engine.DecideVideo([]float64{0.9, 0.1, 0.1, 0.1})
	if stats.UsedMax {
		t.Fatal("expected average aggregation for isolated spike")
	}
	if math.Abs(stats.Effective-0.3) > 1e-9 {
		t.Fatalf("effective=%v, want 0.3", stats.Effective)
	}
	if d.Verdict != models.VerdictAuthentic || d.CredibilityLevel != models.LevelLikelyAuthentic {
		t.Fatalf("got %s/%s, want AUTHENTIC/likely_authentic", d.Verdict, d.CredibilityLevel)
	}
}

func TestDecideVideo_WidespreadFlagsUseMax(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	// 2 of 4 flagged = 50%, above the 30% escalation ratio.
	d, stats := engine.DecideVideo([]float64{0.9, 0.8, 0.1, 0.1})
	if !stats.UsedMax {
		t.Fatal("expected max aggregation for widespread flags")
	}
	if stats.Effective != 0.9 {
		t.Fatalf("effective=%v, want 0.9", stats.Effective)
	}
	if d.Verdict != models.VerdictFake {
		t.Fatalf("verdict=%s, want FAKE", d.Verdict)
	}
}

func TestDecideVideo_Stats(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	_, stats := engine.DecideVideo([]float64{0.6, 0.2, 0.4})
	if stats.FrameCount != 3 {
		t.Errorf("frameCount=%d, want 3", stats.FrameCount)
	}
	if stats.FlaggedCount != 1 {
		t.Errorf("flaggedCount=%d, want 1", stats.FlaggedCount)
	}
	if stats.MaxPFake != 0.6 {
		t.Errorf("maxPFake=%v, want 0.6", stats.MaxPFake)
	}
	if math.Abs(stats.AvgPFake-0.4) > 1e-9 {
		t.Errorf("avgPFake=%v, want 0.4", stats.AvgPFake)
	}
}

func TestDecideVideo_EmptyFramesUncertain(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	d, _ := engine.DecideVideo(nil)
	if d != engine.Uncertain() {
		t.Fatalf("got %+v, want the fail-safe decision", d)
	}
}

func TestUncertain(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	d := engine.Uncertain()
	if d.Verdict != models.VerdictSuspicious {
		t.Errorf("verdict=%s, want SUSPICIOUS", d.Verdict)
	}
	if d.CredibilityLevel != models.LevelUncertain {
		t.Errorf("level=%s, want uncertain", d.CredibilityLevel)
	}
	if d.CredibilityScore != 50 || d.PFake != 0.5 {
		t.Errorf("score=%d pFake=%v, want 50/0.5", d.CredibilityScore, d.PFake)
	}
}

func TestNewEngine_CustomThresholds(t *testing.T) {
	engine := NewEngine(Thresholds{
		Fake:            0.9,
		LikelyFake:      0.8,
		Suspicious:      0.6,
		LikelyAuthentic: 0.3,
		FrameFakeRatio:  0.5,
	})

	if d := engine.Decide(0.75); d.Verdict != models.VerdictSuspicious {
		t.Errorf("verdict=%s, want SUSPICIOUS under relaxed policy", d.Verdict)
	}

	// 2 of 4 flagged = 50%, not above the raised 50% ratio.
	_, stats := engine.DecideVideo([]float64{0.9, 0.8, 0.1, 0.1})
	if stats.UsedMax {
		t.Error("expected average aggregation under raised frame ratio")
	}
}

func TestNewEngine_ZeroValuesFallBackToDefaults(t *testing.T) {
	engine := NewEngine(Thresholds{})

	if d := engine.Decide(0.70); d.Verdict != models.VerdictFake {
		t.Errorf("verdict=%s, want FAKE with default thresholds", d.Verdict)
	}
}
