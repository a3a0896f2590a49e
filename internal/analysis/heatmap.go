package analysis

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/veriscope/veriscope/internal/models"
)

// heatmapSize is the fixed grid dimension, 10x10 cells.
const heatmapSize = 10

// GenerateHeatmap builds the anomaly intensity grid for a finished decision.
// The grid is illustrative: it is seeded from the media hash so the same
// input always renders the same map, and its overall intensity tracks the
// verdict without feeding back into it.
func GenerateHeatmap(sha string, d models.Decision) []models.HeatmapCell {
	rng := rand.New(rand.NewSource(seedFromHash(sha)))
	manipulated := d.Verdict == models.VerdictFake || d.Verdict == models.VerdictLikelyFake

	// Manipulated media gets a hotspot region where intensities cluster.
	hotX := rng.Intn(heatmapSize)
	hotY := rng.Intn(heatmapSize)

	cells := make([]models.HeatmapCell, 0, heatmapSize*heatmapSize)
	for y := 0; y < heatmapSize; y++ {
		for x := 0; x < heatmapSize; x++ {
			var value float64
			if manipulated {
				value = 0.3 + 0.4*rng.Float64()
				if near(x, hotX) && near(y, hotY) {
					value += 0.25
				}
			} else {
				value = 0.2 * rng.Float64()
			}
			cells = append(cells, models.HeatmapCell{
				X:     x,
				Y:     y,
				Value: round3(clampValue(value)),
			})
		}
	}
	return cells
}

func near(a, b int) bool {
	diff := a - b
	return diff >= -1 && diff <= 1
}

func clampValue(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// seedFromHash derives a deterministic seed from the leading hex digits of
// the media hash. An unparsable or empty hash seeds zero.
func seedFromHash(sha string) int64 {
	if len(sha) > 15 {
		sha = sha[:15]
	}
	seed, err := strconv.ParseInt(sha, 16, 64)
	if err != nil {
		return 0
	}
	return seed
}
