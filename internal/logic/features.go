package logic

import (
	"math"

	"github.com/riftstats/props-api/internal/models"
)

// Data-quality tiers by sample size (series-level samples).
const (
	QualityInsufficient = "insufficient"
	QualityLow          = "low"
	QualityMedium       = "medium"
	QualityHigh         = "high"
)

// recentFormWindow is how many of the newest aggregates feed the form
// feature.
const recentFormWindow = 5

// patchDecayRate controls how fast relevance decays per patch group of
// distance from the query's group.
const patchDecayRate = 0.35

// safeDiv is the single division policy for the engine: a zero or non-finite
// denominator yields the fallback instead of NaN/Inf.
func safeDiv(num, den, fallback float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return fallback
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// fallbackMeans are the documented neutral per-map stat means substituted
// when a player has no usable history. Position-aware for the stats where
// role changes the baseline materially.
var fallbackMeans = map[models.PropType]map[string]float64{
	models.PropKills: {
		"top": 2.2, "jungle": 2.8, "mid": 3.4, "bot": 3.9, "support": 0.9, "": 2.8,
	},
	models.PropDeaths: {
		"top": 2.6, "jungle": 2.7, "mid": 2.4, "bot": 2.3, "support": 3.1, "": 2.6,
	},
	models.PropAssists: {
		"top": 4.5, "jungle": 7.2, "mid": 5.8, "bot": 5.4, "support": 9.6, "": 6.0,
	},
	models.PropCreepScore: {
		"top": 240, "jungle": 190, "mid": 255, "bot": 265, "support": 38, "": 210,
	},
	models.PropVisionScore: {
		"top": 28, "jungle": 42, "mid": 31, "bot": 30, "support": 78, "": 36,
	},
}

// positionFactors scale the expected stat by role. Only the kill-family
// stats are role-sensitive enough to warrant a multiplier; the rest stay
// neutral.
var positionFactors = map[models.PropType]map[string]float64{
	models.PropKills: {
		"top": 0.95, "jungle": 1.0, "mid": 1.08, "bot": 1.12, "support": 0.85, "": 1.0,
	},
	models.PropAssists: {
		"top": 0.9, "jungle": 1.05, "mid": 1.0, "bot": 0.95, "support": 1.15, "": 1.0,
	},
}

// FallbackMean returns the documented neutral per-map mean for a role/stat.
func FallbackMean(p models.PropType, role string) float64 {
	byRole, ok := fallbackMeans[p]
	if !ok {
		return 1
	}
	if v, ok := byRole[role]; ok {
		return v
	}
	return byRole[""]
}

// PositionFactor returns the role multiplier for a stat (1.0 when the stat
// is not role-sensitive or the role is unknown).
func PositionFactor(p models.PropType, role string) float64 {
	byRole, ok := positionFactors[p]
	if !ok {
		return 1.0
	}
	if v, ok := byRole[role]; ok {
		return v
	}
	return byRole[""]
}

// qualityFor maps a series-level sample size onto the data-quality tiers.
func qualityFor(sampleSize int) (string, float64) {
	switch {
	case sampleSize < 5:
		return QualityInsufficient, 0.25
	case sampleSize < 10:
		return QualityLow, 0.5
	case sampleSize < 15:
		return QualityMedium, 0.75
	default:
		return QualityHigh, 1.0
	}
}

// EngineeredSample bundles the fixed-schema feature vector with the raw
// aggregates the interval engine resamples and the expected-stat estimate
// shared by the market-distance feature and the finalizer.
type EngineeredSample struct {
	Vector     models.FeatureVector
	Expected   float64
	Values     []float64
	Weights    []float64
	Quality    string
	SampleSize int
	PatchGroup int // query's patch group
}

// EngineerFeatures converts a sample window into the classifier's input.
// Every field of the returned vector is finite: thin or empty samples route
// through the documented fallbacks, never through NaN.
func EngineerFeatures(q *models.PredictionRequest, w *models.SampleWindow) EngineeredSample {
	role := q.PrimaryRole()
	queryGroup := PatchGroupFor(q.MatchDate)
	a, b := q.MapRange[0], q.MapRange[1]
	mapsSpanned := float64(b - a + 1)

	values, weights := w.Aggregates(q.PropType, a, b)
	out := EngineeredSample{
		Values:     values,
		Weights:    weights,
		SampleSize: len(values),
		PatchGroup: queryGroup,
	}
	quality, sizeScore := qualityFor(len(values))
	out.Quality = quality

	var mean, std float64
	if len(values) == 0 {
		// No-data fallback: the documented neutral mean, stretched over the
		// queried map span, with a wide synthetic deviation.
		mean = FallbackMean(q.PropType, role) * mapsSpanned
		std = mean * 0.5
	} else {
		mean, std = weightedMeanStd(values, weights)
	}

	boundedZ := math.Tanh(safeDiv(mean-q.PropValue, std, 0) / 2)
	cv := safeDiv(std, mean, 0)
	volatility := clamp(cv, 0, 2) / 2

	recent := values
	if len(recent) > recentFormWindow {
		recent = recent[:recentFormWindow]
	}
	recentForm := 0.0
	if len(recent) > 0 && len(values) > 0 {
		recentMean, _ := weightedMeanStd(recent, weights[:len(recent)])
		recentForm = math.Tanh(safeDiv(recentMean-mean, std, 0) / 2)
	}

	positionFactor := PositionFactor(q.PropType, role)
	expected := mean *
		(1 + 0.25*recentForm) *
		(1 - 0.2*volatility) *
		positionFactor

	tierWeight := models.TierWeight(5)
	if len(w.TiersUsed) > 0 {
		tierWeight = models.TierWeight(w.TiersUsed[0])
	}

	out.Expected = expected
	out.Vector = models.FeatureVector{
		SchemaVersion:   models.FeatureSchemaVersion,
		Mean:            mean,
		StdDev:          std,
		BoundedZ:        boundedZ,
		Volatility:      volatility,
		SampleSizeScore: sizeScore,
		MarketDistance:  safeDiv(expected-q.PropValue, q.PropValue, 0),
		PatchRecency:    patchRecency(w, queryGroup),
		PositionFactor:  positionFactor,
		TierWeight:      tierWeight,
		RecentForm:      recentForm,
	}
	return out
}

// patchRecency is the weighted mean of exp(-rate * groupDistance) across the
// window, floored at 0.05 so ancient samples never zero out the feature.
func patchRecency(w *models.SampleWindow, queryGroup int) float64 {
	if len(w.Samples) == 0 {
		return 0.05
	}
	var sum, wsum float64
	for i := range w.Samples {
		dist := queryGroup - PatchGroupFor(w.Samples[i].Series.Date)
		if dist < 0 {
			dist = 0
		}
		sum += w.Samples[i].Weight * math.Exp(-patchDecayRate*float64(dist))
		wsum += w.Samples[i].Weight
	}
	return math.Max(safeDiv(sum, wsum, 0.05), 0.05)
}

// weightedMeanStd computes the tier-weighted mean and population-style
// standard deviation of the aggregates.
func weightedMeanStd(values, weights []float64) (mean, std float64) {
	var sum, wsum float64
	for i, v := range values {
		sum += weights[i] * v
		wsum += weights[i]
	}
	mean = safeDiv(sum, wsum, 0)
	if len(values) < 2 {
		return mean, 0
	}
	var varianceSum float64
	for i, v := range values {
		varianceSum += weights[i] * (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(safeDiv(varianceSum, wsum, 0))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
