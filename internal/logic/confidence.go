package logic

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"github.com/riftstats/props-api/internal/models"
)

// Interval method names surfaced in results.
const (
	IntervalBootstrap = "bootstrap"
	IntervalQuantile  = "quantile"
)

const (
	bootstrapIterations = 1000
	bootstrapMinSeries  = 10 // below this, bootstrapping is unreliable and must not run
	gapAdjustmentScale  = 2.0
	gapAdjustmentCap    = 0.5
	confidenceShift     = 0.05 // confidence-derived correction on the point estimate
)

// FinalPrediction is the finalized call for one prop value.
type FinalPrediction struct {
	Prediction     string
	Confidence     float64 // 0..1 before scaling to percent
	ExpectedStat   float64
	Interval       [2]float64
	IntervalMethod string
}

// Finalize combines the calibrated probability with the gap-based
// adjustment, scales by tier weight, and attaches the point estimate and a
// confidence interval. The bootstrap RNG is seeded from the query signature
// so identical queries against an unchanged store are bit-identical.
func Finalize(calProb float64, eng *EngineeredSample, w *models.SampleWindow, q *models.PredictionRequest) FinalPrediction {
	out := FinalPrediction{}

	if w.Empty() {
		// Documented neutral stance when nothing matched: expect the line
		// itself, answer UNDER at coin-flip confidence with a wide quantile
		// interval. Never an error.
		return FinalPrediction{
			Prediction:     models.PredictionUnder,
			Confidence:     0.5,
			ExpectedStat:   q.PropValue,
			Interval:       [2]float64{0, 2 * q.PropValue},
			IntervalMethod: IntervalQuantile,
		}
	}

	expected := eng.Expected

	// Confidence-derived correction: the model's lean away from a coin flip
	// nudges the point estimate by up to confidenceShift of itself.
	expected *= 1 + confidenceShift*2*(calProb-0.5)

	out.Prediction = models.PredictionUnder
	if calProb >= 0.5 {
		out.Prediction = models.PredictionOver
	}

	gapRatio := math.Abs(expected-q.PropValue) / math.Max(q.PropValue, 1)
	adjustment := math.Min(gapRatio*gapAdjustmentScale, gapAdjustmentCap)

	confidence := (1 - calProb) + adjustment
	if out.Prediction == models.PredictionOver {
		confidence = calProb + adjustment
	}
	tierWeight := eng.Vector.TierWeight
	out.Confidence = clamp(confidence*tierWeight, 0, 1)
	out.ExpectedStat = expected

	out.Interval, out.IntervalMethod = interval(eng.Values, q)
	return out
}

// interval picks the estimation method by sample size: a non-parametric
// bootstrap of the series aggregates when there are enough of them, the
// empirical 10th/90th quantiles otherwise.
func interval(values []float64, q *models.PredictionRequest) ([2]float64, string) {
	if len(values) == 0 {
		return [2]float64{0, 2 * q.PropValue}, IntervalQuantile
	}
	if len(values) < bootstrapMinSeries {
		return [2]float64{quantile(values, 0.10), quantile(values, 0.90)}, IntervalQuantile
	}
	return bootstrapInterval(values, querySeed(q)), IntervalBootstrap
}

// bootstrapInterval resamples the aggregates with replacement, recomputes
// the mean each time, and takes the 2.5/97.5 percentiles.
func bootstrapInterval(values []float64, seed int64) [2]float64 {
	rng := rand.New(rand.NewSource(seed))
	means := make([]float64, bootstrapIterations)
	for i := 0; i < bootstrapIterations; i++ {
		var sum float64
		for j := 0; j < len(values); j++ {
			sum += values[rng.Intn(len(values))]
		}
		means[i] = sum / float64(len(values))
	}
	sort.Float64s(means)
	return [2]float64{quantileSorted(means, 0.025), quantileSorted(means, 0.975)}
}

// quantile returns the q-th empirical quantile with linear interpolation.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// querySeed derives the bootstrap RNG seed from the full query signature.
func querySeed(q *models.PredictionRequest) int64 {
	h := fnv.New64a()
	h.Write([]byte(q.Signature()))
	return int64(h.Sum64())
}
