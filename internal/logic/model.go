package logic

import (
	"math"
	"sort"

	"github.com/riftstats/props-api/internal/models"
)

// Training parameters for the boosted-stump ensemble.
const (
	boostingRounds  = 60
	boostingShrink  = 0.1
	minTrainSamples = 40 // below this the heuristic scorer serves instead
	stumpCandidates = 8  // candidate thresholds per feature (quantiles)
	minLeafWeight   = 1e-9
)

// stump is a depth-1 regression tree over one feature of the fixed schema.
type stump struct {
	feature   int
	threshold float64
	left      float64 // additive score when value <= threshold
	right     float64
}

// Model produces P(OVER) from a feature vector. It is either a gradient-
// boosted ensemble of stumps trained on settled outcomes, or — when the
// outcome store is too thin — a deterministic weighted-feature scorer.
// Immutable after construction, safe for concurrent use.
type Model struct {
	bias      float64
	stumps    []stump
	heuristic bool
}

// Heuristic reports whether the model fell back to the fixed-coefficient
// scorer for lack of training data.
func (m *Model) Heuristic() bool { return m.heuristic }

// Predict returns the raw P(OVER) for a feature vector.
func (m *Model) Predict(fv *models.FeatureVector) float64 {
	x := fv.Values()
	if m.heuristic {
		return sigmoid(heuristicScore(x))
	}
	score := m.bias
	for _, s := range m.stumps {
		if x[s.feature] <= s.threshold {
			score += s.left
		} else {
			score += s.right
		}
	}
	return sigmoid(score)
}

// heuristicScore is the documented fallback scorer: the sample's bounded
// z-score and market distance dominate, recent form helps, volatility
// hurts, and a thin sample pulls the score toward zero (p toward 0.5).
func heuristicScore(x [models.FeatureCount]float64) float64 {
	score := 1.4*x[2] + // bounded_z
		2.2*x[5] + // market_distance
		0.6*x[9] - // recent_form
		0.4*x[3] // volatility
	return score * x[4] // sample_size_score shrinks low-quality calls
}

// TrainModel fits the boosted ensemble on settled outcomes with gradient
// boosting on log-loss: each round fits one stump to the negative gradient
// and takes a Newton step per leaf. Below minTrainSamples it returns the
// heuristic model.
func TrainModel(samples []models.LabeledSample) *Model {
	if len(samples) < minTrainSamples {
		return &Model{heuristic: true}
	}

	n := len(samples)
	xs := make([][models.FeatureCount]float64, n)
	ys := make([]float64, n)
	var overs float64
	for i, s := range samples {
		xs[i] = s.Features.Values()
		if s.Over {
			ys[i] = 1
			overs++
		}
	}

	// F0 = log-odds of the base rate.
	base := clamp(overs/float64(n), calibProbEpsilon, 1-calibProbEpsilon)
	m := &Model{bias: math.Log(base / (1 - base))}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = m.bias
	}

	for round := 0; round < boostingRounds; round++ {
		best, ok := bestStump(xs, ys, scores)
		if !ok {
			break
		}
		best.left *= boostingShrink
		best.right *= boostingShrink
		m.stumps = append(m.stumps, best)
		for i := range scores {
			if xs[i][best.feature] <= best.threshold {
				scores[i] += best.left
			} else {
				scores[i] += best.right
			}
		}
	}
	return m
}

// bestStump scans every feature and candidate threshold for the split that
// most reduces squared error against the current residuals.
func bestStump(xs [][models.FeatureCount]float64, ys, scores []float64) (stump, bool) {
	n := len(xs)
	residuals := make([]float64, n)
	hessians := make([]float64, n)
	for i := range xs {
		p := sigmoid(scores[i])
		residuals[i] = ys[i] - p
		hessians[i] = math.Max(p*(1-p), minLeafWeight)
	}

	var best stump
	bestGain := math.Inf(-1)
	found := false

	for f := 0; f < models.FeatureCount; f++ {
		for _, threshold := range candidateThresholds(xs, f) {
			var lg, lh, rg, rh float64
			for i := range xs {
				if xs[i][f] <= threshold {
					lg += residuals[i]
					lh += hessians[i]
				} else {
					rg += residuals[i]
					rh += hessians[i]
				}
			}
			if lh < minLeafWeight || rh < minLeafWeight {
				continue
			}
			gain := lg*lg/lh + rg*rg/rh
			if gain > bestGain {
				bestGain = gain
				best = stump{feature: f, threshold: threshold, left: lg / lh, right: rg / rh}
				found = true
			}
		}
	}
	return best, found
}

// candidateThresholds returns up to stumpCandidates quantile cut points of
// one feature column.
func candidateThresholds(xs [][models.FeatureCount]float64, feature int) []float64 {
	col := make([]float64, len(xs))
	for i := range xs {
		col[i] = xs[i][feature]
	}
	sort.Float64s(col)

	var out []float64
	seen := math.Inf(-1)
	for k := 1; k <= stumpCandidates; k++ {
		idx := k * (len(col) - 1) / (stumpCandidates + 1)
		v := col[idx]
		if v > seen {
			out = append(out, v)
			seen = v
		}
	}
	return out
}
