package logic

import (
	"math"

	"github.com/riftstats/props-api/internal/models"
)

// Curve sweep defaults.
const (
	DefaultCurveStep = 0.5
	DefaultCurveSpan = 3.0
)

// generateCurve sweeps the prop value across [center-span, center+span] and
// re-runs classification, calibration, and finalization at each step. The
// sample window and every non-prop-dependent feature stay fixed; only the
// bounded z-score, market distance, and gap terms move with the line.
//
// Confidence is lowest at the turning point (where the label flips) and
// grows with distance from it on each side; a cummax pass outward from the
// flip guards that shape against floating-point jitter.
func generateCurve(q *models.PredictionRequest, eng *EngineeredSample, w *models.SampleWindow, m *Model, c *Calibrator, step, span float64) []models.CurvePoint {
	if step <= 0 {
		step = DefaultCurveStep
	}
	if span <= 0 {
		span = DefaultCurveSpan
	}

	var points []models.CurvePoint
	for v := q.PropValue - span; v <= q.PropValue+span+1e-9; v += step {
		if v <= 0 {
			continue
		}
		swept := *q
		swept.PropValue = v

		sweptEng := *eng
		sweptEng.Vector.BoundedZ = math.Tanh(safeDiv(eng.Vector.Mean-v, eng.Vector.StdDev, 0) / 2)
		sweptEng.Vector.MarketDistance = safeDiv(eng.Expected-v, v, 0)

		raw := m.Predict(&sweptEng.Vector)
		final := Finalize(c.Apply(raw), &sweptEng, w, &swept)
		points = append(points, models.CurvePoint{
			PropValue:  v,
			Confidence: round1(final.Confidence * 100),
			Prediction: final.Prediction,
		})
	}
	return enforceMonotone(points)
}

// enforceMonotone applies a cummax pass outward from the turning point so
// confidence never dips as the line moves further from the flip. When the
// sweep never flips, the turning point sits beyond one edge: all-UNDER puts
// it left of the window, all-OVER puts it right, and only the matching pass
// runs.
func enforceMonotone(points []models.CurvePoint) []models.CurvePoint {
	if len(points) == 0 {
		return points
	}
	flip := -1
	for i := 1; i < len(points); i++ {
		if points[i].Prediction != points[0].Prediction {
			flip = i - 1
			break
		}
	}
	if flip == -1 {
		if points[0].Prediction == models.PredictionUnder {
			for i := 1; i < len(points); i++ {
				if points[i].Confidence < points[i-1].Confidence {
					points[i].Confidence = points[i-1].Confidence
				}
			}
		} else {
			for i := len(points) - 2; i >= 0; i-- {
				if points[i].Confidence < points[i+1].Confidence {
					points[i].Confidence = points[i+1].Confidence
				}
			}
		}
		return points
	}
	for i := flip - 1; i >= 0; i-- {
		if points[i].Confidence < points[i+1].Confidence {
			points[i].Confidence = points[i+1].Confidence
		}
	}
	for i := flip + 2; i < len(points); i++ {
		if points[i].Confidence < points[i-1].Confidence {
			points[i].Confidence = points[i-1].Confidence
		}
	}
	return points
}

// round1 and round2 keep JSON output stable across runs.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
