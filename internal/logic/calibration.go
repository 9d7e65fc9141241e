package logic

import (
	"math"
	"time"

	"github.com/riftstats/props-api/internal/models"
)

// Patch groups are rolling 14-day buckets anchored at a season boundary, so
// samples that share a bucket share a game-balance context.
var patchEpoch = time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

const patchGroupDays = 14

// PatchGroupFor maps a date onto its patch group id. Dates before the
// anchor land in negative groups, which keeps distances well defined.
func PatchGroupFor(t time.Time) int {
	days := int(t.UTC().Sub(patchEpoch).Hours() / 24)
	if days < 0 {
		// floor division for pre-epoch dates
		return (days - patchGroupDays + 1) / patchGroupDays
	}
	return days / patchGroupDays
}

// CalibrationState is the calibrator lifecycle. Stale is degraded but
// available: predictions are still served with the last fitted mapping and
// the metadata flags the need to retrain.
type CalibrationState int

const (
	StateUncalibrated CalibrationState = iota
	StateCalibrated
	StateStale
)

func (s CalibrationState) String() string {
	switch s {
	case StateCalibrated:
		return "calibrated"
	case StateStale:
		return "stale"
	default:
		return "uncalibrated"
	}
}

// Calibration method names surfaced in result metadata.
const (
	MethodUncalibrated = "uncalibrated"
	MethodPlattSliding = "platt_sliding_window"
)

// Sliding-window fit parameters.
const (
	calibMinSamples   = 20   // minimum combined train samples to fit at all
	calibTrainGroups  = 2    // train on patch groups N-2..N-1
	calibLogLossRatio = 1.25 // validation/train log-loss ratio that marks staleness
	calibRateDrift    = 0.15 // |mean predicted - actual OVER rate| that marks staleness
	calibIters        = 300
	calibLearningRate = 0.1
	calibProbEpsilon  = 1e-6
)

// Calibrator maps raw classifier probabilities onto calibrated ones using
// Platt scaling fitted per patch group on a sliding window: train on groups
// N-2..N-1, validate on N. All transitions happen at construction; a fitted
// calibrator is immutable afterwards, so concurrent queries share it freely.
type Calibrator struct {
	state      CalibrationState
	patchGroup int
	a, b       float64 // sigmoid(a*logit(p) + b)
}

// NewCalibrator fits the calibrator for the given patch group from settled
// outcomes. With too little training data it stays Uncalibrated (identity
// mapping); a fitted mapping whose validation drift exceeds the configured
// thresholds transitions immediately to Stale but keeps serving.
func NewCalibrator(samples []models.LabeledSample, patchGroup int) *Calibrator {
	c := &Calibrator{state: StateUncalibrated, patchGroup: patchGroup, a: 1, b: 0}

	var train, validate []models.LabeledSample
	for _, s := range samples {
		switch {
		case s.PatchGroup >= patchGroup-calibTrainGroups && s.PatchGroup < patchGroup:
			train = append(train, s)
		case s.PatchGroup == patchGroup:
			validate = append(validate, s)
		}
	}
	if len(train) < calibMinSamples {
		return c
	}

	c.a, c.b = fitPlatt(train)
	c.state = StateCalibrated

	if len(validate) >= calibMinSamples/2 {
		trainLoss := c.logLoss(train)
		valLoss := c.logLoss(validate)
		if trainLoss > 0 && valLoss > trainLoss*calibLogLossRatio {
			c.state = StateStale
		}
		if math.Abs(c.meanPredicted(validate)-overRate(validate)) > calibRateDrift {
			c.state = StateStale
		}
	}
	return c
}

// Apply maps a raw probability through the fitted calibration. The identity
// mapping applies while Uncalibrated.
func (c *Calibrator) Apply(raw float64) float64 {
	if c.state == StateUncalibrated {
		return clamp(raw, 0, 1)
	}
	return sigmoid(c.a*logit(raw) + c.b)
}

// State exposes the lifecycle state for metrics and tests.
func (c *Calibrator) State() CalibrationState { return c.state }

// Metadata builds the temporal-calibration block of a prediction result.
func (c *Calibrator) Metadata() models.TemporalCalibration {
	method := MethodUncalibrated
	if c.state != StateUncalibrated {
		method = MethodPlattSliding
	}
	return models.TemporalCalibration{
		PatchGroup:        c.patchGroup,
		CalibrationMethod: method,
		PatchAwareness:    c.state != StateUncalibrated,
		NeedsRetraining:   c.state == StateStale,
	}
}

// fitPlatt runs gradient descent on the log-loss of sigmoid(a*logit(p)+b).
func fitPlatt(samples []models.LabeledSample) (a, b float64) {
	a, b = 1, 0
	n := float64(len(samples))
	for iter := 0; iter < calibIters; iter++ {
		var gradA, gradB float64
		for _, s := range samples {
			x := logit(s.RawProb)
			p := sigmoid(a*x + b)
			y := 0.0
			if s.Over {
				y = 1.0
			}
			gradA += (p - y) * x
			gradB += p - y
		}
		a -= calibLearningRate * gradA / n
		b -= calibLearningRate * gradB / n
	}
	return a, b
}

func (c *Calibrator) logLoss(samples []models.LabeledSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var loss float64
	for _, s := range samples {
		p := clamp(c.Apply(s.RawProb), calibProbEpsilon, 1-calibProbEpsilon)
		if s.Over {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(len(samples))
}

func (c *Calibrator) meanPredicted(samples []models.LabeledSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += c.Apply(s.RawProb)
	}
	return sum / float64(len(samples))
}

func overRate(samples []models.LabeledSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var overs float64
	for _, s := range samples {
		if s.Over {
			overs++
		}
	}
	return overs / float64(len(samples))
}

func sigmoid(z float64) float64 {
	if z > 30 {
		return 1
	}
	if z < -30 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

func logit(p float64) float64 {
	p = clamp(p, calibProbEpsilon, 1-calibProbEpsilon)
	return math.Log(p / (1 - p))
}
