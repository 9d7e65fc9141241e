package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/riftstats/props-api/internal/models"
)

// Prometheus metrics
var (
	predictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "props_predictions_total",
		Help: "Total predictions served, by label",
	}, []string{"prediction"})

	fallbackPredictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_fallback_predictions_total",
		Help: "Predictions answered from a widened or degraded sample",
	})

	seriesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_series_rejected_total",
		Help: "Malformed series excluded during resolution",
	})

	predictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "props_prediction_duration_seconds",
		Help:    "End-to-end duration of one prediction",
		Buckets: prometheus.DefBuckets,
	})

	staleCalibrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_stale_calibrations_total",
		Help: "Predictions served by a stale calibrator",
	})
)

// predictionIDNamespace makes prediction IDs a pure function of the query
// signature, which keeps repeated identical queries bit-identical.
var predictionIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

type predictionService struct {
	index    ObservationIndex
	model    *Model
	outcomes []models.LabeledSample
	logger   *zap.SugaredLogger
}

// NewPredictionService builds the engine from the immutable observation
// index and the settled outcomes loaded at startup. The classifier is
// trained once here; calibration is fitted per query for the query's patch
// group, so the service itself holds no mutable state.
func NewPredictionService(index ObservationIndex, outcomes []models.LabeledSample, logger *zap.Logger) PredictionService {
	sugar := logger.Sugar()
	model := TrainModel(outcomes)
	if model.Heuristic() {
		sugar.Infow("Outcome store too thin for boosting, using heuristic scorer",
			"outcomes", len(outcomes), "required", minTrainSamples)
	} else {
		sugar.Infow("Trained boosted classifier", "outcomes", len(outcomes))
	}
	return &predictionService{
		index:    index,
		model:    model,
		outcomes: outcomes,
		logger:   sugar,
	}
}

// Predict runs the full pipeline for one prop query: series resolution,
// tiered sample selection, feature engineering, classification, patch-aware
// calibration, and confidence finalization. Malformed queries are the only
// error path; thin or missing samples degrade, they never fail.
func (s *predictionService) Predict(ctx context.Context, q *models.PredictionRequest) (*models.PredictionResult, error) {
	start := time.Now()
	defer func() { predictionDuration.Observe(time.Since(start).Seconds()) }()

	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	window, eng, calibrator := s.prepare(q)

	raw := s.model.Predict(&eng.Vector)
	final := Finalize(calibrator.Apply(raw), eng, window, q)

	predictionsServed.WithLabelValues(final.Prediction).Inc()
	if window.FallbackUsed {
		fallbackPredictions.Inc()
	}
	if calibrator.State() == StateStale {
		staleCalibrations.Inc()
	}

	return &models.PredictionResult{
		PredictionID:       uuid.NewSHA1(predictionIDNamespace, []byte(q.Signature())).String(),
		Prediction:         final.Prediction,
		Confidence:         round1(final.Confidence * 100),
		ExpectedStat:       round2(final.ExpectedStat),
		ConfidenceInterval: [2]float64{round1(final.Interval[0]), round1(final.Interval[1])},
		IntervalMethod:     final.IntervalMethod,
		Reasoning:          reasoning(q, window, eng, &final),
		SampleDetails: models.SampleDetails{
			TierName:          window.TierName,
			SampleSize:        eng.SampleSize,
			SeriesPlayed:      window.SeriesCount,
			DataQuality:       eng.Quality,
			FallbackUsed:      window.FallbackUsed,
			StrictModeApplied: window.StrictApplied,
		},
		TemporalCalib: calibrator.Metadata(),
	}, nil
}

// Curve sweeps the prop value around the queried line while holding the
// sample window fixed.
func (s *predictionService) Curve(ctx context.Context, q *models.PredictionRequest, step, span float64) ([]models.CurvePoint, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	window, eng, calibrator := s.prepare(q)
	return generateCurve(q, eng, window, s.model, calibrator, step, span), nil
}

// prepare runs the shared front half of the pipeline. Each call builds its
// own window and feature vector; nothing here is cached across queries.
func (s *predictionService) prepare(q *models.PredictionRequest) (*models.SampleWindow, *EngineeredSample, *Calibrator) {
	observations := s.index.QueryBy(q.Player(), time.Time{}, q.MatchDate, "", "")
	resolution := ResolveSeries(observations, s.logger)
	if resolution.Rejected > 0 {
		seriesRejected.Add(float64(resolution.Rejected))
	}

	window := SelectSample(q, resolution)
	eng := EngineerFeatures(q, &window)
	// Aggregation can shrink the sample below the healthy floor when series
	// never reached the range start; the fallback flag tracks what actually
	// fed the features, not the raw series count.
	if eng.SampleSize < minTier1Series {
		window.FallbackUsed = true
	}
	calibrator := NewCalibrator(s.outcomes, eng.PatchGroup)
	return &window, &eng, calibrator
}

// reasoning renders the one-line human summary attached to every result.
func reasoning(q *models.PredictionRequest, w *models.SampleWindow, eng *EngineeredSample, final *FinalPrediction) string {
	if w.Empty() {
		return fmt.Sprintf("No historical sample for %s vs %s; neutral %s call at the documented fallback baseline.",
			q.Player(), q.Opponent, final.Prediction)
	}
	span := fmt.Sprintf("map %d", q.MapRange[0])
	if q.MultiMap() {
		span = fmt.Sprintf("maps %d-%d", q.MapRange[0], q.MapRange[1])
	}
	return fmt.Sprintf("%s %.1f %s: expected %.2f from %d series (%s, %s quality, %s).",
		final.Prediction, q.PropValue, q.PropType, final.ExpectedStat,
		w.SeriesCount, w.TierName, eng.Quality, span)
}
