package models

import "time"

// Prediction labels.
const (
	PredictionOver  = "OVER"
	PredictionUnder = "UNDER"
)

// SampleDetails describes the sample the prediction was computed from.
type SampleDetails struct {
	TierName          string `json:"tier_name"`
	SampleSize        int    `json:"sample_size"` // series when map range spans >1 map, maps otherwise
	SeriesPlayed      int    `json:"series_played"`
	DataQuality       string `json:"data_quality"` // insufficient, low, medium, high
	FallbackUsed      bool   `json:"fallback_used"`
	StrictModeApplied bool   `json:"strict_mode_applied"`
}

// TemporalCalibration reports how the confidence was calibrated against the
// game-balance era of the query.
type TemporalCalibration struct {
	PatchGroup        int    `json:"patch_group"`
	CalibrationMethod string `json:"calibration_method"` // uncalibrated, platt_sliding_window
	PatchAwareness    bool   `json:"patch_awareness"`
	NeedsRetraining   bool   `json:"needs_retraining"`
}

// PredictionResult is the engine's answer to a single prop query. The engine
// never stores these; caching is the API layer's concern.
type PredictionResult struct {
	PredictionID       string              `json:"prediction_id"`
	Prediction         string              `json:"prediction"` // OVER | UNDER
	Confidence         float64             `json:"confidence"` // 0..100
	ExpectedStat       float64             `json:"expected_stat"`
	ConfidenceInterval [2]float64          `json:"confidence_interval"`
	IntervalMethod     string              `json:"interval_method"` // bootstrap, quantile
	Reasoning          string              `json:"reasoning"`
	SampleDetails      SampleDetails       `json:"sample_details"`
	TemporalCalib      TemporalCalibration `json:"temporal_calibration"`
}

// CurvePoint is one sweep step of the prediction sensitivity curve.
type CurvePoint struct {
	PropValue  float64 `json:"prop_value"`
	Confidence float64 `json:"confidence"`
	Prediction string  `json:"prediction"`
}

// PropOutcome is a settled prop line posted back to the service once the
// match finishes. The worker pool batches these into Postgres so the next
// process start can retrain and recalibrate.
type PropOutcome struct {
	PlayerName  string        `json:"player_name" validate:"required"`
	PropType    PropType      `json:"prop_type" validate:"required,oneof=kills deaths assists cs vision_score"`
	PropValue   float64       `json:"prop_value" validate:"required,gt=0"`
	ActualValue float64       `json:"actual_value"`
	Over        bool          `json:"over"`
	RawProb     float64       `json:"raw_prob" validate:"gte=0,lte=1"`
	MatchDate   time.Time     `json:"match_date" validate:"required"`
	Features    FeatureVector `json:"features"`
}
