package models

// FeatureSchemaVersion tags the fixed feature layout so training rows and
// inference rows can never silently diverge. Bump on any change to the
// field set or its order.
const FeatureSchemaVersion = 1

// FeatureVector is the fixed-schema input to the classifier. Every field is
// always a finite float64: when the sample is too thin to compute a real
// statistic, the engineer substitutes the documented fallback instead of
// NaN, Inf, or a null.
type FeatureVector struct {
	SchemaVersion int `json:"schema_version"`

	Mean            float64 `json:"mean"`              // weighted series-level mean of the target stat
	StdDev          float64 `json:"std_dev"`           // weighted series-level standard deviation
	BoundedZ        float64 `json:"bounded_z"`         // tanh(z/2) of prop line vs sample, in (-1,1)
	Volatility      float64 `json:"volatility"`        // coefficient of variation clamped to [0,1]
	SampleSizeScore float64 `json:"sample_size_score"` // quality tier mapped to {0.25,0.5,0.75,1.0}
	MarketDistance  float64 `json:"market_distance"`   // (expected - prop) / prop
	PatchRecency    float64 `json:"patch_recency"`     // decay with patch-group distance, [0.05,1]
	PositionFactor  float64 `json:"position_factor"`   // role multiplier for the queried stat
	TierWeight      float64 `json:"tier_weight"`       // weight of the best contributing tier
	RecentForm      float64 `json:"recent_form"`       // bounded z of the last 5 aggregates vs baseline
}

// FeatureCount is the number of numeric features fed to the classifier.
const FeatureCount = 10

// Values flattens the vector in schema order for the tree ensemble.
func (f *FeatureVector) Values() [FeatureCount]float64 {
	return [FeatureCount]float64{
		f.Mean,
		f.StdDev,
		f.BoundedZ,
		f.Volatility,
		f.SampleSizeScore,
		f.MarketDistance,
		f.PatchRecency,
		f.PositionFactor,
		f.TierWeight,
		f.RecentForm,
	}
}

// FeatureNames mirrors Values() order, used in diagnostics and the outcome
// store column layout.
var FeatureNames = [FeatureCount]string{
	"mean",
	"std_dev",
	"bounded_z",
	"volatility",
	"sample_size_score",
	"market_distance",
	"patch_recency",
	"position_factor",
	"tier_weight",
	"recent_form",
}

// LabeledSample is one settled prop line used to train the classifier and
// fit the per-patch-group calibration.
type LabeledSample struct {
	Features   FeatureVector `json:"features"`
	Over       bool          `json:"over"`           // actual outcome
	RawProb    float64       `json:"raw_prob"`       // model output at prediction time, for calibration
	PatchGroup int           `json:"patch_group"`
}
