package models

import "time"

// PropType identifies which stat column a prop line is written against.
type PropType string

const (
	PropKills       PropType = "kills"
	PropDeaths      PropType = "deaths"
	PropAssists     PropType = "assists"
	PropCreepScore  PropType = "cs"
	PropVisionScore PropType = "vision_score"
)

// ValidPropTypes lists every stat a prop line can target.
var ValidPropTypes = []PropType{PropKills, PropDeaths, PropAssists, PropCreepScore, PropVisionScore}

// Observation is one player's performance on one map. Immutable once loaded;
// the store hands out copies, never shared slices.
type Observation struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Team       string    `json:"team"`
	Opponent   string    `json:"opponent"`
	Tournament string    `json:"tournament"`
	Region     string    `json:"region"`
	Date       time.Time `json:"date"`
	Patch      string    `json:"patch"`
	GameNumber int       `json:"game_number"`
	Position   string    `json:"position"` // top, jungle, mid, bot, support

	Kills       float64 `json:"kills"`
	Deaths      float64 `json:"deaths"`
	Assists     float64 `json:"assists"`
	CreepScore  float64 `json:"cs"`
	GoldAt10    float64 `json:"gold_at_10"`
	GoldAt15    float64 `json:"gold_at_15"`
	XPAt10      float64 `json:"xp_at_10"`
	CSAt10      float64 `json:"cs_at_10"`
	VisionScore float64 `json:"vision_score"`
}

// Stat returns the value of the column a prop type targets.
func (o *Observation) Stat(p PropType) float64 {
	switch p {
	case PropKills:
		return o.Kills
	case PropDeaths:
		return o.Deaths
	case PropAssists:
		return o.Assists
	case PropCreepScore:
		return o.CreepScore
	case PropVisionScore:
		return o.VisionScore
	default:
		return 0
	}
}

// MaxSeriesLength caps a competitive series at best-of-five.
const MaxSeriesLength = 5

// Series is an ordered run of maps between the same two teams on the same
// date, anchored by game_number == 1. Games are in strictly increasing
// game-number order and there are at most MaxSeriesLength of them.
type Series struct {
	Team       string        `json:"team"`
	Opponent   string        `json:"opponent"`
	Tournament string        `json:"tournament"`
	Region     string        `json:"region"`
	Date       time.Time     `json:"date"`
	Games      []Observation `json:"games"`
}

// AggregateRange sums a stat across maps a..b of the series, clipped to the
// series' actual length. Returns false when the series never reached map a;
// a too-short series is excluded from the sample, never zero-filled.
func (s *Series) AggregateRange(p PropType, a, b int) (float64, bool) {
	if a < 1 || b < a || len(s.Games) < a {
		return 0, false
	}
	if b > len(s.Games) {
		b = len(s.Games)
	}
	var sum float64
	for i := a - 1; i < b; i++ {
		sum += s.Games[i].Stat(p)
	}
	return sum, true
}

// Tier weights, most relevant first. Index 0 is unused so tier N reads as
// tierWeights[N].
var tierWeights = [6]float64{0, 1.0, 0.85, 0.7, 0.5, 0.3}

// TierWeight returns the sample weight for a relevance tier (1..5).
func TierWeight(tier int) float64 {
	if tier < 1 || tier > 5 {
		return 0
	}
	return tierWeights[tier]
}

// TierName returns the display name for a tier.
func TierName(tier int) string {
	switch tier {
	case 1:
		return "Tier 1"
	case 2:
		return "Tier 2"
	case 3:
		return "Tier 3"
	case 4:
		return "Tier 4"
	case 5:
		return "Tier 5"
	default:
		return "No Data"
	}
}

// TieredSeries is a series tagged with its relevance tier for one query.
type TieredSeries struct {
	Series Series
	Tier   int
	Weight float64
}

// SampleWindow is the relevance-ranked sample selected for a single query.
// Built fresh per query, never persisted or shared.
type SampleWindow struct {
	Samples       []TieredSeries
	TierName      string
	TiersUsed     []int
	SeriesCount   int
	MapCount      int
	FallbackUsed  bool
	StrictApplied bool
	Rejected      int // malformed series excluded by the resolver
}

// Empty reports whether the window carries no usable samples (the no-data
// sentinel from the selector).
func (w *SampleWindow) Empty() bool {
	return len(w.Samples) == 0
}

// Aggregates evaluates every sample over the query's map range and returns
// the per-series values alongside their tier weights. Series shorter than
// the range start are skipped.
func (w *SampleWindow) Aggregates(p PropType, a, b int) (values, weights []float64) {
	for i := range w.Samples {
		v, ok := w.Samples[i].Series.AggregateRange(p, a, b)
		if !ok {
			continue
		}
		values = append(values, v)
		weights = append(weights, w.Samples[i].Weight)
	}
	return values, weights
}
