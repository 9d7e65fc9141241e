package logic

import (
	"fmt"
	"sort"
	"time"

	"github.com/riftstats/props-api/internal/models"
)

// minTier1Series is the widening threshold: a tier-1-only sample below this
// size pulls in lower tiers (unless strict mode pins the window to tier 1).
const minTier1Series = 5

// recentCrossContextWindow bounds tier 4: any series played within this many
// days of the query date still carries moderate relevance regardless of
// tournament or roster context.
const recentCrossContextWindow = 180 * 24 * time.Hour

// assignTier classifies one candidate series against the query. Rules are
// evaluated in priority order and the first match wins, so every series
// lands in exactly one tier.
func assignTier(q *models.PredictionRequest, s *models.Series) int {
	switch {
	case s.Tournament == q.Tournament && s.Opponent == q.Opponent:
		return 1
	case s.Region != "" && sameYear(s.Date, q.MatchDate) && regionOf(q) == s.Region:
		return 2
	case q.Team != "" && s.Team == q.Team && sameYear(s.Date, q.MatchDate):
		return 3
	case q.MatchDate.Sub(s.Date) >= 0 && q.MatchDate.Sub(s.Date) <= recentCrossContextWindow:
		return 4
	default:
		return 5
	}
}

// regionOf derives the query's region from its tournament prefix, e.g.
// "LCK Summer 2025" -> "LCK". Candidate series carry their region directly.
func regionOf(q *models.PredictionRequest) string {
	for i := 0; i < len(q.Tournament); i++ {
		if q.Tournament[i] == ' ' {
			return q.Tournament[:i]
		}
	}
	return q.Tournament
}

func sameYear(a, b time.Time) bool {
	return a.UTC().Year() == b.UTC().Year()
}

// SelectSample builds the SampleWindow for a query from the player's
// resolved series. Series on or after the match date never enter the sample.
// Strict mode restricts the window to tier 1; otherwise the window widens
// tier by tier until it holds at least minTier1Series series or every tier
// has been included. An empty result is returned as an explicit no-data
// sentinel, not an error.
func SelectSample(q *models.PredictionRequest, resolution SeriesResolution) models.SampleWindow {
	byTier := make([][]models.TieredSeries, 6)
	for i := range resolution.Series {
		s := resolution.Series[i]
		if !s.Date.Before(q.MatchDate) {
			continue
		}
		tier := assignTier(q, &s)
		byTier[tier] = append(byTier[tier], models.TieredSeries{
			Series: s,
			Tier:   tier,
			Weight: models.TierWeight(tier),
		})
	}

	maxTier := 1
	if !q.StrictMode {
		count := len(byTier[1])
		for count < minTier1Series && maxTier < 5 {
			maxTier++
			count += len(byTier[maxTier])
		}
	}

	w := models.SampleWindow{
		StrictApplied: q.StrictMode,
		Rejected:      resolution.Rejected,
	}
	for tier := 1; tier <= maxTier; tier++ {
		if len(byTier[tier]) == 0 {
			continue
		}
		w.Samples = append(w.Samples, byTier[tier]...)
		w.TiersUsed = append(w.TiersUsed, tier)
	}

	// Newest samples first so recent-form features read from the front.
	sort.SliceStable(w.Samples, func(i, j int) bool {
		return w.Samples[i].Series.Date.After(w.Samples[j].Series.Date)
	})

	w.SeriesCount = len(w.Samples)
	for i := range w.Samples {
		w.MapCount += len(w.Samples[i].Series.Games)
	}

	// The tier name reflects every contributing tier, not just the best one.
	switch {
	case len(w.TiersUsed) == 0:
		w.TierName = models.TierName(0) // no-data sentinel
	case len(w.TiersUsed) == 1:
		w.TierName = models.TierName(w.TiersUsed[0])
	default:
		w.TierName = fmt.Sprintf("Tier %d-%d", w.TiersUsed[0], w.TiersUsed[len(w.TiersUsed)-1])
	}
	// The fallback flag reflects whether the answer rests on anything other
	// than a healthy tier-1 sample.
	w.FallbackUsed = len(w.TiersUsed) != 1 || w.TiersUsed[0] != 1 || len(byTier[1]) < minTier1Series
	return w
}
