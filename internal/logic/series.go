package logic

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/riftstats/props-api/internal/models"
)

// SeriesResolution is the output of grouping raw per-map observations into
// competitive series. Rejected counts malformed groups that were excluded
// from the sample (a data-integrity condition, never fatal).
type SeriesResolution struct {
	Series   []models.Series
	Rejected int
}

// ResolveSeries groups one player's per-map observations into series.
// Observations are sorted by (team-pair, day, game number); a new series
// starts whenever the game number resets to 1 or the team-pair/day changes.
// Groups longer than five maps or with non-sequential game numbers are
// logged and excluded.
func ResolveSeries(observations []models.Observation, logger *zap.SugaredLogger) SeriesResolution {
	obs := make([]models.Observation, len(observations))
	copy(obs, observations)

	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].Team != obs[j].Team {
			return obs[i].Team < obs[j].Team
		}
		if obs[i].Opponent != obs[j].Opponent {
			return obs[i].Opponent < obs[j].Opponent
		}
		di, dj := day(obs[i].Date), day(obs[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return obs[i].GameNumber < obs[j].GameNumber
	})

	var res SeriesResolution
	var current []models.Observation

	flush := func() {
		if len(current) == 0 {
			return
		}
		if ok, reason := wellFormed(current); ok {
			first := current[0]
			games := make([]models.Observation, len(current))
			copy(games, current)
			res.Series = append(res.Series, models.Series{
				Team:       first.Team,
				Opponent:   first.Opponent,
				Tournament: first.Tournament,
				Region:     first.Region,
				Date:       first.Date,
				Games:      games,
			})
		} else {
			res.Rejected++
			if logger != nil {
				logger.Warnw("Excluding malformed series",
					"player", current[0].PlayerID,
					"opponent", current[0].Opponent,
					"date", day(current[0].Date).Format("2006-01-02"),
					"maps", len(current),
					"reason", reason,
				)
			}
		}
		current = current[:0]
	}

	for i := range obs {
		o := obs[i]
		if len(current) > 0 {
			prev := current[len(current)-1]
			samePair := prev.Team == o.Team && prev.Opponent == o.Opponent && day(prev.Date).Equal(day(o.Date))
			if !samePair || o.GameNumber == 1 {
				flush()
			}
		}
		current = append(current, o)
	}
	flush()

	sort.SliceStable(res.Series, func(i, j int) bool {
		return res.Series[i].Date.Before(res.Series[j].Date)
	})
	return res
}

// wellFormed enforces the series invariants: at most five maps, game
// numbers sequential starting at 1.
func wellFormed(games []models.Observation) (bool, string) {
	if len(games) > models.MaxSeriesLength {
		return false, "series exceeds 5 maps"
	}
	for i, g := range games {
		if g.GameNumber != i+1 {
			return false, "non-sequential game numbers"
		}
	}
	return true, ""
}

func day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
