package models

import (
	"fmt"
	"strings"
	"time"
)

// PredictionRequest is the incoming prop query. Validation tags cover the
// type-level checks; Validate() covers the cross-field ones.
type PredictionRequest struct {
	PlayerNames   []string  `json:"player_names" validate:"required,len=1,dive,required"`
	PropType      PropType  `json:"prop_type" validate:"required,oneof=kills deaths assists cs vision_score"`
	PropValue     float64   `json:"prop_value" validate:"required,gt=0"`
	MapRange      [2]int    `json:"map_range"`
	Opponent      string    `json:"opponent" validate:"required"`
	Tournament    string    `json:"tournament" validate:"required"`
	Team          string    `json:"team,omitempty"`
	MatchDate     time.Time `json:"match_date" validate:"required"`
	PositionRoles []string  `json:"position_roles"`
	StrictMode    bool      `json:"strict_mode"`
}

// Validate checks the constraints the struct tags cannot express, plus the
// ones the engine relies on when called without the HTTP layer's validator.
// A failure here is the only error class that rejects a query outright.
func (q *PredictionRequest) Validate() error {
	known := false
	for _, p := range ValidPropTypes {
		if q.PropType == p {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown prop_type %q", q.PropType)
	}
	a, b := q.MapRange[0], q.MapRange[1]
	if a < 1 || b > MaxSeriesLength || a > b {
		return fmt.Errorf("map_range [%d,%d] must satisfy 1 <= a <= b <= %d", a, b, MaxSeriesLength)
	}
	return nil
}

// Player returns the single supported player name.
func (q *PredictionRequest) Player() string {
	if len(q.PlayerNames) == 0 {
		return ""
	}
	return q.PlayerNames[0]
}

// PrimaryRole returns the first queried role, or "" when none was given.
func (q *PredictionRequest) PrimaryRole() string {
	if len(q.PositionRoles) == 0 {
		return ""
	}
	return strings.ToLower(q.PositionRoles[0])
}

// MultiMap reports whether the prop line spans more than one map.
func (q *PredictionRequest) MultiMap() bool {
	return q.MapRange[1] > q.MapRange[0]
}

// Signature is the full query identity used for result caching and for
// seeding the bootstrap RNG. Two queries with the same signature must
// produce bit-identical results against an unchanged store.
func (q *PredictionRequest) Signature() string {
	return fmt.Sprintf("%s|%s|%.2f|%d-%d|%s|%s|%s|%s|%s|%t",
		q.Player(),
		q.PropType,
		q.PropValue,
		q.MapRange[0], q.MapRange[1],
		q.Opponent,
		q.Tournament,
		q.Team,
		q.MatchDate.UTC().Format(time.RFC3339),
		strings.Join(q.PositionRoles, ","),
		q.StrictMode,
	)
}
