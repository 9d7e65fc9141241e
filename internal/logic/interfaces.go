package logic

import (
	"context"
	"time"

	"github.com/riftstats/props-api/internal/models"
)

// ObservationIndex is the read-only view of the observation store the
// engine consumes. Implementations must be immutable after construction so
// concurrent queries need no locking.
type ObservationIndex interface {
	QueryBy(player string, from, to time.Time, tournament, team string) []models.Observation
	Players() []string
}

// PredictionService is the engine's single exposed interface: a pure
// function of (query, loaded stores) with no side effects.
type PredictionService interface {
	Predict(ctx context.Context, q *models.PredictionRequest) (*models.PredictionResult, error)
	Curve(ctx context.Context, q *models.PredictionRequest, step, span float64) ([]models.CurvePoint, error)
}
