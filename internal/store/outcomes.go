package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/riftstats/props-api/internal/logic"
	"github.com/riftstats/props-api/internal/models"
)

// PgPool is the slice of pgxpool.Pool the outcome store needs, kept narrow
// so tests can stub it.
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// LoadOutcomes reads every settled prop outcome from Postgres. The feature
// columns mirror models.FeatureNames; the schema version column guards
// against training on rows written under an older feature layout.
func LoadOutcomes(ctx context.Context, pg PgPool) ([]models.LabeledSample, error) {
	rows, err := pg.Query(ctx, `
		SELECT
			schema_version, over_hit, raw_prob, match_date,
			mean, std_dev, bounded_z, volatility, sample_size_score,
			market_distance, patch_recency, position_factor, tier_weight, recent_form
		FROM prop_outcomes
		ORDER BY match_date
	`)
	if err != nil {
		return nil, fmt.Errorf("query prop outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.LabeledSample
	for rows.Next() {
		var (
			s       models.LabeledSample
			version int
			date    time.Time
		)
		f := &s.Features
		if err := rows.Scan(
			&version, &s.Over, &s.RawProb, &date,
			&f.Mean, &f.StdDev, &f.BoundedZ, &f.Volatility, &f.SampleSizeScore,
			&f.MarketDistance, &f.PatchRecency, &f.PositionFactor, &f.TierWeight, &f.RecentForm,
		); err != nil {
			return nil, fmt.Errorf("scan prop outcome: %w", err)
		}
		if version != models.FeatureSchemaVersion {
			// Rows written under an older schema cannot train the current
			// model; skip rather than fail the load.
			continue
		}
		f.SchemaVersion = version
		s.PatchGroup = logic.PatchGroupFor(date)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read prop outcomes: %w", err)
	}
	return out, nil
}
