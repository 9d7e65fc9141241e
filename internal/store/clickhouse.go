package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/riftstats/props-api/internal/models"
)

// LoadObservations pulls the full per-map performance table from ClickHouse.
// This is the process's one I/O-bound phase: it runs once at startup and
// the result is frozen into an Index.
func LoadObservations(ctx context.Context, ch driver.Conn) ([]models.Observation, error) {
	rows, err := ch.Query(ctx, `
		SELECT
			player_id, player_name, team, opponent, tournament, region,
			match_date, patch, game_number, position,
			kills, deaths, assists, cs, gold_at_10, gold_at_15,
			xp_at_10, cs_at_10, vision_score
		FROM esports_stats.player_maps
		ORDER BY player_name, match_date, game_number
	`)
	if err != nil {
		return nil, fmt.Errorf("query player maps: %w", err)
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var (
			o          models.Observation
			date       time.Time
			gameNumber uint8
		)
		if err := rows.Scan(
			&o.PlayerID, &o.PlayerName, &o.Team, &o.Opponent, &o.Tournament, &o.Region,
			&date, &o.Patch, &gameNumber, &o.Position,
			&o.Kills, &o.Deaths, &o.Assists, &o.CreepScore, &o.GoldAt10, &o.GoldAt15,
			&o.XPAt10, &o.CSAt10, &o.VisionScore,
		); err != nil {
			return nil, fmt.Errorf("scan player map row: %w", err)
		}
		o.Date = date
		o.GameNumber = int(gameNumber)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read player maps: %w", err)
	}
	return out, nil
}
