// Package store owns the engine's external collaborators: the ClickHouse
// observation loader, the immutable in-memory observation index, the
// Postgres outcome store, and the Redis result cache. Everything the engine
// reads is built once at startup and never mutated afterwards.
package store

import (
	"sort"
	"strings"
	"time"

	"github.com/riftstats/props-api/internal/models"
)

// Index is the immutable in-memory observation index. It is constructed
// once during startup and passed by reference to the engine; after
// construction all operations are pure reads.
type Index struct {
	byPlayer map[string][]models.Observation
	players  []string
}

// NewIndex builds the index from raw observations. Input is copied and
// sorted by date per player; the caller may discard its slice.
func NewIndex(observations []models.Observation) *Index {
	byPlayer := make(map[string][]models.Observation)
	for i := range observations {
		key := playerKey(observations[i].PlayerName)
		byPlayer[key] = append(byPlayer[key], observations[i])
	}

	players := make([]string, 0, len(byPlayer))
	for key, obs := range byPlayer {
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
		players = append(players, key)
	}
	sort.Strings(players)

	return &Index{byPlayer: byPlayer, players: players}
}

// QueryBy returns copies of a player's observations filtered by date range,
// tournament, and team. Zero-valued filters match everything. Returned
// slices are owned by the caller.
func (ix *Index) QueryBy(player string, from, to time.Time, tournament, team string) []models.Observation {
	source := ix.byPlayer[playerKey(player)]
	out := make([]models.Observation, 0, len(source))
	for i := range source {
		o := source[i]
		if !from.IsZero() && o.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !o.Date.Before(to) {
			continue
		}
		if tournament != "" && o.Tournament != tournament {
			continue
		}
		if team != "" && o.Team != team {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Players lists every indexed player key.
func (ix *Index) Players() []string {
	out := make([]string, len(ix.players))
	copy(out, ix.players)
	return out
}

// Size returns the total observation count, for startup logging.
func (ix *Index) Size() int {
	var n int
	for _, obs := range ix.byPlayer {
		n += len(obs)
	}
	return n
}

func playerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
