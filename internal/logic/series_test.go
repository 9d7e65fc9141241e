package logic

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/riftstats/props-api/internal/models"
)

func obs(opponent string, date time.Time, gameNumber int, kills float64) models.Observation {
	return models.Observation{
		PlayerID:   "p1",
		PlayerName: "Faker",
		Team:       "T1",
		Opponent:   opponent,
		Tournament: "LCK Summer 2025",
		Region:     "LCK",
		Date:       date,
		GameNumber: gameNumber,
		Position:   "mid",
		Kills:      kills,
	}
}

func TestResolveSeries(t *testing.T) {
	logger := zap.NewNop().Sugar()
	day1 := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 8, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		observations []models.Observation
		wantSeries   int
		wantRejected int
	}{
		{
			name: "Two maps one series",
			observations: []models.Observation{
				obs("GEN", day1, 1, 2),
				obs("GEN", day1, 2, 3),
			},
			wantSeries: 1,
		},
		{
			name: "Game number reset starts new series on same day",
			observations: []models.Observation{
				obs("GEN", day1, 1, 2),
				obs("GEN", day1, 2, 3),
				obs("GEN", day1, 1, 4),
			},
			wantSeries: 2,
		},
		{
			name: "Opponent change starts new series",
			observations: []models.Observation{
				obs("GEN", day1, 1, 2),
				obs("DK", day2, 1, 5),
			},
			wantSeries: 2,
		},
		{
			name: "Non-sequential game numbers rejected",
			observations: []models.Observation{
				obs("GEN", day1, 1, 2),
				obs("GEN", day1, 3, 3),
			},
			wantSeries:   0,
			wantRejected: 1,
		},
		{
			name: "Series starting past game one rejected",
			observations: []models.Observation{
				obs("GEN", day1, 2, 3),
			},
			wantSeries:   0,
			wantRejected: 1,
		},
		{
			name: "Six maps rejected",
			observations: []models.Observation{
				obs("GEN", day1, 1, 1),
				obs("GEN", day1, 2, 1),
				obs("GEN", day1, 3, 1),
				obs("GEN", day1, 4, 1),
				obs("GEN", day1, 5, 1),
				obs("GEN", day1, 6, 1),
			},
			wantSeries:   0,
			wantRejected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveSeries(tt.observations, logger)
			if len(res.Series) != tt.wantSeries {
				t.Errorf("got %d series, want %d", len(res.Series), tt.wantSeries)
			}
			if res.Rejected != tt.wantRejected {
				t.Errorf("got %d rejected, want %d", res.Rejected, tt.wantRejected)
			}
		})
	}
}

func TestAggregateRangeSumsNotAverages(t *testing.T) {
	day := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	res := ResolveSeries([]models.Observation{
		obs("GEN", day, 1, 2),
		obs("GEN", day, 2, 3),
	}, zap.NewNop().Sugar())

	if len(res.Series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(res.Series))
	}
	got, ok := res.Series[0].AggregateRange(models.PropKills, 1, 2)
	if !ok {
		t.Fatal("expected aggregate to be available")
	}
	if got != 5 {
		t.Errorf("maps 1-2 aggregate = %v, want 5 (sum, not 2.5 average)", got)
	}
}

func TestAggregateRangeExcludesShortSeries(t *testing.T) {
	day := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	res := ResolveSeries([]models.Observation{obs("GEN", day, 1, 7)}, zap.NewNop().Sugar())

	if _, ok := res.Series[0].AggregateRange(models.PropKills, 2, 3); ok {
		t.Error("series with one map must be excluded from a maps 2-3 range, not zero-filled")
	}

	// Clipped, not excluded, when the range start is reachable.
	got, ok := res.Series[0].AggregateRange(models.PropKills, 1, 3)
	if !ok || got != 7 {
		t.Errorf("clipped aggregate = %v ok=%v, want 7 true", got, ok)
	}
}
