package logic

import (
	"math"
	"testing"
	"time"

	"github.com/riftstats/props-api/internal/models"
)

func windowOf(kills ...float64) *models.SampleWindow {
	base := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	w := &models.SampleWindow{TierName: "Tier 1", TiersUsed: []int{1}}
	for i, k := range kills {
		s := seriesAt("GEN", "LCK Summer 2025", "LCK", "T1", base.AddDate(0, 0, -i))
		s.Games[0].Kills = k
		w.Samples = append(w.Samples, models.TieredSeries{Series: s, Tier: 1, Weight: 1.0})
	}
	w.SeriesCount = len(w.Samples)
	w.MapCount = len(w.Samples)
	return w
}

func TestSafeDiv(t *testing.T) {
	tests := []struct {
		name               string
		num, den, fallback float64
		want               float64
	}{
		{"Normal division", 6, 3, -1, 2},
		{"Zero denominator uses fallback", 6, 0, -1, -1},
		{"NaN denominator uses fallback", 6, math.NaN(), -1, -1},
		{"Inf denominator uses fallback", 6, math.Inf(1), -1, -1},
		{"NaN result uses fallback", 0, 0, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeDiv(tt.num, tt.den, tt.fallback); got != tt.want {
				t.Errorf("safeDiv(%v, %v, %v) = %v, want %v", tt.num, tt.den, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestQualityTiers(t *testing.T) {
	tests := []struct {
		size      int
		wantTier  string
		wantScore float64
	}{
		{0, QualityInsufficient, 0.25},
		{4, QualityInsufficient, 0.25},
		{5, QualityLow, 0.5},
		{9, QualityLow, 0.5},
		{10, QualityMedium, 0.75},
		{14, QualityMedium, 0.75},
		{15, QualityHigh, 1.0},
		{40, QualityHigh, 1.0},
	}
	for _, tt := range tests {
		tier, score := qualityFor(tt.size)
		if tier != tt.wantTier || score != tt.wantScore {
			t.Errorf("qualityFor(%d) = (%q, %v), want (%q, %v)",
				tt.size, tier, score, tt.wantTier, tt.wantScore)
		}
	}
}

func TestEngineerFeaturesStableHistory(t *testing.T) {
	q := testQuery()
	w := windowOf(4, 4, 4, 4, 4, 4)

	eng := EngineerFeatures(q, w)

	if eng.SampleSize != 6 {
		t.Fatalf("SampleSize = %d, want 6", eng.SampleSize)
	}
	if eng.Quality != QualityLow {
		t.Errorf("Quality = %q, want %q", eng.Quality, QualityLow)
	}
	if eng.Vector.Mean != 4 {
		t.Errorf("Mean = %v, want 4", eng.Vector.Mean)
	}
	if eng.Vector.StdDev != 0 {
		t.Errorf("StdDev = %v, want 0", eng.Vector.StdDev)
	}
	// Zero deviation must not blow up the z-score; it routes through the
	// division fallback instead.
	if eng.Vector.BoundedZ != 0 {
		t.Errorf("BoundedZ = %v, want 0", eng.Vector.BoundedZ)
	}
	if eng.Vector.Volatility != 0 {
		t.Errorf("Volatility = %v, want 0", eng.Vector.Volatility)
	}

	// mid-lane kill multiplier applied to the flat mean
	wantExpected := 4 * PositionFactor(models.PropKills, "mid")
	if math.Abs(eng.Expected-wantExpected) > 1e-9 {
		t.Errorf("Expected = %v, want %v", eng.Expected, wantExpected)
	}
	wantDist := (wantExpected - q.PropValue) / q.PropValue
	if math.Abs(eng.Vector.MarketDistance-wantDist) > 1e-9 {
		t.Errorf("MarketDistance = %v, want %v", eng.Vector.MarketDistance, wantDist)
	}
}

func TestEngineerFeaturesAlwaysFinite(t *testing.T) {
	q := testQuery()

	tests := []struct {
		name string
		w    *models.SampleWindow
	}{
		{"Empty window", &models.SampleWindow{TierName: "No Data", FallbackUsed: true}},
		{"Single sample", windowOf(7)},
		{"Two identical samples", windowOf(3, 3)},
		{"Zero-valued stats", windowOf(0, 0, 0, 0, 0)},
		{"Volatile history", windowOf(0, 12, 1, 9, 0, 14, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := EngineerFeatures(q, tt.w)
			for i, v := range eng.Vector.Values() {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("feature %s is not finite: %v", models.FeatureNames[i], v)
				}
			}
			if math.IsNaN(eng.Expected) || math.IsInf(eng.Expected, 0) {
				t.Errorf("Expected is not finite: %v", eng.Expected)
			}
		})
	}
}

func TestEngineerFeaturesNoDataFallback(t *testing.T) {
	q := testQuery()
	q.MapRange = [2]int{1, 2}
	w := &models.SampleWindow{TierName: "No Data", FallbackUsed: true}

	eng := EngineerFeatures(q, w)

	// Neutral mid-lane kill mean stretched across the two queried maps.
	wantMean := FallbackMean(models.PropKills, "mid") * 2
	if math.Abs(eng.Vector.Mean-wantMean) > 1e-9 {
		t.Errorf("Mean = %v, want %v", eng.Vector.Mean, wantMean)
	}
	if eng.Vector.StdDev != wantMean*0.5 {
		t.Errorf("StdDev = %v, want %v", eng.Vector.StdDev, wantMean*0.5)
	}
	if eng.Quality != QualityInsufficient {
		t.Errorf("Quality = %q, want %q", eng.Quality, QualityInsufficient)
	}
	if eng.Vector.PatchRecency != 0.05 {
		t.Errorf("PatchRecency = %v, want floor 0.05", eng.Vector.PatchRecency)
	}
	if eng.Vector.RecentForm != 0 {
		t.Errorf("RecentForm = %v, want 0 without history", eng.Vector.RecentForm)
	}
}

func TestFallbackMeanUnknownRole(t *testing.T) {
	if got, want := FallbackMean(models.PropKills, "coach"), FallbackMean(models.PropKills, ""); got != want {
		t.Errorf("unknown role mean = %v, want neutral %v", got, want)
	}
}

func TestPositionFactorNeutralStats(t *testing.T) {
	if got := PositionFactor(models.PropCreepScore, "support"); got != 1.0 {
		t.Errorf("creep score factor = %v, want 1.0", got)
	}
	if got := PositionFactor(models.PropKills, "unknown"); got != 1.0 {
		t.Errorf("unknown role factor = %v, want neutral 1.0", got)
	}
}
