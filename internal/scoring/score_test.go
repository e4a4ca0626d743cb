package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func series(prices ...float64) []Observation {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]Observation, len(prices))
	for i, p := range prices {
		obs[i] = Observation{
			Retailer:   "amazon",
			Price:      decimal.NewFromFloat(p),
			InStock:    true,
			Condition:  ConditionNew,
			ObservedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return obs
}

func TestScoreInsufficientHistory(t *testing.T) {
	result := Score(series(100, 90, 95, 85), Current{Price: decimal.NewFromInt(80), InStock: true})

	if result.Score != 50 {
		t.Fatalf("expected score 50, got %d", result.Score)
	}
	if result.Quality != QualityFair {
		t.Fatalf("expected quality fair, got %s", result.Quality)
	}
	if result.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3, got %v", result.Confidence)
	}
	if result.AveragePrice.Valid || result.MinPrice.Valid || result.MaxPrice.Valid || result.CurrentPrice.Valid {
		t.Fatalf("price fields should be invalid for short history: %+v", result)
	}
	if result.Percentiles.P25.Valid || result.Percentiles.P50.Valid || result.Percentiles.P75.Valid {
		t.Fatalf("percentiles should be invalid for short history")
	}
	if result.Recommendation == "" {
		t.Fatal("recommendation should be populated")
	}
}

func TestScoreHistoricalLowBonusExact(t *testing.T) {
	// Flat series skips the range and average factors, so the low bonus is the
	// only contribution: 50 + 20.
	result := Score(series(100, 100, 100, 100, 100), Current{Price: decimal.NewFromInt(100), InStock: true})

	if result.Score != 70 {
		t.Fatalf("expected score 70, got %d", result.Score)
	}
	if result.Quality != QualityGreat {
		t.Fatalf("expected quality great, got %s", result.Quality)
	}
}

func TestScoreNearHistoricalLow(t *testing.T) {
	// 105 is exactly 5% above the low: -5 from the average factor, +15 near-low.
	result := Score(series(100, 100, 100, 100, 100), Current{Price: decimal.NewFromInt(105), InStock: true})

	if result.Score != 60 {
		t.Fatalf("expected score 60, got %d", result.Score)
	}
	if result.Quality != QualityGood {
		t.Fatalf("expected quality good, got %s", result.Quality)
	}
}

func TestScoreOutOfStockPenalty(t *testing.T) {
	inStock := Score(series(100, 100, 100, 100, 100), Current{Price: decimal.NewFromInt(100), InStock: true})
	outOfStock := Score(series(100, 100, 100, 100, 100), Current{Price: decimal.NewFromInt(100), InStock: false})

	if inStock.Score-outOfStock.Score != 20 {
		t.Fatalf("expected a 20 point penalty, got %d vs %d", inStock.Score, outOfStock.Score)
	}
	if outOfStock.InStock {
		t.Fatal("result should carry the out-of-stock flag")
	}
}

func TestScoreClampedToUpperBound(t *testing.T) {
	// Scenario from a steadily falling series: range position (+40), average
	// comparison (+11.1), historical low (+20) and recent trend (+10) overflow
	// the raw score well past 100.
	result := Score(series(100, 90, 95, 85, 80), Current{Price: decimal.NewFromInt(80), InStock: true})

	if result.Score != 100 {
		t.Fatalf("expected clamp to 100, got %d", result.Score)
	}
	if result.Quality != QualityAmazing {
		t.Fatalf("expected quality amazing, got %s", result.Quality)
	}
	if !result.MinPrice.Decimal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected min 80, got %s", result.MinPrice.Decimal)
	}
	if !result.AveragePrice.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected avg 90, got %s", result.AveragePrice.Decimal)
	}
}

func TestScoreClampedToLowerBound(t *testing.T) {
	// Worst case: at the range top (+0), far above average (-30 cap), out of
	// stock (-20) lands exactly on the clamp floor.
	result := Score(series(10, 10, 10, 10, 100), Current{Price: decimal.NewFromInt(100), InStock: false})

	if result.Score != 0 {
		t.Fatalf("expected clamp to 0, got %d", result.Score)
	}
	if result.Quality != QualityPoor {
		t.Fatalf("expected quality poor, got %s", result.Quality)
	}
}

func TestScoreZeroPricedSeries(t *testing.T) {
	// Scrapers emit $0.00 placeholder rows; an all-zero window must not divide
	// by the zero average. Range and average factors are skipped, the current
	// zero equals the historical low: 50 + 20.
	result := Score(series(0, 0, 0, 0, 0), Current{Price: decimal.Zero, InStock: true})

	if result.Score != 70 {
		t.Fatalf("expected score 70, got %d", result.Score)
	}
	if !result.AveragePrice.Decimal.IsZero() {
		t.Fatalf("expected zero average, got %s", result.AveragePrice.Decimal)
	}

	// Nonzero current against the same window: no factor fires at all.
	result = Score(series(0, 0, 0, 0, 0), Current{Price: decimal.NewFromInt(5), InStock: true})
	if result.Score != 50 {
		t.Fatalf("expected score 50, got %d", result.Score)
	}
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	cases := [][]float64{
		{1, 2, 3, 4, 5},
		{500, 1, 500, 1, 500, 1},
		{99.99, 100.01, 99.99, 100.01, 99.99},
		{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10},
		{1000, 900, 800, 700, 600, 500, 400, 300, 200, 100, 50},
		{0, 0, 0, 0, 0},
	}
	currents := []float64{0, 0.5, 1, 50, 100, 1000, 5000}

	for _, prices := range cases {
		for _, cur := range currents {
			for _, stocked := range []bool{true, false} {
				result := Score(series(prices...), Current{Price: decimal.NewFromFloat(cur), InStock: stocked})
				if result.Score < 0 || result.Score > 100 {
					t.Fatalf("score %d out of bounds for prices=%v current=%v stocked=%v", result.Score, prices, cur, stocked)
				}
			}
		}
	}
}

func TestPercentilesNearestRank(t *testing.T) {
	result := Score(series(50, 10, 40, 20, 30), Current{Price: decimal.NewFromInt(30), InStock: true})

	if !result.Percentiles.P25.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected p25=20, got %s", result.Percentiles.P25.Decimal)
	}
	if !result.Percentiles.P50.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected p50=30, got %s", result.Percentiles.P50.Decimal)
	}
	if !result.Percentiles.P75.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected p75=40, got %s", result.Percentiles.P75.Decimal)
	}
}

func TestConfidenceGrowsWithHistory(t *testing.T) {
	if got := confidence(10); got != 0.55 {
		t.Fatalf("expected 0.55 for 10 points, got %v", got)
	}
	if got := confidence(200); got != 1.0 {
		t.Fatalf("expected 1.0 for 200 points, got %v", got)
	}
	if got := confidence(500); got != 1.0 {
		t.Fatalf("confidence should stay capped at 1.0, got %v", got)
	}

	prev := 0.0
	for n := 0; n <= 250; n += 10 {
		c := confidence(n)
		if c < prev {
			t.Fatalf("confidence decreased at %d points: %v < %v", n, c, prev)
		}
		prev = c
	}
}

func TestScoreDeterministic(t *testing.T) {
	obs := series(120, 110, 130, 105, 115, 108)
	cur := Current{Price: decimal.NewFromFloat(107.5), InStock: true}

	first := Score(obs, cur)
	second := Score(obs, cur)

	if first.Score != second.Score || first.Quality != second.Quality || first.Confidence != second.Confidence {
		t.Fatalf("score should be deterministic: %+v vs %+v", first, second)
	}
}
