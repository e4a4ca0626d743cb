package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Quality labels a score bucket.
type Quality string

const (
	QualityAmazing Quality = "amazing"
	QualityGreat   Quality = "great"
	QualityGood    Quality = "good"
	QualityFair    Quality = "fair"
	QualityPoor    Quality = "poor"
)

// Condition describes the sale condition of an observed listing.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
	ConditionOpenBox     Condition = "open_box"
)

// Observation is a single scraped price point for a product at one retailer.
type Observation struct {
	Retailer   string
	Price      decimal.Decimal
	InStock    bool
	Condition  Condition
	ObservedAt time.Time
}

// Current is the most recent observation for the retailer being scored.
type Current struct {
	Price   decimal.Decimal
	InStock bool
}

// Percentiles carry the nearest-rank price percentiles over the window.
type Percentiles struct {
	P25 decimal.NullDecimal
	P50 decimal.NullDecimal
	P75 decimal.NullDecimal
}

// Result is the scoring artifact for one (product, retailer) pair. Every field
// is always present; price fields are invalid NullDecimals when the history was
// too short to compute statistics.
type Result struct {
	Score          int
	Quality        Quality
	Recommendation string
	Confidence     float64
	AveragePrice   decimal.NullDecimal
	MinPrice       decimal.NullDecimal
	MaxPrice       decimal.NullDecimal
	CurrentPrice   decimal.NullDecimal
	Percentiles    Percentiles
	InStock        bool
	DataPoints     int
}

// MinHistory is the smallest series length that yields full statistics.
const MinHistory = 5

// recentTrendSpan is how many trailing observations feed the trend factor.
const recentTrendSpan = 10

const insufficientRecommendation = "Not enough price history for accurate scoring"

var (
	decOne     = decimal.NewFromInt(1)
	decTen     = decimal.NewFromInt(10)
	decFifteen = decimal.NewFromInt(15)
	decTwenty  = decimal.NewFromInt(20)
	decThirty  = decimal.NewFromInt(30)
	decForty   = decimal.NewFromInt(40)
	decHundred = decimal.NewFromInt(100)
	// nearLowBand marks prices within 5% of the historical low.
	nearLowBand = decimal.NewFromFloat(1.05)
)

// Score evaluates how good the current price is against the series. It is pure
// and deterministic; all comparisons run on exact decimals and only the
// returned presentation fields are rounded.
func Score(series []Observation, current Current) Result {
	if len(series) < MinHistory {
		return Result{
			Score:          50,
			Quality:        QualityFair,
			Recommendation: insufficientRecommendation,
			Confidence:     0.3,
			DataPoints:     len(series),
		}
	}

	prices := make([]decimal.Decimal, len(series))
	for i, obs := range series {
		prices[i] = obs.Price
	}

	minPrice, maxPrice := prices[0], prices[0]
	sum := decimal.Zero
	for _, p := range prices {
		if p.LessThan(minPrice) {
			minPrice = p
		}
		if p.GreaterThan(maxPrice) {
			maxPrice = p
		}
		sum = sum.Add(p)
	}
	avgPrice := sum.Div(decimal.NewFromInt(int64(len(prices))))

	sorted := append([]decimal.Decimal(nil), prices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	score := decimal.NewFromInt(50)

	// Position within the observed price range, up to 40 points.
	if !maxPrice.Equal(minPrice) {
		position := current.Price.Sub(minPrice).Div(maxPrice.Sub(minPrice))
		score = score.Add(decOne.Sub(position).Mul(decForty))
	}

	// Distance from the window average, capped at 30 points either way. A
	// zero average (all-zero placeholder prices) carries no comparison signal.
	if !avgPrice.IsZero() {
		relative := avgPrice.Sub(current.Price).Div(avgPrice)
		points := relative.Mul(decHundred)
		if relative.IsPositive() {
			score = score.Add(decimal.Min(points, decThirty))
		} else {
			score = score.Add(decimal.Max(points, decThirty.Neg()))
		}
	}

	// Historical-low bonus.
	switch {
	case current.Price.Equal(minPrice):
		score = score.Add(decTwenty)
	case current.Price.LessThanOrEqual(minPrice.Mul(nearLowBand)):
		score = score.Add(decFifteen)
	}

	// Recent trend against the mean of the trailing observations.
	recent := prices
	if len(recent) > recentTrendSpan {
		recent = recent[len(recent)-recentTrendSpan:]
	}
	recentSum := decimal.Zero
	for _, p := range recent {
		recentSum = recentSum.Add(p)
	}
	recentAvg := recentSum.Div(decimal.NewFromInt(int64(len(recent))))
	if current.Price.LessThan(recentAvg) {
		score = score.Add(decTen)
	}

	if !current.InStock {
		score = score.Sub(decTwenty)
	}

	if score.IsNegative() {
		score = decimal.Zero
	}
	if score.GreaterThan(decHundred) {
		score = decHundred
	}
	final := int(score.Round(0).IntPart())

	quality, recommendation := bucket(final)

	return Result{
		Score:          final,
		Quality:        quality,
		Recommendation: recommendation,
		Confidence:     confidence(len(series)),
		AveragePrice:   rounded(avgPrice),
		MinPrice:       rounded(minPrice),
		MaxPrice:       rounded(maxPrice),
		CurrentPrice:   rounded(current.Price),
		Percentiles: Percentiles{
			P25: rounded(nearestRank(sorted, 0.25)),
			P50: rounded(nearestRank(sorted, 0.50)),
			P75: rounded(nearestRank(sorted, 0.75)),
		},
		InStock:    current.InStock,
		DataPoints: len(series),
	}
}

// nearestRank picks the percentile by index, no interpolation.
func nearestRank(sorted []decimal.Decimal, q float64) decimal.Decimal {
	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func confidence(dataPoints int) float64 {
	c := 0.5 + float64(dataPoints)/200
	if c > 1.0 {
		c = 1.0
	}
	return math.Round(c*100) / 100
}

func bucket(score int) (Quality, string) {
	switch {
	case score >= 85:
		return QualityAmazing, "Amazing deal! This is an exceptional price - historical low or near it. Buy now if you need it."
	case score >= 70:
		return QualityGreat, "Great deal! Price is well below average. Excellent time to buy."
	case score >= 50:
		return QualityGood, "Good deal. Price is below average. Consider buying now."
	case score >= 30:
		return QualityFair, "Fair price. Around average pricing. May want to wait for a better deal."
	default:
		return QualityPoor, "Overpriced. Price is above average. Wait for a price drop."
	}
}

func rounded(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d.Round(2), Valid: true}
}
