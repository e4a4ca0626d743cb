package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pair identifies one (product, retailer) scoring target.
type Pair struct {
	ProductID string
	Retailer  string
}

// DealScore is the persisted scoring artifact, one row per (product, retailer),
// overwritten on every recalculation cycle. Price fields are invalid
// NullDecimals when the row came from an insufficient-history result.
type DealScore struct {
	ProductID      string
	Retailer       string
	Score          int
	Quality        string
	Recommendation string
	Confidence     float64
	AveragePrice   decimal.NullDecimal
	MinPrice       decimal.NullDecimal
	MaxPrice       decimal.NullDecimal
	CurrentPrice   decimal.NullDecimal
	P25            decimal.NullDecimal
	P50            decimal.NullDecimal
	P75            decimal.NullDecimal
	InStock        bool
	CalculatedAt   time.Time
}

// ProductDeal is one row of the best-deals ranking surface.
type ProductDeal struct {
	ProductID      string
	Name           string
	Brand          string
	Category       string
	ImageURL       string
	Retailer       string
	Score          int
	Quality        string
	Recommendation string
	AveragePrice   decimal.NullDecimal
	MinPrice       decimal.NullDecimal
	CurrentPrice   decimal.Decimal
	InStock        bool
	URL            string
	WatcherCount   *int64
	AvgRating      *float64
}

// BestDealsOptions filter the ranking query.
type BestDealsOptions struct {
	MinScore int
	Limit    int
	Category string
	Brand    string
}

// AlertEvent records a dispatched price-drop notification for auditing.
type AlertEvent struct {
	ID            int64
	CorrelationID string
	ProductID     string
	Title         string
	SentAt        time.Time
}
