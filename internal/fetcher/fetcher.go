package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// TrackedItem is one entry of the user's tracked set with its latest price.
type TrackedItem struct {
	ProductID    string          `json:"id"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
}

// TrackedItemsFetcher retrieves the current tracked-items view from the backend.
type TrackedItemsFetcher interface {
	FetchTracked(ctx context.Context) ([]TrackedItem, error)
}

// TrackingWriter mutates the server-side tracked set.
type TrackingWriter interface {
	Track(ctx context.Context, productID string) error
	Untrack(ctx context.Context, productID string) error
}
