package tracker

import (
	"github.com/shopspring/decimal"

	"dealwatcher/internal/fetcher"
)

// DropEvent means "this product's price decreased since the last poll".
type DropEvent struct {
	ProductID   string
	Name        string
	OldPrice    decimal.Decimal
	NewPrice    decimal.Decimal
	PercentDrop decimal.Decimal
}

var decHundred = decimal.NewFromInt(100)

// Diff emits one DropEvent per tracked item whose price strictly decreased
// against the previous baseline. Items without a baseline entry never emit;
// equal or increased prices never emit.
func Diff(previous map[string]decimal.Decimal, current []fetcher.TrackedItem) []DropEvent {
	events := make([]DropEvent, 0)
	for _, item := range current {
		oldPrice, seen := previous[item.ProductID]
		if !seen {
			continue
		}
		if !item.CurrentPrice.LessThan(oldPrice) {
			continue
		}
		events = append(events, DropEvent{
			ProductID:   item.ProductID,
			Name:        item.Name,
			OldPrice:    oldPrice,
			NewPrice:    item.CurrentPrice,
			PercentDrop: oldPrice.Sub(item.CurrentPrice).Div(oldPrice).Mul(decHundred),
		})
	}
	return events
}

// Baseline builds the wholesale replacement snapshot for the next cycle.
func Baseline(current []fetcher.TrackedItem) map[string]decimal.Decimal {
	snapshot := make(map[string]decimal.Decimal, len(current))
	for _, item := range current {
		snapshot[item.ProductID] = item.CurrentPrice
	}
	return snapshot
}
