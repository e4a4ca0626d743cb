package tracker

import (
	"testing"

	"github.com/shopspring/decimal"

	"dealwatcher/internal/fetcher"
)

func item(id string, price float64) fetcher.TrackedItem {
	return fetcher.TrackedItem{ProductID: id, Name: "Item " + id, CurrentPrice: decimal.NewFromFloat(price)}
}

func baseline(entries map[string]float64) map[string]decimal.Decimal {
	prev := make(map[string]decimal.Decimal, len(entries))
	for id, price := range entries {
		prev[id] = decimal.NewFromFloat(price)
	}
	return prev
}

func TestDiffEmitsOnStrictDecrease(t *testing.T) {
	events := Diff(baseline(map[string]float64{"A": 100}), []fetcher.TrackedItem{item("A", 90)})

	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	event := events[0]
	if event.ProductID != "A" {
		t.Fatalf("unexpected product id %s", event.ProductID)
	}
	if !event.OldPrice.Equal(decimal.NewFromInt(100)) || !event.NewPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("unexpected prices: %s -> %s", event.OldPrice, event.NewPrice)
	}
	if !event.PercentDrop.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected percentDrop 10, got %s", event.PercentDrop)
	}
}

func TestDiffIgnoresEqualAndIncreasedPrices(t *testing.T) {
	prev := baseline(map[string]float64{"A": 100, "B": 50})

	if events := Diff(prev, []fetcher.TrackedItem{item("A", 100)}); len(events) != 0 {
		t.Fatalf("equal price must not emit, got %d events", len(events))
	}
	if events := Diff(prev, []fetcher.TrackedItem{item("B", 60)}); len(events) != 0 {
		t.Fatalf("increased price must not emit, got %d events", len(events))
	}
}

func TestDiffIgnoresItemsWithoutBaseline(t *testing.T) {
	events := Diff(baseline(map[string]float64{"A": 100}), []fetcher.TrackedItem{item("B", 50)})
	if len(events) != 0 {
		t.Fatalf("first observation must not emit, got %d events", len(events))
	}
}

func TestBaselineIsWholesaleReplacement(t *testing.T) {
	next := Baseline([]fetcher.TrackedItem{item("B", 50)})

	if len(next) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(next))
	}
	price, ok := next["B"]
	if !ok || !price.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected B=50, got %#v", next)
	}
	if _, stale := next["A"]; stale {
		t.Fatal("prior entries must not survive the replacement")
	}
}

func TestDiffMixedSet(t *testing.T) {
	prev := baseline(map[string]float64{"A": 100, "B": 50, "C": 75})
	current := []fetcher.TrackedItem{
		item("A", 80),
		item("B", 50),
		item("C", 76),
		item("D", 10),
	}

	events := Diff(prev, current)
	if len(events) != 1 {
		t.Fatalf("expected only the A drop, got %d events", len(events))
	}
	if events[0].ProductID != "A" {
		t.Fatalf("unexpected product id %s", events[0].ProductID)
	}
	if events[0].PercentDrop.StringFixed(1) != "20.0" {
		t.Fatalf("expected 20.0%% drop, got %s", events[0].PercentDrop.StringFixed(1))
	}
}
