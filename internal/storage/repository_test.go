package storage

import (
	"strings"
	"testing"
)

func TestBestDealsQueryKeepsZeroMinScore(t *testing.T) {
	// --min-score 0 means "list the whole catalog"; it must reach the query
	// as-is instead of being coerced to a default threshold.
	query, params := bestDealsQuery(BestDealsOptions{MinScore: 0, Limit: 10})

	if params[0] != 0 {
		t.Fatalf("expected min score 0 to be preserved, got %v", params[0])
	}
	if strings.Contains(query, "p.category") || strings.Contains(query, "p.brand") {
		t.Fatalf("no filter clauses expected: %s", query)
	}
	if params[len(params)-1] != 10 {
		t.Fatalf("expected limit 10 as the last parameter, got %v", params[len(params)-1])
	}
}

func TestBestDealsQueryFilterPlaceholders(t *testing.T) {
	query, params := bestDealsQuery(BestDealsOptions{
		MinScore: 70,
		Limit:    5,
		Category: "cameras",
		Brand:    "Sony",
	})

	if len(params) != 4 {
		t.Fatalf("expected 4 parameters, got %d", len(params))
	}
	if !strings.Contains(query, "p.category = $2") {
		t.Fatalf("category clause missing or misnumbered: %s", query)
	}
	if !strings.Contains(query, "p.brand ILIKE $3") {
		t.Fatalf("brand clause missing or misnumbered: %s", query)
	}
	if !strings.Contains(query, "LIMIT $4") {
		t.Fatalf("limit placeholder misnumbered: %s", query)
	}
	if params[1] != "cameras" || params[2] != "%Sony%" {
		t.Fatalf("unexpected filter parameters: %v", params)
	}
}

func TestBestDealsQueryDefaultsLimit(t *testing.T) {
	_, params := bestDealsQuery(BestDealsOptions{MinScore: 70})

	if params[len(params)-1] != 20 {
		t.Fatalf("expected default limit 20, got %v", params[len(params)-1])
	}
}
