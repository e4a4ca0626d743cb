package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testAPI(baseURL string) *API {
	return NewAPI(APIOptions{
		BaseURL:   baseURL,
		AuthToken: "token",
		Timeout:   time.Second,
		UserAgent: "test",
	}, noopLogger())
}

func TestFetchTrackedMissingConfig(t *testing.T) {
	api := NewAPI(APIOptions{}, noopLogger())
	if _, err := api.FetchTracked(context.Background()); err == nil {
		t.Fatal("missing base url should return an error")
	}

	api = NewAPI(APIOptions{BaseURL: "http://localhost"}, noopLogger())
	if _, err := api.FetchTracked(context.Background()); err == nil {
		t.Fatal("missing auth token should return an error")
	}
}

func TestFetchTrackedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != trackedPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Fatalf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "cam-1", "name": "Camera One", "currentPrice": 1299.99},
				{"id": "lens-2", "name": "Lens Two", "currentPrice": 449},
			},
		})
	}))
	defer srv.Close()

	items, err := testAPI(srv.URL).FetchTracked(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ProductID != "cam-1" {
		t.Fatalf("unexpected product id %s", items[0].ProductID)
	}
	if !items[0].CurrentPrice.Equal(decimal.NewFromFloat(1299.99)) {
		t.Fatalf("unexpected price %s", items[0].CurrentPrice)
	}
}

func TestFetchTrackedRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "token expired"})
	}))
	defer srv.Close()

	if _, err := testAPI(srv.URL).FetchTracked(context.Background()); err == nil {
		t.Fatal("success=false should return an error")
	}
}

func TestFetchTrackedHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "unauthorized"})
	}))
	defer srv.Close()

	if _, err := testAPI(srv.URL).FetchTracked(context.Background()); err == nil {
		t.Fatal("HTTP 401 should return an error")
	}
}

func TestTrackSendsProductID(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != trackPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	if err := testAPI(srv.URL).Track(context.Background(), "cam-1"); err != nil {
		t.Fatalf("track should succeed: %v", err)
	}
	if received["productId"] != "cam-1" {
		t.Fatalf("expected productId cam-1, got %#v", received)
	}
}

func TestUntrackEmptyProductID(t *testing.T) {
	if err := testAPI("http://localhost").Untrack(context.Background(), ""); err == nil {
		t.Fatal("empty product id should return an error")
	}
}
