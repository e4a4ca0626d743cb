package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	trackedPath = "/products/tracked"
	trackPath   = "/products/track"
	untrackPath = "/products/untrack"
)

// APIOptions parameterise the tracked-items API client.
type APIOptions struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
	UserAgent string
}

// API talks to the tracker backend on behalf of one authenticated user.
type API struct {
	opts    APIOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAPI constructs a tracked-items API client.
func NewAPI(opts APIOptions, logger zerolog.Logger) *API {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &API{
		opts:    opts,
		logger:  logger.With().Str("component", "tracked_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchTracked retrieves the user's tracked items with their latest prices.
func (a *API) FetchTracked(ctx context.Context) ([]TrackedItem, error) {
	payload, err := a.do(ctx, http.MethodGet, trackedPath, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Data    []TrackedItem `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode tracked items: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("tracker api rejected request: %s", envelope.Message)
	}
	return envelope.Data, nil
}

// Track adds a product to the server-side tracked set.
func (a *API) Track(ctx context.Context, productID string) error {
	return a.mutateTracking(ctx, trackPath, productID)
}

// Untrack removes a product from the server-side tracked set.
func (a *API) Untrack(ctx context.Context, productID string) error {
	return a.mutateTracking(ctx, untrackPath, productID)
}

func (a *API) mutateTracking(ctx context.Context, path, productID string) error {
	if productID == "" {
		return errors.New("productID is required")
	}

	body, err := json.Marshal(map[string]string{"productId": productID})
	if err != nil {
		return err
	}

	payload, err := a.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}

	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode tracking response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("tracker api rejected request: %s", envelope.Message)
	}
	return nil
}

func (a *API) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if a.baseURL == "" {
		return nil, errors.New("api base url required")
	}
	if a.opts.AuthToken == "" {
		return nil, errors.New("api auth token required")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.opts.AuthToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ua := strings.TrimSpace(a.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "dealwatcher/1.0")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}
	return payload, nil
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("tracker api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("tracker api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("tracker api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("tracker api error (%d)", status)
}

var _ TrackedItemsFetcher = (*API)(nil)
var _ TrackingWriter = (*API)(nil)
