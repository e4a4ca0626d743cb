package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dealwatcher/internal/scoring"
	"dealwatcher/internal/storage"
)

// Result summarises one full recalculation run.
type Result struct {
	Processed int
	Failed    int
}

// Options tune the recalculation sweep.
type Options struct {
	// LookbackDays bounds the scoring window per product.
	LookbackDays int
	// RecentWindowDays bounds the cheaper pair-eligibility window.
	RecentWindowDays int
	// ItemDelay is the pause between pairs to bound repository load.
	ItemDelay time.Duration
}

// Orchestrator drives the scoring engine across the catalog.
type Orchestrator struct {
	history storage.PriceHistoryStore
	scores  storage.DealScoreStore
	opts    Options
	logger  zerolog.Logger
}

// New constructs an Orchestrator with defaulted options.
func New(history storage.PriceHistoryStore, scores storage.DealScoreStore, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 90
	}
	if opts.RecentWindowDays <= 0 {
		opts.RecentWindowDays = 7
	}
	if opts.ItemDelay <= 0 {
		opts.ItemDelay = 10 * time.Millisecond
	}
	return &Orchestrator{
		history: history,
		scores:  scores,
		opts:    opts,
		logger:  logger.With().Str("component", "batch").Logger(),
	}
}

// CalculateDealScore scores a single (product, retailer) pair. A nil row with
// a nil error means the retailer has no current observation and the pair
// cannot be scored; a short history yields the degraded low-confidence row.
func (o *Orchestrator) CalculateDealScore(ctx context.Context, productID, retailer string) (*storage.DealScore, error) {
	series, err := o.history.ListPriceSeries(ctx, productID, o.opts.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("list price series: %w", err)
	}

	if len(series) < scoring.MinHistory {
		row := toRow(productID, retailer, scoring.Score(series, scoring.Current{}))
		return &row, nil
	}

	current, err := o.history.LatestObservation(ctx, productID, retailer)
	if err != nil {
		return nil, fmt.Errorf("latest observation: %w", err)
	}
	if current == nil {
		return nil, nil
	}

	result := scoring.Score(series, scoring.Current{Price: current.Price, InStock: current.InStock})
	row := toRow(productID, retailer, result)
	return &row, nil
}

// RecalculateAll sweeps every pair observed in the eligibility window and
// upserts its score. Per-pair failures are counted and the sweep continues;
// an enumeration or view-refresh failure aborts the run.
func (o *Orchestrator) RecalculateAll(ctx context.Context) (Result, error) {
	pairs, err := o.history.ListRecentPairs(ctx, o.opts.RecentWindowDays)
	if err != nil {
		return Result{}, fmt.Errorf("list recent pairs: %w", err)
	}

	o.logger.Info().Int("pairs", len(pairs)).Msg("recalculating deal scores")

	var result Result
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		row, err := o.calculatePair(ctx, pair)
		switch {
		case err != nil:
			result.Failed++
			o.logger.Error().Err(err).
				Str("product_id", pair.ProductID).
				Str("retailer", pair.Retailer).
				Msg("score calculation failed")
		case row == nil:
			// No current observation for this retailer; not a failure.
		default:
			if err := o.scores.UpsertDealScore(ctx, *row); err != nil {
				result.Failed++
				o.logger.Error().Err(err).
					Str("product_id", pair.ProductID).
					Str("retailer", pair.Retailer).
					Msg("score upsert failed")
			} else {
				result.Processed++
			}
		}

		if o.opts.ItemDelay > 0 && i < len(pairs)-1 {
			timer := time.NewTimer(o.opts.ItemDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if err := o.scores.RefreshRankingView(ctx); err != nil {
		return result, fmt.Errorf("refresh ranking view: %w", err)
	}

	o.logger.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("deal scores recalculated")
	return result, nil
}

// calculatePair contains a panicking calculation so a single bad pair is
// counted as a failure instead of tearing down the whole sweep.
func (o *Orchestrator) calculatePair(ctx context.Context, pair storage.Pair) (row *storage.DealScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			row = nil
			err = fmt.Errorf("score calculation panicked: %v", r)
		}
	}()
	return o.CalculateDealScore(ctx, pair.ProductID, pair.Retailer)
}

func toRow(productID, retailer string, result scoring.Result) storage.DealScore {
	return storage.DealScore{
		ProductID:      productID,
		Retailer:       retailer,
		Score:          result.Score,
		Quality:        string(result.Quality),
		Recommendation: result.Recommendation,
		Confidence:     result.Confidence,
		AveragePrice:   result.AveragePrice,
		MinPrice:       result.MinPrice,
		MaxPrice:       result.MaxPrice,
		CurrentPrice:   result.CurrentPrice,
		P25:            result.Percentiles.P25,
		P50:            result.Percentiles.P50,
		P75:            result.Percentiles.P75,
		InStock:        result.InStock,
		CalculatedAt:   time.Now().UTC(),
	}
}
