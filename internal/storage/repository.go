package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dealwatcher/internal/scoring"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listPriceSeriesSQL = `SELECT
        retailer,
        price,
        in_stock,
        condition,
        observed_at
    FROM prices
    WHERE product_id = $1
      AND observed_at > NOW() - ($2 * INTERVAL '1 day')
    ORDER BY observed_at ASC;`

	latestObservationSQL = `SELECT
        retailer,
        price,
        in_stock,
        condition,
        observed_at
    FROM prices
    WHERE product_id = $1
      AND retailer = $2
    ORDER BY observed_at DESC
    LIMIT 1;`

	listRecentPairsSQL = `SELECT DISTINCT product_id, retailer
    FROM prices
    WHERE observed_at > NOW() - ($1 * INTERVAL '1 day');`

	upsertDealScoreSQL = `INSERT INTO deal_scores (
        product_id,
        retailer,
        score,
        quality,
        recommendation,
        confidence,
        average_price,
        min_price,
        max_price,
        current_price,
        p25,
        p50,
        p75,
        in_stock
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
    )
    ON CONFLICT (product_id, retailer) DO UPDATE
    SET
        score          = EXCLUDED.score,
        quality        = EXCLUDED.quality,
        recommendation = EXCLUDED.recommendation,
        confidence     = EXCLUDED.confidence,
        average_price  = EXCLUDED.average_price,
        min_price      = EXCLUDED.min_price,
        max_price      = EXCLUDED.max_price,
        current_price  = EXCLUDED.current_price,
        p25            = EXCLUDED.p25,
        p50            = EXCLUDED.p50,
        p75            = EXCLUDED.p75,
        in_stock       = EXCLUDED.in_stock,
        calculated_at  = NOW();`

	refreshRankingViewSQL = `REFRESH MATERIALIZED VIEW CONCURRENTLY popular_products;`

	bestDealsBaseSQL = `SELECT
        p.id,
        p.name,
        p.brand,
        p.category,
        p.image_url,
        ds.retailer,
        ds.score,
        ds.quality,
        ds.recommendation,
        ds.average_price,
        ds.min_price,
        pr.price,
        pr.in_stock,
        pr.url,
        pp.watcher_count,
        pp.avg_rating
    FROM products p
    JOIN deal_scores ds ON ds.product_id = p.id
    JOIN LATERAL (
        SELECT price, in_stock, url
        FROM prices
        WHERE product_id = p.id
          AND retailer = ds.retailer
        ORDER BY observed_at DESC
        LIMIT 1
    ) pr ON true
    LEFT JOIN popular_products pp ON pp.id = p.id
    WHERE ds.score >= $1
      AND pr.in_stock = true`

	insertAlertEventSQL = `INSERT INTO alert_events (
        correlation_id,
        product_id,
        title
    ) VALUES (
        $1,$2,$3
    )
    RETURNING id, correlation_id, product_id, title, sent_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PriceHistoryStore exposes read access to the append-only observation log.
type PriceHistoryStore interface {
	ListPriceSeries(ctx context.Context, productID string, windowDays int) ([]scoring.Observation, error)
	LatestObservation(ctx context.Context, productID, retailer string) (*scoring.Observation, error)
	ListRecentPairs(ctx context.Context, days int) ([]Pair, error)
}

// DealScoreStore persists computed scores and serves the ranking surface.
type DealScoreStore interface {
	UpsertDealScore(ctx context.Context, score DealScore) error
	RefreshRankingView(ctx context.Context) error
	BestDeals(ctx context.Context, opts BestDealsOptions) ([]ProductDeal, error)
}

// AlertEventStore defines operations for alert auditing.
type AlertEventStore interface {
	InsertAlertEvent(ctx context.Context, event AlertEvent) (AlertEvent, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to price history, deal scores, and alert events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the lock is also released when the connection closes
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// ListPriceSeries returns the product-wide observation series inside the
// trailing window, oldest first.
func (s *Store) ListPriceSeries(ctx context.Context, productID string, windowDays int) ([]scoring.Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPriceSeriesSQL, productID, windowDays)
	if queryErr != nil {
		return nil, fmt.Errorf("list price series: %w", queryErr)
	}
	defer rows.Close()

	observations := make([]scoring.Observation, 0)
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

// LatestObservation returns the most recent observation for one retailer, or
// nil when the retailer has never been observed for the product.
func (s *Store) LatestObservation(ctx context.Context, productID, retailer string) (*scoring.Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestObservationSQL, productID, retailer)
	if queryErr != nil {
		return nil, fmt.Errorf("latest observation: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return nil, nil
	}

	obs, scanErr := scanObservation(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	return &obs, nil
}

// ListRecentPairs enumerates distinct (product, retailer) pairs observed
// within the trailing eligibility window.
func (s *Store) ListRecentPairs(ctx context.Context, days int) ([]Pair, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPairsSQL, days)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent pairs: %w", queryErr)
	}
	defer rows.Close()

	pairs := make([]Pair, 0)
	for rows.Next() {
		var pair Pair
		if err := rows.Scan(&pair.ProductID, &pair.Retailer); err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return pairs, nil
}

// UpsertDealScore persists or overwrites a computed score row.
func (s *Store) UpsertDealScore(ctx context.Context, score DealScore) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertDealScoreSQL,
		score.ProductID,
		score.Retailer,
		score.Score,
		score.Quality,
		score.Recommendation,
		score.Confidence,
		nullDecimalParam(score.AveragePrice),
		nullDecimalParam(score.MinPrice),
		nullDecimalParam(score.MaxPrice),
		nullDecimalParam(score.CurrentPrice),
		nullDecimalParam(score.P25),
		nullDecimalParam(score.P50),
		nullDecimalParam(score.P75),
		score.InStock,
	)
	if execErr != nil {
		return fmt.Errorf("upsert deal score: %w", execErr)
	}
	return nil
}

// RefreshRankingView rebuilds the popularity read-model without blocking
// concurrent readers of the previous version.
func (s *Store) RefreshRankingView(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, refreshRankingViewSQL); execErr != nil {
		return fmt.Errorf("refresh ranking view: %w", execErr)
	}
	return nil
}

// BestDeals serves the filtered, ordered ranking surface.
func (s *Store) BestDeals(ctx context.Context, opts BestDealsOptions) ([]ProductDeal, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	query, params := bestDealsQuery(opts)

	rows, queryErr := pool.Query(ctx, query, params...)
	if queryErr != nil {
		return nil, fmt.Errorf("best deals: %w", queryErr)
	}
	defer rows.Close()

	deals := make([]ProductDeal, 0)
	for rows.Next() {
		deal, scanErr := scanProductDeal(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		deals = append(deals, deal)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return deals, nil
}

// bestDealsQuery assembles the ranking query. MinScore is taken as given, so a
// zero threshold lists the whole catalog; only a non-positive limit falls back
// to the default page size.
func bestDealsQuery(opts BestDealsOptions) (string, []interface{}) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	query := bestDealsBaseSQL
	params := []interface{}{opts.MinScore}

	if opts.Category != "" {
		params = append(params, opts.Category)
		query += fmt.Sprintf(" AND p.category = $%d", len(params))
	}
	if opts.Brand != "" {
		params = append(params, "%"+opts.Brand+"%")
		query += fmt.Sprintf(" AND p.brand ILIKE $%d", len(params))
	}

	params = append(params, opts.Limit)
	query += fmt.Sprintf(" ORDER BY ds.score DESC, pp.watcher_count DESC NULLS LAST LIMIT $%d;", len(params))

	return query, params
}

// InsertAlertEvent persists an alert emission.
func (s *Store) InsertAlertEvent(ctx context.Context, event AlertEvent) (AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertEvent{}, err
	}

	row := pool.QueryRow(ctx, insertAlertEventSQL,
		event.CorrelationID,
		event.ProductID,
		event.Title,
	)

	var rec AlertEvent
	if scanErr := row.Scan(
		&rec.ID,
		&rec.CorrelationID,
		&rec.ProductID,
		&rec.Title,
		&rec.SentAt,
	); scanErr != nil {
		return AlertEvent{}, fmt.Errorf("insert alert event: %w", scanErr)
	}
	return rec, nil
}

func scanObservation(rows pgx.Rows) (scoring.Observation, error) {
	var (
		retailer   string
		priceStr   string
		inStock    bool
		condition  string
		observedAt time.Time
	)

	if err := rows.Scan(&retailer, &priceStr, &inStock, &condition, &observedAt); err != nil {
		return scoring.Observation{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return scoring.Observation{}, fmt.Errorf("parse price: %w", err)
	}

	return scoring.Observation{
		Retailer:   retailer,
		Price:      price,
		InStock:    inStock,
		Condition:  scoring.Condition(condition),
		ObservedAt: observedAt,
	}, nil
}

func scanProductDeal(rows pgx.Rows) (ProductDeal, error) {
	var (
		deal     ProductDeal
		avgStr   sql.NullString
		minStr   sql.NullString
		priceStr string
		watchers sql.NullInt64
		rating   sql.NullFloat64
	)

	if err := rows.Scan(
		&deal.ProductID,
		&deal.Name,
		&deal.Brand,
		&deal.Category,
		&deal.ImageURL,
		&deal.Retailer,
		&deal.Score,
		&deal.Quality,
		&deal.Recommendation,
		&avgStr,
		&minStr,
		&priceStr,
		&deal.InStock,
		&deal.URL,
		&watchers,
		&rating,
	); err != nil {
		return ProductDeal{}, err
	}

	var err error
	deal.AveragePrice, err = parseNullDecimal(avgStr)
	if err != nil {
		return ProductDeal{}, fmt.Errorf("parse average price: %w", err)
	}
	deal.MinPrice, err = parseNullDecimal(minStr)
	if err != nil {
		return ProductDeal{}, fmt.Errorf("parse min price: %w", err)
	}
	deal.CurrentPrice, err = decimal.NewFromString(priceStr)
	if err != nil {
		return ProductDeal{}, fmt.Errorf("parse current price: %w", err)
	}

	if watchers.Valid {
		value := watchers.Int64
		deal.WatcherCount = &value
	}
	if rating.Valid {
		value := rating.Float64
		deal.AvgRating = &value
	}

	return deal, nil
}

func parseNullDecimal(v sql.NullString) (decimal.NullDecimal, error) {
	if !v.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func nullDecimalParam(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
