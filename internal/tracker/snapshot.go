package tracker

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const (
	createSnapshotTableSQL = `CREATE TABLE IF NOT EXISTS tracked_items (
        product_id TEXT PRIMARY KEY,
        last_price TEXT
    );`

	loadSnapshotSQL    = `SELECT product_id, last_price FROM tracked_items;`
	clearSnapshotSQL   = `DELETE FROM tracked_items;`
	insertSnapshotSQL  = `INSERT INTO tracked_items (product_id, last_price) VALUES (?, ?);`
	trackSnapshotSQL   = `INSERT OR IGNORE INTO tracked_items (product_id, last_price) VALUES (?, NULL);`
	untrackSnapshotSQL = `DELETE FROM tracked_items WHERE product_id = ?;`
)

// SnapshotStore holds the per-product price baseline in a local sqlite file,
// so the diff survives restarts without needing the central database.
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshotStore opens (and initialises) the local snapshot database.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	if _, err := db.Exec(createSnapshotTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the baseline mapping productID to lastKnownPrice. Items tracked
// but not yet polled (NULL price) carry no baseline and are omitted.
func (s *SnapshotStore) Load(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, loadSnapshotSQL)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			productID string
			priceStr  sql.NullString
		)
		if err := rows.Scan(&productID, &priceStr); err != nil {
			return nil, err
		}
		if !priceStr.Valid {
			continue
		}
		price, err := decimal.NewFromString(priceStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot price: %w", err)
		}
		snapshot[productID] = price
	}
	return snapshot, rows.Err()
}

// Replace swaps the whole baseline for the given one. Entries absent from the
// new snapshot are dropped, not merged.
func (s *SnapshotStore) Replace(ctx context.Context, snapshot map[string]decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, clearSnapshotSQL); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	for productID, price := range snapshot {
		if _, err := tx.ExecContext(ctx, insertSnapshotSQL, productID, price.String()); err != nil {
			return fmt.Errorf("insert snapshot entry: %w", err)
		}
	}
	return tx.Commit()
}

// Track registers a product locally with no baseline; the first poll after
// tracking establishes one.
func (s *SnapshotStore) Track(ctx context.Context, productID string) error {
	if _, err := s.db.ExecContext(ctx, trackSnapshotSQL, productID); err != nil {
		return fmt.Errorf("track product: %w", err)
	}
	return nil
}

// Untrack removes a product and its baseline.
func (s *SnapshotStore) Untrack(ctx context.Context, productID string) error {
	if _, err := s.db.ExecContext(ctx, untrackSnapshotSQL, productID); err != nil {
		return fmt.Errorf("untrack product: %w", err)
	}
	return nil
}
