package app

import (
	"context"
	"fmt"
	"os"

	"dealwatcher/internal/storage"
	"dealwatcher/internal/tracker"
)

// Track registers a product server-side and seeds the local snapshot entry.
// The first poll after tracking establishes the price baseline.
func (a *App) Track(ctx context.Context, productID string) error {
	if err := a.newAPI().Track(ctx, productID); err != nil {
		return err
	}

	snapshots, err := tracker.OpenSnapshotStore(a.Config.Tracker.SnapshotPath)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	if err := snapshots.Track(ctx, productID); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "tracking %s\n", productID)
	return nil
}

// Untrack removes a product server-side and drops its local baseline.
func (a *App) Untrack(ctx context.Context, productID string) error {
	if err := a.newAPI().Untrack(ctx, productID); err != nil {
		return err
	}

	snapshots, err := tracker.OpenSnapshotStore(a.Config.Tracker.SnapshotPath)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	if err := snapshots.Untrack(ctx, productID); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "stopped tracking %s\n", productID)
	return nil
}

// CheckNow runs one tracked-items poll cycle immediately.
func (a *App) CheckNow(ctx context.Context) error {
	snapshots, err := tracker.OpenSnapshotStore(a.Config.Tracker.SnapshotPath)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	engine := tracker.NewEngine(a.newAPI(), snapshots, a.newNotifier(), alertStoreOrNil(store), a.Logger)
	return engine.Cycle(ctx)
}

func alertStoreOrNil(store *storage.Store) storage.AlertEventStore {
	if store == nil {
		return nil
	}
	return store
}
