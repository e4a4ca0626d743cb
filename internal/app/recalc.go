package app

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Recalc performs one full catalog recalculation and reports the outcome.
func (a *App) Recalc(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot recalculate scores")
	}
	if closeStore != nil {
		defer closeStore()
	}

	unlock, acquired, err := store.TryAdvisoryLock(ctx, a.Config.Batch.AdvisoryLockKey)
	if err != nil {
		return err
	}
	if !acquired {
		return errors.New("another recalculation run is in progress")
	}
	defer unlock()

	result, err := a.newOrchestrator(store).RecalculateAll(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "deal scores recalculated: %d processed, %d failed\n", result.Processed, result.Failed)
	return nil
}
