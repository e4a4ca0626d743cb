package tracker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dealwatcher/internal/alerting"
	"dealwatcher/internal/fetcher"
	"dealwatcher/internal/storage"
)

const dropAlertTitle = "Price Drop Alert"

// Snapshots abstracts the local baseline store consumed by the engine.
type Snapshots interface {
	Load(ctx context.Context) (map[string]decimal.Decimal, error)
	Replace(ctx context.Context, snapshot map[string]decimal.Decimal) error
}

// Engine runs the per-cycle tracked-items diff and drives alert dispatch.
type Engine struct {
	source    fetcher.TrackedItemsFetcher
	snapshots Snapshots
	notifier  alerting.Notifier
	alerts    storage.AlertEventStore
	logger    zerolog.Logger
}

// NewEngine wires the diff engine. notifier and alerts may be nil; dispatch
// and auditing are then skipped.
func NewEngine(source fetcher.TrackedItemsFetcher, snapshots Snapshots, notifier alerting.Notifier, alerts storage.AlertEventStore, logger zerolog.Logger) *Engine {
	return &Engine{
		source:    source,
		snapshots: snapshots,
		notifier:  notifier,
		alerts:    alerts,
		logger:    logger.With().Str("component", "tracker").Logger(),
	}
}

// Cycle fetches the tracked items, diffs them against the last baseline,
// dispatches one notification per drop, and replaces the baseline wholesale.
// A fetch or load failure aborts the cycle with the baseline untouched, so the
// next attempt still has its comparison state. Dispatch is fire-and-forget.
func (e *Engine) Cycle(ctx context.Context) error {
	items, err := e.source.FetchTracked(ctx)
	if err != nil {
		return fmt.Errorf("fetch tracked items: %w", err)
	}

	previous, err := e.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	events := Diff(previous, items)
	for _, event := range events {
		e.dispatch(ctx, event)
	}

	if err := e.snapshots.Replace(ctx, Baseline(items)); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	e.logger.Info().
		Int("tracked", len(items)).
		Int("drops", len(events)).
		Msg("price check complete")
	return nil
}

func (e *Engine) dispatch(ctx context.Context, event DropEvent) {
	correlationID := uuid.NewString()

	note := alerting.Notification{
		Title:         dropAlertTitle,
		Body:          renderDropBody(event),
		CorrelationID: correlationID,
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, note); err != nil {
			e.logger.Error().Err(err).
				Str("product_id", event.ProductID).
				Str("correlation_id", correlationID).
				Msg("failed to dispatch alert")
		}
	}

	if e.alerts != nil {
		record := storage.AlertEvent{
			CorrelationID: correlationID,
			ProductID:     event.ProductID,
			Title:         note.Title,
		}
		if _, err := e.alerts.InsertAlertEvent(ctx, record); err != nil {
			e.logger.Error().Err(err).
				Str("product_id", event.ProductID).
				Msg("failed to persist alert event")
		}
	}
}

func renderDropBody(event DropEvent) string {
	return fmt.Sprintf("%s\nWas: $%s -> Now: $%s (%s%% off)",
		event.Name,
		event.OldPrice.StringFixed(2),
		event.NewPrice.StringFixed(2),
		event.PercentDrop.StringFixed(1),
	)
}
