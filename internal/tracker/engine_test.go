package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dealwatcher/internal/alerting"
	"dealwatcher/internal/fetcher"
	"dealwatcher/internal/storage"
)

type fakeSource struct {
	items []fetcher.TrackedItem
	err   error
}

func (f *fakeSource) FetchTracked(ctx context.Context) ([]fetcher.TrackedItem, error) {
	return f.items, f.err
}

type fakeSnapshots struct {
	baseline map[string]decimal.Decimal
	replaced int
}

func (f *fakeSnapshots) Load(ctx context.Context) (map[string]decimal.Decimal, error) {
	return f.baseline, nil
}

func (f *fakeSnapshots) Replace(ctx context.Context, snapshot map[string]decimal.Decimal) error {
	f.baseline = snapshot
	f.replaced++
	return nil
}

type recordingNotifier struct {
	notes []alerting.Notification
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	r.notes = append(r.notes, note)
	return r.err
}

type recordingAlertStore struct {
	events []storage.AlertEvent
}

func (r *recordingAlertStore) InsertAlertEvent(ctx context.Context, event storage.AlertEvent) (storage.AlertEvent, error) {
	r.events = append(r.events, event)
	return event, nil
}

func TestCycleDispatchesDropAndReplacesBaseline(t *testing.T) {
	source := &fakeSource{items: []fetcher.TrackedItem{item("A", 90)}}
	snapshots := &fakeSnapshots{baseline: baseline(map[string]float64{"A": 100})}
	notifier := &recordingNotifier{}
	alerts := &recordingAlertStore{}

	engine := NewEngine(source, snapshots, notifier, alerts, zerolog.Nop())
	if err := engine.Cycle(context.Background()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("expected one dispatched notification, got %d", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.Title != dropAlertTitle {
		t.Fatalf("unexpected title %q", note.Title)
	}
	if note.CorrelationID == "" {
		t.Fatal("notification should carry a correlation id")
	}

	if len(alerts.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(alerts.events))
	}
	if alerts.events[0].CorrelationID != note.CorrelationID {
		t.Fatal("audit event should share the notification correlation id")
	}
	if alerts.events[0].ProductID != "A" {
		t.Fatalf("unexpected product id %s", alerts.events[0].ProductID)
	}

	if snapshots.replaced != 1 {
		t.Fatalf("baseline should be replaced once, got %d", snapshots.replaced)
	}
	if !snapshots.baseline["A"].Equal(decimal.NewFromInt(90)) {
		t.Fatalf("baseline should hold the new price, got %s", snapshots.baseline["A"])
	}
}

func TestCycleReplacesBaselineWithoutEvents(t *testing.T) {
	source := &fakeSource{items: []fetcher.TrackedItem{item("B", 50)}}
	snapshots := &fakeSnapshots{baseline: baseline(map[string]float64{"A": 100})}
	notifier := &recordingNotifier{}

	engine := NewEngine(source, snapshots, notifier, nil, zerolog.Nop())
	if err := engine.Cycle(context.Background()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}

	if len(notifier.notes) != 0 {
		t.Fatalf("no baseline means no events, got %d", len(notifier.notes))
	}
	if _, stale := snapshots.baseline["A"]; stale {
		t.Fatal("snapshot replacement must drop untracked entries")
	}
	if !snapshots.baseline["B"].Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected B=50 in new baseline, got %s", snapshots.baseline["B"])
	}
}

func TestCycleFetchFailureKeepsBaseline(t *testing.T) {
	source := &fakeSource{err: errors.New("api unreachable")}
	snapshots := &fakeSnapshots{baseline: baseline(map[string]float64{"A": 100})}

	engine := NewEngine(source, snapshots, &recordingNotifier{}, nil, zerolog.Nop())
	if err := engine.Cycle(context.Background()); err == nil {
		t.Fatal("fetch failure should abort the cycle")
	}

	if snapshots.replaced != 0 {
		t.Fatal("baseline must survive a failed cycle")
	}
	if !snapshots.baseline["A"].Equal(decimal.NewFromInt(100)) {
		t.Fatal("baseline content must be untouched")
	}
}

func TestCycleDispatchFailureIsNotFatal(t *testing.T) {
	source := &fakeSource{items: []fetcher.TrackedItem{item("A", 90)}}
	snapshots := &fakeSnapshots{baseline: baseline(map[string]float64{"A": 100})}
	notifier := &recordingNotifier{err: errors.New("telegram down")}

	engine := NewEngine(source, snapshots, notifier, nil, zerolog.Nop())
	if err := engine.Cycle(context.Background()); err != nil {
		t.Fatalf("dispatch failures are fire-and-forget: %v", err)
	}
	if snapshots.replaced != 1 {
		t.Fatal("baseline should still be replaced after a failed dispatch")
	}
}
