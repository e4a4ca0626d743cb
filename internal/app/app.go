package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"dealwatcher/internal/alerting"
	"dealwatcher/internal/batch"
	"dealwatcher/internal/config"
	"dealwatcher/internal/fetcher"
	"dealwatcher/internal/service"
	"dealwatcher/internal/storage"
	"dealwatcher/internal/tracker"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newOrchestrator(store *storage.Store) *batch.Orchestrator {
	return batch.New(store, store, batch.Options{
		LookbackDays:     a.Config.Batch.LookbackDays,
		RecentWindowDays: a.Config.Batch.RecentWindowDays,
		ItemDelay:        a.Config.Batch.ItemDelay,
	}, a.Logger)
}

func (a *App) newAPI() *fetcher.API {
	return fetcher.NewAPI(fetcher.APIOptions{
		BaseURL:   a.Config.API.BaseURL,
		AuthToken: a.Config.API.AuthToken,
		Timeout:   a.Config.API.RequestTimeout,
		UserAgent: a.Config.API.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// Run executes the long-running recalculation and tracking service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var orchestrator *batch.Orchestrator
	var locker storage.AdvisoryLocker
	if store != nil {
		orchestrator = a.newOrchestrator(store)
		locker = store
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; score recalculation disabled")
	}

	var engine *tracker.Engine
	if a.Config.API.AuthToken != "" {
		snapshots, err := tracker.OpenSnapshotStore(a.Config.Tracker.SnapshotPath)
		if err != nil {
			return err
		}
		defer snapshots.Close()

		var alerts storage.AlertEventStore
		if store != nil {
			alerts = store
		}
		engine = tracker.NewEngine(a.newAPI(), snapshots, a.newNotifier(), alerts, a.Logger)
	} else {
		a.Logger.Warn().Msg("api.auth_token not configured; tracked-items polling disabled")
	}

	svc := service.New(a.Config, orchestrator, engine, locker, a.Logger)

	a.Logger.Info().Msg("starting dealwatcher service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("dealwatcher service stopped")
	return nil
}

// ScoreOptions configure the one-off score command.
type ScoreOptions struct {
	ProductID string
	Retailer  string
}

// DealsOptions configure the best-deals command.
type DealsOptions struct {
	MinScore int
	Limit    int
	Category string
	Brand    string
}

// ExportOptions hold parameters for exporting a product's price history.
type ExportOptions struct {
	ProductID string
	Days      int
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
