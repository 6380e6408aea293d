package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
	"github.com/vsinha/cashew/pkg/infrastructure/ai"
	"github.com/vsinha/cashew/pkg/infrastructure/config"
	"github.com/vsinha/cashew/pkg/infrastructure/events"
	"github.com/vsinha/cashew/pkg/infrastructure/metrics"
	"github.com/vsinha/cashew/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/cashew/pkg/infrastructure/repositories/sqlite"
)

// App holds the wired services and the resources behind them
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Events   *events.InMemoryEventStore
	Plant    *services.Plant
	Location *time.Location // plant zone for days and zone-less times

	ping    func(ctx context.Context) error
	closers []func() error
}

// OpenApp connects storage, events and the summarizer described by cfg
func OpenApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics.New(),
		Events:   events.NewInMemoryEventStore(logger.Named("events")),
		Location: loc,
		ping:     func(context.Context) error { return nil },
	}

	inventoryRepo, productionRepo, err := app.openStorage()
	if err != nil {
		return nil, err
	}

	if cfg.Events.NATSURL != "" {
		if err := app.connectNATS(); err != nil {
			app.Close()
			return nil, err
		}
	}

	reorder, err := parseReorderLevels(cfg.Inventory.ReorderLevels)
	if err != nil {
		app.Close()
		return nil, err
	}

	var summarizer services.Summarizer
	if cfg.AI.APIKey != "" {
		gemini, err := ai.NewGeminiSummarizer(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			app.Close()
			return nil, err
		}
		logger.Debug("Summaries enabled", zap.String("model", gemini.Model()))
		summarizer = gemini
	}

	app.Plant = services.NewPlant(inventoryRepo, productionRepo,
		services.InventoryConfig{AllowNegative: cfg.Inventory.AllowNegative, ReorderLevels: reorder},
		summarizer,
		services.Deps{Logger: logger, Events: app.Events, Metrics: app.Metrics})
	return app, nil
}

func (a *App) openStorage() (repositories.InventoryRepository, repositories.ProductionRepository, error) {
	switch a.Config.Storage.Driver {
	case "memory":
		a.Logger.Debug("Using in-memory storage")
		return memory.NewInventoryRepository(64), memory.NewProductionRepository(), nil
	case "sqlite":
		store, err := sqlite.Open(a.Config.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		a.Logger.Debug("Opened SQLite store", zap.String("path", store.Path()))
		a.ping = store.Ping
		a.closers = append(a.closers, store.Close)
		return sqlite.NewInventoryRepository(store), sqlite.NewProductionRepository(store), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", a.Config.Storage.Driver)
	}
}

func (a *App) connectNATS() error {
	conn, err := events.ConnectNATS(a.Config.Events.NATSURL, a.Logger)
	if err != nil {
		return err
	}
	forwarder := events.NewNATSForwarder(conn, a.Config.Events.SubjectPrefix, a.Logger.Named("nats"))
	if err := a.Events.Subscribe(events.AllEventTypes, forwarder); err != nil {
		conn.Close()
		return err
	}
	a.closers = append(a.closers, func() error {
		// Drain flushes pending publishes before closing
		return conn.Drain()
	})
	a.Logger.Info("Forwarding events to NATS", zap.String("url", a.Config.Events.NATSURL))
	return nil
}

// Ping checks storage health
func (a *App) Ping(ctx context.Context) error {
	return a.ping(ctx)
}

// Close waits for event delivery and releases resources in reverse order
func (a *App) Close() error {
	a.Events.Wait()

	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	a.Logger.Sync()
	return firstErr
}

func parseReorderLevels(levels map[string]string) (map[string]entities.Quantity, error) {
	out := make(map[string]entities.Quantity, len(levels))
	for name, v := range levels {
		q, err := entities.ParseQuantity(v)
		if err != nil {
			return nil, fmt.Errorf("inventory.reorder_levels[%s]: %w", name, err)
		}
		out[name] = q
	}
	return out, nil
}

func parseShutdownTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
