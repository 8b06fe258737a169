package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	appcellar "github.com/cellar/backend/internal/application/cellar"
	"github.com/cellar/backend/internal/domain/cellar"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/infrastructure/cache"
	"github.com/cellar/backend/internal/infrastructure/config"
	"github.com/cellar/backend/internal/infrastructure/event"
	"github.com/cellar/backend/internal/infrastructure/logger"
	"github.com/cellar/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Cellar Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Production schema changes run through the SQL migrations in cmd/migrate
	if cfg.App.Env != "production" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	// Initialize repositories
	stockRepo := persistence.NewGormStockItemRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerEntryRepository(db.DB)
	orderRepo := persistence.NewGormIntakeOrderRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Root context for background workers, carrying the process logger
	rootCtx := logger.WithContext(context.Background(), log)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	lowStockHandler := appcellar.NewLowStockHandler(log)
	eventBus.Subscribe(lowStockHandler)

	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()),
	)

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Receipt dedup store (memory or redis, per config)
	idempotencyStore, err := cache.NewIdempotencyStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()
	log.Info("Idempotency store ready", zap.String("backend", cfg.Idempotency.Backend))

	// Initialize application services
	stockService := appcellar.NewStockService(scope, stockRepo, ledgerRepo, log)
	stockService.SetEventPublisher(eventBus)
	stockService.SetDefaultReserveTTL(cfg.Reservation.DefaultTTL)

	intakeService := appcellar.NewIntakeService(scope, orderRepo, idempotencyStore, log)
	intakeService.SetEventPublisher(eventBus)
	if cfg.Idempotency.TTL > 0 {
		intakeService.SetIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Enabled: true,
		})
	}

	alertService := appcellar.NewAlertService(stockRepo)
	reportLowStock(rootCtx, alertService, cellar.Quantity(cfg.Alert.DefaultThreshold), log)

	// Sweep expired reservations back to availability (if enabled)
	sweeper := appcellar.NewReservationSweepService(stockRepo, ledgerRepo, stockService, uuid.New(), log)
	if cfg.Reservation.AutoSweepEnabled {
		sweeper.Start(rootCtx, cfg.Reservation.SweepInterval)
		defer sweeper.Stop()
		log.Info("Reservation sweep started",
			zap.Duration("interval", cfg.Reservation.SweepInterval),
			zap.Duration("default_ttl", cfg.Reservation.DefaultTTL),
		)
	}

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
}

// reportLowStock logs every holding currently below its threshold, so a
// restart surfaces alerts that were raised while the process was down.
func reportLowStock(ctx context.Context, alerts *appcellar.AlertService, threshold cellar.Quantity, log *zap.Logger) {
	results, err := alerts.EvaluateLowStock(ctx, threshold, nil)
	if err != nil {
		log.Warn("Low stock evaluation failed", zap.Error(err))
		return
	}
	for _, alert := range results {
		log.Warn("stock below threshold",
			zap.String("stock_item_key", alert.Key.String()),
			zap.Uint64("available", alert.Available.Uint64()),
			zap.Uint64("threshold", alert.Threshold.Uint64()),
		)
	}
}
