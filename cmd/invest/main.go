package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"

	cfg "github.com/sand/preipo-invest/backend/config"
	"github.com/sand/preipo-invest/backend/internal/cache"
	"github.com/sand/preipo-invest/backend/internal/events"
	"github.com/sand/preipo-invest/backend/internal/guards"
	"github.com/sand/preipo-invest/backend/internal/handlers"
	"github.com/sand/preipo-invest/backend/internal/usecases"
	"github.com/sand/preipo-invest/backend/internal/usecases/repository"
	"github.com/sand/preipo-invest/backend/internal/workers"
	"github.com/sand/preipo-invest/backend/pkg/database"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
)

func main() {
	time.Local = time.UTC

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	opts := &slog.HandlerOptions{Level: config.Log.Level}
	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Info("Starting application with configuration",
		"name", config.App.Name,
		"environment", config.App.Environment,
		"debug", config.App.Debug,
		"server_port", config.HTTP.Port,
		"currency", config.App.Currency,
		"redis_enabled", config.Redis.Addr != "",
		"kafka_enabled", len(config.Kafka.Brokers) > 0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := database.New(ctx, logger, config.DB.DatabaseURL,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
		database.Isolation(pgx.ReadCommitted),
	)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		return
	}
	defer pg.Close()

	migrationsPath := config.DB.MigrationsPath
	if migrationsPath == "" {
		workDir, _ := os.Getwd()
		migrationsPath = database.ResolveMigrationsPath(workDir)
	}
	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		return
	}

	// Repositories
	walletsRepository := repository.NewWalletsRepository(logger, pg)
	entriesRepository := repository.NewWalletTransactionsRepository(logger, pg)
	investmentsRepository := repository.NewInvestmentsRepository(logger, pg)
	acksRepository := repository.NewAcknowledgementsRepository(logger, pg)
	snapshotsRepository := repository.NewSnapshotsRepository(logger, pg)
	companiesRepository := repository.NewCompaniesRepository(logger, pg)
	usersRepository := repository.NewUsersRepository(logger, pg)
	settingsRepository := repository.NewSettingsRepository(logger, pg)

	settingsProvider := initSettingsProvider(ctx, logger, config, settingsRepository)

	publisher, closePublisher := initPublisher(logger, config)
	defer closePublisher()

	// Usecases
	ledger := usecases.NewWalletLedger(logger, pg.Transactor, walletsRepository, entriesRepository, usecases.NoBonus, config.App.Currency)
	acks := usecases.NewAcknowledgementRecorder(logger, acksRepository)
	snapshots := usecases.NewSnapshotService(logger, companiesRepository, snapshotsRepository, investmentsRepository)

	platformGuard := guards.NewPlatformSupremacyGuard(logger, companiesRepository)
	eligibilityGuard := guards.NewBuyEligibilityGuard(logger, companiesRepository, usersRepository, walletsRepository)

	investmentService := usecases.NewInvestmentService(
		logger,
		pg.Transactor,
		walletsRepository,
		investmentsRepository,
		ledger,
		snapshots,
		acks,
		settingsProvider,
		publisher,
		config.App.Currency,
		usecases.GuardStep{Guard: platformGuard, Stage: usecases.StagePlatformChecked},
		usecases.GuardStep{Guard: eligibilityGuard, Stage: usecases.StageEligibilityChecked},
	)
	comparisonService := usecases.NewComparisonService(logger, investmentsRepository, companiesRepository, snapshots)

	// Workers
	refresher := workers.NewDisclosureRefresher(
		logger,
		snapshots,
		config.Workers.DisclosureRefreshSchedule,
		time.Duration(config.Workers.DisclosureRefreshTimeout)*time.Second,
	)
	go func() {
		if err := refresher.Start(ctx); err != nil {
			logger.Error("Disclosure refresher stopped", "error", err)
		}
	}()

	// Handlers
	httpHandler := handlers.NewHTTPHandler(logger, investmentService, comparisonService, snapshots, acks, ledger, pg.Pool)

	router := mux.NewRouter()
	httpHandler.RegisterRoutes(router)

	allowedOrigins := config.HTTP.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", handlers.HeaderUserID, handlers.HeaderIdempotencyKey},
	})

	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

func initSettingsProvider(ctx context.Context, logger *slog.Logger, config *cfg.Config, repo usecases.SettingsRepository) *usecases.SettingsProvider {
	if config.Redis.Addr == "" {
		return usecases.NewSettingsProvider(logger, repo, nil)
	}

	client, err := cache.NewClient(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, settings cache disabled", "addr", config.Redis.Addr, "error", err)
		return usecases.NewSettingsProvider(logger, repo, nil)
	}

	settingsCache := cache.NewSettingsCache(logger, client, time.Duration(config.Redis.SettingsTTL)*time.Second)
	logger.Info("Settings cache enabled", "addr", config.Redis.Addr)
	return usecases.NewSettingsProvider(logger, repo, settingsCache)
}

func initPublisher(logger *slog.Logger, config *cfg.Config) (usecases.EventPublisher, func()) {
	if len(config.Kafka.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, investment events will only be logged")
		return events.NewLogPublisher(logger), func() {}
	}

	writer := events.NewWriter(config.Kafka.Brokers, config.Kafka.MaxAttempts, time.Duration(config.Kafka.WriteTimeout)*time.Second)
	publisher := events.NewKafkaPublisher(logger, writer, config.Kafka.Topic)
	logger.Info("Kafka publisher ready", "brokers", config.Kafka.Brokers, "topic", config.Kafka.Topic)

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close Kafka writer", "error", err)
		}
	}
}
