package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"walletwise/internal/clock"
	"walletwise/internal/config"
	"walletwise/internal/database"
	"walletwise/internal/events"
	"walletwise/internal/handlers"
	"walletwise/internal/idempotency"
	"walletwise/internal/logger"
	"walletwise/internal/metrics"
	"walletwise/internal/notifier"
	"walletwise/internal/repository"
	"walletwise/internal/repository/mongostore"
	"walletwise/internal/router"
	"walletwise/internal/services"
	"walletwise/internal/validator"

	_ "walletwise/internal/docs" // Import swagger docs
)

// @title           WalletWise API
// @version         1.0
// @description     WalletWise is a personal wallet ledger: income and expense tracking with duplicate detection, undoable deletes, budgets, savings goals and spending reports.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

// ledgerStore is the storage the transaction service runs against.
type ledgerStore struct {
	ledger     repository.LedgerRepository
	accounts   repository.AccountRepository
	transactor repository.Transactor
	close      func(ctx context.Context) error
	ping       handlers.HealthCheck
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	validator.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("Failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	store, err := openLedger(ctx, appConfig, dbManager)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			log.Warnw("Failed to close ledger store", "error", err)
		}
	}()

	m := metrics.New(appConfig.Env)
	clk := clock.Real{}

	checks := map[string]handlers.HealthCheck{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if store.ping != nil {
		checks["mongo"] = store.ping
	}

	var redisClient redis.Cmdable
	if appConfig.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		defer func() {
			if err := client.Close(); err != nil {
				log.Warnw("Failed to close redis client", "error", err)
			}
		}()
		redisClient = client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		log.Infow("Idempotency keys enabled", "redis_addr", appConfig.RedisAddr, "ttl", appConfig.IdempotencyTTL)
	} else {
		log.Warn("REDIS_ADDR not set, Idempotency-Key headers will be ignored")
	}

	gamificationService := services.NewGamificationService(db, clk)

	sinks := notifier.Multi{gamificationService}
	if len(appConfig.KafkaBrokers) > 0 {
		publisher, err := events.NewActivityPublisher(events.Config{
			Brokers: appConfig.KafkaBrokers,
			Topic:   appConfig.KafkaActivityTopic,
		})
		if err != nil {
			return fmt.Errorf("failed to create activity publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warnw("Failed to close activity publisher", "error", err)
			}
		}()
		sinks = append(sinks, publisher)
	}

	activity, err := notifier.NewAsync(sinks, notifier.AsyncConfig{
		Name:     "activity",
		PoolSize: appConfig.NotifierPoolSize,
	}, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := activity.Close(shutdownTimeout); err != nil {
			log.Warnw("Notifier pool did not drain", "error", err)
		}
	}()

	// Initialize services
	userService := services.NewUserService(db, store.accounts, clk)
	transactionService := services.NewTransactionService(services.TransactionDeps{
		Ledger:     store.ledger,
		Accounts:   store.accounts,
		Transactor: store.transactor,
		Notifier:   activity,
		Clock:      clk,
		Metrics:    m,
	}, services.TransactionConfig{
		DuplicateWindow:  appConfig.DuplicateWindow,
		UndoWindow:       appConfig.UndoWindow,
		DefaultPageLimit: appConfig.DefaultPageLimit,
	})
	budgetService := services.NewBudgetService(db, store.ledger, clk)
	goalService := services.NewGoalService(db, clk)
	reportService := services.NewReportService(store.ledger)

	idemCfg := idempotency.DefaultConfig()
	idemCfg.TTL = appConfig.IdempotencyTTL

	engine := router.New(router.Deps{
		Handlers: router.Handlers{
			Auth:         handlers.NewAuthHandler(userService),
			Transaction:  handlers.NewTransactionHandler(transactionService),
			Budget:       handlers.NewBudgetHandler(budgetService),
			Goal:         handlers.NewGoalHandler(goalService),
			Report:       handlers.NewReportHandler(reportService),
			Gamification: handlers.NewGamificationHandler(gamificationService),
			Admin:        handlers.NewAdminHandler(transactionService),
			Health:       handlers.NewHealthHandler(checks),
		},
		Metrics:     m,
		Redis:       redisClient,
		Idempotency: idemCfg,
		AdminAPIKey: appConfig.AdminAPIKey,
		Swagger:     appConfig.Env != "production",
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting WalletWise server on port %s (ledger backend: %s)", appConfig.Port, appConfig.LedgerBackend)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// openLedger selects the transaction store. Users, budgets and goals always
// live in Postgres; only ledger rows and wallet balances move to MongoDB.
func openLedger(ctx context.Context, cfg *config.Config, dbManager *database.Manager) (*ledgerStore, error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		db := dbManager.DB()
		return &ledgerStore{
			ledger:     repository.NewGormLedgerRepository(db),
			accounts:   repository.NewGormAccountRepository(db),
			transactor: repository.NewGormTransactor(db),
			close:      func(context.Context) error { return nil },
		}, nil

	case config.BackendMongo:
		mdb, err := database.NewMongoDB(ctx, database.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  cfg.MongoTimeout,
		})
		if err != nil {
			return nil, err
		}
		ledger := mongostore.NewLedgerRepository(mdb.Database())
		if err := ledger.EnsureIndexes(ctx); err != nil {
			_ = mdb.Close(ctx)
			return nil, fmt.Errorf("failed to create ledger indexes: %w", err)
		}
		return &ledgerStore{
			ledger:     ledger,
			accounts:   mongostore.NewAccountRepository(mdb.Database()),
			transactor: mongostore.NewTransactor(mdb.Client()),
			close:      mdb.Close,
			ping: func(ctx context.Context) error {
				return mdb.Client().Ping(ctx, nil)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q (use %s or %s)", cfg.LedgerBackend, config.BackendPostgres, config.BackendMongo)
	}
}
