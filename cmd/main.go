package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/config"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/database/postgres"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/database/redis"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/event"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/handlers"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/repository"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/services"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/wallet"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/worker"

	"github.com/gofiber/fiber/v3"
)

func setupLogging(logDir string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}
	if absPath, err := filepath.Abs(logFile); err == nil {
		fmt.Printf("Logging to %s\n", absPath)
	}

	// slog's default handler writes through the log package, so both end up here.
	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return file, nil
}

type healthCheck func(ctx context.Context) error

func openStore(cfg *config.SettlementServiceConfig, checks map[string]healthCheck) (repository.SettlementStore, func()) {
	if cfg.Storage != config.StoragePostgres {
		log.Println("Using in-memory settlement store")
		return repository.NewMemoryStore(), func() {}
	}

	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		db = postgres.RetryConnectOnFailed(30*time.Second, cfg.PostgresCfg)
	}
	checks["postgres"] = func(ctx context.Context) error {
		if !postgres.DBStatus() {
			return fmt.Errorf("not connected")
		}
		return db.PingContext(ctx)
	}
	return repository.NewPostgresStore(db), func() { db.Close() }
}

func healthHandler(checks map[string]healthCheck) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		failing := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failing[name] = err.Error()
			}
		}
		if len(failing) > 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "degraded",
				"failing": failing,
			})
		}
		return c.Status(fiber.StatusOK).SendString("Settlement service is healthy")
	}
}

func main() {
	cfg := config.New()
	logFile, err := setupLogging(cfg.LogDir)
	if err != nil {
		log.Printf("File logging unavailable, writing to stderr: %v", err)
	} else {
		defer logFile.Close()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]healthCheck{}
	store, closeStore := openStore(cfg, checks)
	defer closeStore()

	// Event dispatch
	poolCtx, cancelPool := context.WithCancel(context.Background())
	var poolWg sync.WaitGroup
	pool := worker.NewWorkingPool(cfg.WorkerCfg.EventWorkers, cfg.WorkerCfg.EventQueueSize)
	poolWg.Add(1)
	go pool.Start(poolCtx, &poolWg)

	var publisher event.Publisher = event.LogPublisher{}
	var brokerPublisher *event.SettlementPublisher
	if cfg.RabbitMQCfg.Enabled {
		conn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
		if err != nil {
			log.Printf("RabbitMQ unavailable, settlement events go to the log only: %v", err)
		} else {
			defer conn.Close()
			brokerPublisher = event.NewSettlementPublisher(conn)
			publisher = brokerPublisher
		}
	}
	dispatcher := event.NewDispatcher(pool, publisher)

	// Idempotency
	var idempotency repository.IdempotencyStore = repository.NewMemoryIdempotencyStore(cfg.RedisCfg.IdempotencyTTL, nil)
	if cfg.RedisCfg.Enabled {
		client, err := redis.NewRedisClient(cfg.RedisCfg)
		if err != nil {
			log.Fatalf("Error connecting to Redis: %v", err)
		}
		defer client.Close()
		checks["redis"] = client.Ping
		idempotency = repository.NewRedisIdempotencyStore(client.GetClient(), cfg.RedisCfg.IdempotencyTTL)
	}

	// Settlement engine
	s := cfg.SettlementCfg
	svc := services.NewSettlementService(services.NewPolicyRegistry(nil), store, wallet.NewLedger(), dispatcher, nil)
	err = svc.Bootstrap(ctx, models.GlobalConfig{
		Owner:     models.Address(s.OwnerAddress),
		FeeWallet: models.Address(s.FeeWalletAddress),
		Fees: models.FeeSchedule{
			ProviderCommissionBps:  uint16(s.ProviderCommissionBps),
			PayerFeeBps:            uint16(s.PayerFeeBps),
			ExecutionCommissionBps: uint16(s.ExecutionCommissionBps),
		},
	})
	if err != nil {
		log.Fatalf("Failed to bootstrap settlement service: %v", err)
	}

	app := fiber.New(fiber.Config{BodyLimit: handlers.BodyLimit})
	app.Get("/checkhealth", healthHandler(checks))
	handlers.NewSettlementHandler(svc, idempotency, s.AmountDecimals, cfg.APIKey).Register(app)

	go func() {
		<-ctx.Done()
		log.Println("Shutdown signal received, stopping HTTP server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting settlement-service on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("HTTP server stopped: %v", err)
	}

	cancelPool()
	poolWg.Wait()
	processed, failed := pool.Stats()
	log.Printf("Settlement service stopped. events published=%d failed=%d dropped=%d", processed, failed, dispatcher.Dropped())
	if brokerPublisher != nil {
		log.Printf("RabbitMQ publisher stats: %v", brokerPublisher.GetStats())
	}
}
