package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"realty/internal/app"
	"realty/internal/config"
	"realty/internal/events"
	"realty/internal/exchange"
	"realty/internal/handler"
	"realty/internal/metrics"
	internalRedis "realty/internal/redis"
	"realty/internal/repository/postgres"
	"realty/internal/service"
)

// fallbackRates serve local development when no FX API key is configured.
var fallbackRates = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"AED": 3.6725,
	"INR": 83.2,
	"JPY": 149.5,
}

func main() {
	// A missing .env is fine; the environment wins either way.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Load configuration.
	cfg := config.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	if err := app.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	publisher := newPublisher(cfg.Kafka)
	if closer, ok := publisher.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, publisher, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

func newPublisher(cfg config.KafkaConfig) events.Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return events.NopPublisher{}
	}
	log.Printf("Publishing payment events to kafka topic %s", cfg.Topic)
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

func newRateSource(cfg config.FXConfig) exchange.Source {
	if cfg.APIKey == "" {
		log.Println("FX_API_KEY not set, using static exchange rates")
		return exchange.NewStaticSource(cfg.BaseCurrency, fallbackRates)
	}
	return exchange.NewHTTPSource(cfg.APIURL, cfg.APIKey, cfg.BaseCurrency, cfg.HTTPTimeout)
}

func newRateCache(cfg config.FXConfig, redisClient *redis.Client) service.RateCache {
	if cfg.CacheBackend == config.RateCacheRedis {
		return internalRedis.NewRateCacheStore(redisClient)
	}
	return service.NewMemoryRateCache()
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, publisher events.Publisher, cfg *config.Config) *http.Server {
	logger := slog.Default()
	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repositories.
	paymentRepo := postgres.NewPaymentRepository(db)

	// Initialize services.
	fxService := service.NewFXService(service.FXServiceDeps{
		Source:  newRateSource(cfg.FX),
		Cache:   newRateCache(cfg.FX, redisClient),
		TTL:     cfg.FX.CacheTTL,
		Metrics: m,
		Logger:  logger.With("component", "fx"),
	})
	paymentService := service.NewPaymentService(service.PaymentServiceDeps{
		PaymentRepo:  paymentRepo,
		Rates:        fxService,
		LockStore:    lockStore,
		Publisher:    publisher,
		BaseCurrency: cfg.FX.BaseCurrency,
		LockTTL:      cfg.Payments.LockTTL,
		Metrics:      m,
		Logger:       logger.With("component", "payments"),
	})

	// Initialize handlers.
	paymentHandler := handler.NewPaymentHandler(paymentService)
	fxHandler := handler.NewFXHandler(fxService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		PaymentHandler: paymentHandler,
		FXHandler:      fxHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Gatherer:       prometheus.DefaultGatherer,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
