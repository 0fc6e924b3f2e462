package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoInsight/config"
	"cryptoInsight/internal/adapters/binanceclient"
	"cryptoInsight/internal/adapters/kraken"
	"cryptoInsight/internal/adapters/logger"
	"cryptoInsight/internal/adapters/memcache"
	"cryptoInsight/internal/adapters/rediscache"
	"cryptoInsight/internal/adapters/sqlite"
	"cryptoInsight/internal/api"
	"cryptoInsight/internal/app"
	"cryptoInsight/internal/marketdata"
	"cryptoInsight/internal/ports"
	"cryptoInsight/internal/prediction"
	"cryptoInsight/internal/scheduler"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, syncLogger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer syncLogger()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{
		"level":  cfg.LogLevel.String(),
		"format": cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Market Data Source
	source, err := newSource(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize market data source")
		log.Fatalf("FATAL: Failed to initialize market data source: %v", err)
	}
	fetcher, err := marketdata.NewFetcher(marketdata.Config{Source: source, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize fetcher: %v", err)
	}
	appLogger.Info(ctx, "Market data source initialized", map[string]interface{}{"provider": source.Name()})

	// 4. Initialize Bar Cache
	cache, purger, closeCache, err := newCache(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize bar cache")
		log.Fatalf("FATAL: Failed to initialize bar cache: %v", err)
	}
	defer func() {
		if err := closeCache(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing bar cache")
		}
	}()
	bars := marketdata.NewCachedFetcher(fetcher, cache, cfg.CacheTTL, appLogger)
	appLogger.Info(ctx, "Bar cache initialized", map[string]interface{}{"backend": cfg.CacheBackend, "ttl": cfg.CacheTTL.String()})

	// 5. Initialize Prediction Client
	registry, err := prediction.LoadRegistry(cfg.PredictionConfig)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load prediction registry")
		log.Fatalf("FATAL: Failed to load prediction registry: %v", err)
	}
	predictor, err := prediction.NewClient(prediction.Config{
		Registry:   registry,
		Logger:     appLogger,
		MaxRetries: prediction.DefaultMaxRetries,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize prediction client: %v", err)
	}

	// 6. Initialize Application Service
	dashboard, err := app.NewDashboardService(app.Config{
		Bars:      bars,
		Predictor: predictor,
		Refresher: bars,
		Logger:    appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize dashboard service")
		log.Fatalf("FATAL: Failed to initialize dashboard service: %v", err)
	}

	// 7. Start the Scheduler
	sched, err := scheduler.New(ctx, scheduler.Config{
		Logger:    appLogger,
		Predictor: predictor,
		Refresher: bars,
		Purger:    purger,
		Coins:     marketdata.Coins,
		Ranges:    marketdata.Ranges,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize scheduler: %v", err)
	}
	if err := sched.Register(cfg.PrewarmCron); err != nil {
		log.Fatalf("FATAL: Failed to register scheduler job: %v", err)
	}
	sched.Start()
	defer sched.Stop()
	if cfg.PrewarmOnStart {
		go sched.RunNow()
	}

	// 8. Start the HTTP Server
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(api.NewDashboardHandler(dashboard, appLogger), appLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info(ctx, "Starting HTTP server", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(ctx, err, "HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), err, "Error shutting down HTTP server")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}

func newLogger(cfg *config.Config) (ports.Logger, func(), error) {
	if cfg.LogFormat == config.LogFormatJSON {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return zl, func() { _ = zl.Sync() }, nil
	}
	return logger.NewStdLogger(cfg.LogLevel), func() {}, nil
}

func newSource(cfg *config.Config, appLogger ports.Logger) (ports.RawBarSource, error) {
	if cfg.Provider == config.ProviderBinance {
		return binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Timeout:    cfg.HTTPTimeout,
			Logger:     appLogger,
		})
	}
	return kraken.New(kraken.Config{
		BaseURL: cfg.KrakenBaseURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  appLogger,
	})
}

func newCache(ctx context.Context, cfg *config.Config, appLogger ports.Logger) (ports.BarCache, scheduler.Purger, func() error, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		c, err := rediscache.New(ctx, rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   appLogger,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return c, nil, c.Close, nil
	case config.CacheSQLite:
		c, err := sqlite.NewCache(sqlite.Config{DBPath: cfg.CacheDBPath, Logger: appLogger})
		if err != nil {
			return nil, nil, nil, err
		}
		return c, c, c.Close, nil
	default:
		c := memcache.New(nil)
		return c, c, func() error { return nil }, nil
	}
}
