package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/tinyurl/internal/cache"
	"github.com/darkodi/tinyurl/internal/clicks"
	"github.com/darkodi/tinyurl/internal/config"
	"github.com/darkodi/tinyurl/internal/handler"
	"github.com/darkodi/tinyurl/internal/logger"
	"github.com/darkodi/tinyurl/internal/middleware"
	"github.com/darkodi/tinyurl/internal/repository"
	"github.com/darkodi/tinyurl/internal/service"
	"github.com/darkodi/tinyurl/internal/validator"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.App.Environment,
	})

	log.Info("Starting tinyurl",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"base_url", cfg.App.BaseURL,
		"db_driver", cfg.Database.Driver,
		"cache_backend", cfg.Cache.Backend,
	)

	if cfg.IsProduction() && cfg.Database.Driver == "memory" {
		log.Warn("In-memory store selected in production, mappings are lost on restart")
	}

	if err := run(cfg, log); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	// ============================================================
	// INITIALIZE STORE
	// ============================================================
	store, err := repository.Open(ctx, cfg.Database, log.Named("repository"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}()

	// ============================================================
	// INITIALIZE REDIS AND CACHE
	// ============================================================
	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient = cache.NewRedisClient(cfg.Redis)
	}

	var cacheClient redis.UniversalClient
	if redisClient != nil {
		cacheClient = redisClient
	}
	urlCache, err := cache.Open(ctx, cfg.Cache, cacheClient, log.Named("cache"))
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	// The redis cache owns the shared client; close it here otherwise.
	defer func() {
		if err := urlCache.Close(); err != nil {
			log.Error("Failed to close cache", "error", err)
		}
		if redisClient != nil && cfg.Cache.Backend != "redis" {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis client", "error", err)
			}
		}
	}()

	// ============================================================
	// INITIALIZE SERVICE
	// ============================================================
	recorder := clicks.NewRecorder(store, clicks.Config{
		Workers:   cfg.Clicks.Workers,
		QueueSize: cfg.Clicks.QueueSize,
		Timeout:   cfg.Clicks.Timeout,
	}, log)

	svc := service.NewURLService(store, urlCache, recorder, service.Options{
		BaseURL:      cfg.App.BaseURL,
		CacheTTL:     cfg.Cache.TTL,
		StoreTimeout: cfg.Database.Timeout,
		CacheTimeout: cfg.Redis.Timeout,
	}, log)
	defer svc.Close()

	// ============================================================
	// BUILD ROUTES AND MIDDLEWARE CHAIN
	// ============================================================
	var shortenMiddleware []middleware.Middleware
	if cfg.RateLimit.Enabled {
		limiter, stop := newLimiter(cfg, redisClient, log)
		defer stop()
		shortenMiddleware = append(shortenMiddleware, middleware.RateLimit(limiter, cfg.RateLimit.TrustProxy, log.Named("ratelimit")))
		log.Info("Rate limiter enabled",
			"backend", cfg.RateLimit.Backend,
			"requests", cfg.RateLimit.Requests,
			"window", cfg.RateLimit.Window,
			"trust_proxy", cfg.RateLimit.TrustProxy,
		)
	}

	h := handler.NewURLHandler(svc, validator.NewURLValidator(), log)
	router := middleware.Chain(h.SetupRoutes(shortenMiddleware...),
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", server.Addr)
		if cfg.IsDevelopment() {
			log.Info("Endpoints",
				"shorten", "POST /api/v1/shorten",
				"redirect", "GET /{code}",
				"stats", "GET /{code}/stats",
				"health", "GET /api/v1/health",
				"test", "GET /api/v1/test",
			)
		}
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				log.Error("Forced shutdown failed", "error", err)
			}
		}
		// Deferred closes run next: limiter, click drain, cache, store.
		return nil
	}
}

func newLimiter(cfg *config.Config, client *redis.Client, log *logger.Logger) (middleware.Limiter, func()) {
	if cfg.RateLimit.Backend == "redis" && client != nil {
		return middleware.NewRedisLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window), func() {}
	}

	tb := middleware.NewTokenBucket(middleware.TokenBucketConfig{
		Rate:     cfg.RateLimit.Requests,
		Burst:    cfg.RateLimit.Requests,
		Interval: cfg.RateLimit.Window,
		Cleanup:  cfg.RateLimit.Cleanup,
	}, log.Named("ratelimit"))
	return tb, tb.Stop
}
