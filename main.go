package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"api-gateway/internal/common/logging"
	"api-gateway/internal/config"
	"api-gateway/internal/handlers"
	"api-gateway/internal/metrics"
	"api-gateway/internal/middleware"
	"api-gateway/internal/ratelimit"
	"api-gateway/internal/redis"
	"api-gateway/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger()
	defer logging.MustSync()

	limit, fellBack := ratelimit.ParseLimitOrDefault(cfg.RateLimit)
	if fellBack {
		logging.Warn("unparseable RATE_LIMIT, using default",
			logging.String("configured", cfg.RateLimit),
			logging.String("default", limit.String()),
		)
	}

	// The distributed tier needs a reachable store at startup; anything
	// else begins on the in-process tier.
	var store *redis.Client
	if cfg.RateLimitEnabled && cfg.RedisAddress != "" {
		db, _ := strconv.Atoi(cfg.RedisDB)
		poolSize, _ := strconv.Atoi(cfg.RedisPoolSize)

		client, err := redis.NewClient(&redis.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       db,
			PoolSize: poolSize,
		})
		if err != nil {
			logging.Warn("rate limit store unreachable at startup, using in-process limiting",
				logging.Err(err),
				logging.String("address", cfg.RedisAddress),
			)
		} else {
			store = client
			defer store.Close()
		}
	}

	m := metrics.New(nil)

	limiter := ratelimit.New(ratelimit.Config{
		Limit:       limit,
		Enabled:     cfg.RateLimitEnabled,
		Store:       store,
		ExemptPaths: cfg.ExemptPathList(),
		OnDegrade:   func() { m.Degradations.Inc() },
	})

	h := handlers.New(limiter)

	router := mux.NewRouter()
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.HandleFunc("/api/public/version", h.VersionInfo).Methods("GET")
	router.HandleFunc("/api/echo", h.Echo).Methods("POST", "OPTIONS")

	// The pipeline order is fixed: tracer outermost, then classification,
	// then the error boundary, then admission.
	chain := middleware.Chain(router, middleware.Pipeline(limiter, m, cfg.ExemptPathList())...)

	srv := server.New(chain, cfg.Port, cfg.TLSCert, cfg.TLSKey)
	srv.Start()
	logging.Info("gateway started",
		logging.String("port", cfg.Port),
		logging.String("rate_limit", limit.String()),
		logging.String("ratelimit_tier", limiter.Tier().String()),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("forced shutdown", err)
	}
}
