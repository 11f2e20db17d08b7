package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esports_v1/ingestion/internal/cache"
	"esports_v1/ingestion/internal/client"
	"esports_v1/ingestion/internal/config"
	"esports_v1/ingestion/internal/logging"
	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/predictor"
	"esports_v1/ingestion/internal/repository"
	"esports_v1/ingestion/internal/scheduler"
	"esports_v1/ingestion/internal/syncer"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()
	level := logging.Setup(cfg.AppEnv, cfg.LogLevel)

	log.Info().Msg("Starting esports ingestion worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", level.String()).
		Strs("games", cfg.Games).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	if cfg.AutoMigrate {
		if err := repository.MigrateUp(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	// Initialize database connection
	db, err := repository.NewDatabase(ctx, repository.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Initialize PandaScore client
	api := client.NewClient(
		cfg.PandaScoreBaseURL,
		cfg.PandaScoreToken,
		cfg.PandaScoreTimeout,
		cfg.PandaScoreMaxRetries,
	)
	log.Info().Str("base_url", cfg.PandaScoreBaseURL).Msg("PandaScore client initialized")

	engineOpts := []syncer.Option{syncer.WithPlayerDelay(cfg.PlayerSyncDelay)}

	// Redis is optional: without it rosters are fetched every time
	if cfg.RedisEnabled() {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer redisCache.Close()
			engineOpts = append(engineOpts, syncer.WithRosterCache(cache.NewRosterCache(redisCache, cfg.RosterCacheTTL)))
			log.Info().Msg("Redis cache connected")
		}
	}

	syncEngine := syncer.NewEngine(db, api, engineOpts...)
	predictEngine := predictor.NewEngine(db)

	// Start metrics HTTP server
	var metricsServer *http.Server
	if cfg.EnableMetrics {
		metricsServer = newMetricsServer(cfg.MetricsPort, db)
		go func() {
			log.Info().Int("port", cfg.MetricsPort).Msg("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Update uptime and pool metrics
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				db.RecordPoolStats()
			case <-ctx.Done():
				return
			}
		}
	}()

	sched := scheduler.NewScheduler(cfg, syncEngine, predictEngine)

	// Run initial sync if enabled
	if cfg.InitialSyncEnabled {
		log.Info().Msg("Running initial data sync...")
		sched.RunAll(ctx)
		log.Info().Msg("Initial sync completed")
	}

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	if cfg.EnableScheduler {
		log.Info().Msg("Shutting down scheduler...")
		sched.Stop()
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	log.Info().Msg("Worker shutdown complete")
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// newMetricsServer serves Prometheus metrics and a health check backed by the store
func newMetricsServer(port int, db healthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler(db))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(db healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Health(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}
}
