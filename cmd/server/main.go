// Package main is the entry point for the site-improver API server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/internal/breaker"
	"github.com/dizid/site-improver/internal/config"
	"github.com/dizid/site-improver/internal/logger"
	"github.com/dizid/site-improver/internal/observability"
	"github.com/dizid/site-improver/internal/pipeline"
	"github.com/dizid/site-improver/internal/progress"
	"github.com/dizid/site-improver/internal/server"
	"github.com/dizid/site-improver/internal/server/handlers"
	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/internal/store/postgres"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup the record store. Without DATABASE_URL everything lives in
	// memory, which is enough for local development.
	var backend handlers.Backend
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer pg.Close()
		backend = pg
	} else {
		slogger.Warn("DATABASE_URL not set, using in-memory store")
		backend = store.NewMemory()
	}

	// Usage ledger: Redis when shared across processes, memory otherwise.
	var ledger billing.Ledger
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		ledger = billing.NewRedisLedger(client)
	} else {
		slogger.Warn("REDIS_ADDR not set, using in-memory usage ledger")
		ledger = billing.NewMemoryLedger()
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "site-improver", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	_, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Core components
	bus := progress.NewBus(slogger)
	breakers := breaker.NewRegistry(slogger, cfg.Breakers)
	usage := billing.NewEnforcer(ledger, slogger,
		billing.WithDefaultCap(cfg.SpendingCapCents),
		billing.WithAlertThresholds(cfg.AlertThresholds),
	)

	if err := observability.RegisterPlatformMetrics(bus, breakers); err != nil {
		log.Printf("Failed to register platform metrics: %v", err)
	}

	// Pipeline stage collaborators
	scraper := pipeline.NewHTTPScraper(cfg.ScraperURL)
	var fallback pipeline.Scraper
	if cfg.ScraperFallbackURL != "" {
		fallback = pipeline.NewHTTPScraper(cfg.ScraperFallbackURL)
	}
	runner := pipeline.NewRunner(
		breakers,
		scraper,
		fallback,
		pipeline.NewHTTPAnalyzer(cfg.AIURL),
		pipeline.NewHTTPGenerator(cfg.AIURL),
		pipeline.NewHTTPDeployer(cfg.DeployURL),
		backend,
		usage,
		slogger,
	)
	pool := pipeline.NewPool(runner, cfg.PipelineConcurrency, cfg.PipelineBacklog, slogger)

	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		if err := pool.Run(ctx); err != nil {
			log.Printf("Worker pool stopped: %v", err)
		}
	}()

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := server.New(server.Options{
		Addr:         addr,
		SystemSecret: cfg.SystemSecret,
	}, handlers.Deps{
		Store:             backend,
		Bus:               bus,
		Pool:              pool,
		Usage:             usage,
		Breakers:          breakers,
		Logger:            slogger,
		HeartbeatInterval: cfg.SSEHeartbeat,
	})

	go func() {
		log.Printf("site-improver API starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Stop intake and let in-flight pipeline runs finish.
	cancel()
	select {
	case <-poolDone:
	case <-time.After(30 * time.Second):
		log.Println("Timed out waiting for pipeline jobs to drain")
	}
	log.Println("Server exited properly")
}
