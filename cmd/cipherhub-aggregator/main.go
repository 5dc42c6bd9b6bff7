// The aggregator is the single scheduled writer for download counters,
// the popularity view, and the public cipher index. Run one instance;
// concurrent runs are not guarded against and will double-count.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/cipherhub/cipherhub/pkg/analytics"
	"github.com/cipherhub/cipherhub/pkg/config"
	"github.com/cipherhub/cipherhub/pkg/counters"
	"github.com/cipherhub/cipherhub/pkg/observability"
	"github.com/cipherhub/cipherhub/pkg/pipeline"
	"github.com/cipherhub/cipherhub/pkg/popularity"
	"github.com/cipherhub/cipherhub/pkg/storage"
)

var (
	dbURL         = flag.String("db-url", getEnv("DATABASE_URL", "postgres://localhost/cipherhub?sslmode=disable"), "PostgreSQL connection URL")
	redisURL      = flag.String("redis-url", getEnv("CIPHERHUB_REDIS_URL", ""), "Redis URL for the popularity cache (empty disables caching)")
	schedule      = flag.String("schedule", getEnv("CIPHERHUB_AGGREGATION_SCHEDULE", "0 3 * * *"), "Cron schedule for the daily recount (default: 03:00)")
	indexSchedule = flag.String("index-schedule", getEnv("CIPHERHUB_INDEX_SCHEDULE", "0 0 * * 1"), "Cron schedule for the public cipher index rebuild (default: Monday 00:00)")
	timezone      = flag.String("timezone", getEnv("CIPHERHUB_TIMEZONE", "America/Sao_Paulo"), "Reference timezone for day boundaries and the schedules")
	eventName     = flag.String("event-name", getEnv("CIPHERHUB_DOWNLOAD_EVENT", "cipher_downloaded"), "Analytics event name to count")
	batchSize     = flag.Int("batch-size", 500, "Maximum counter increments per transaction")
	metricsPort   = flag.String("metrics-port", getEnv("CIPHERHUB_METRICS_PORT", "9091"), "Port for the /metrics listener in scheduled mode")
	logLevel      = flag.String("log-level", getEnv("CIPHERHUB_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	runOnce       = flag.Bool("run-once", false, "Run the pipeline once and exit (for testing or backfilling)")
	period        = flag.String("period", "", "Period to recount (yesterday, last_7_days, last_30_days, or YYYY-MM-DD,YYYY-MM-DD). Only used with --run-once")
)

func main() {
	flag.Parse()

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", *timezone, err)
	}

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	if err := storage.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(*logLevel), os.Stdout)

	redisClient, err := storage.ConnectRedis(config.StorageConfig{RedisURL: *redisURL})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	var cache *popularity.Cache
	if redisClient != nil {
		defer redisClient.Close()
		cache = popularity.NewCache(redisClient, popularity.DefaultCacheTTL)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	p := pipeline.New(
		analytics.NewPeriodResolver(loc, logger),
		analytics.NewQueryEngine(db),
		counters.NewApplier(db, *batchSize, logger),
		popularity.NewBuilder(db, cache, logger, metrics),
		*eventName,
		logger,
		metrics,
	)
	indexer := popularity.NewIndexer(db, logger)

	// Run once mode (for testing or backfilling)
	if *runOnce {
		target := *period
		if target == "" {
			target = analytics.PeriodYesterday
		}

		log.Printf("Running recount for period: %s", target)
		summary, err := p.RunForPeriod(context.Background(), target)
		if err != nil {
			log.Fatalf("Recount failed: %v", err)
		}

		log.Printf("Recount completed: %d ciphers updated", summary.ItemsProcessed)
		return
	}

	// Scheduled mode
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(*schedule, func() {
		log.Println("Starting daily popularity recount")

		summary, err := p.Run(context.Background())
		if err != nil {
			log.Printf("Daily recount failed: %v", err)
			return
		}
		log.Printf("Daily recount completed: %d ciphers updated", summary.ItemsProcessed)
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily recount: %v", err)
	}

	_, err = c.AddFunc(*indexSchedule, func() {
		log.Println("Starting public cipher index rebuild")

		index, err := indexer.Rebuild(context.Background())
		if err != nil {
			log.Printf("Index rebuild failed: %v", err)
			return
		}
		log.Printf("Index rebuild completed: %d public ciphers", len(index.Ciphers))
	})
	if err != nil {
		log.Fatalf("Failed to schedule index rebuild: %v", err)
	}

	metricsMux := http.NewServeMux()
	observability.RegisterMetricsEndpoint(metricsMux, registry)
	metricsServer := &http.Server{Addr: ":" + *metricsPort, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Metrics server failed: %v", err)
		}
	}()

	c.Start()
	log.Println("Cipherhub Aggregator started")
	log.Printf("Daily recount schedule: %s (%s)", *schedule, *timezone)
	log.Printf("Index rebuild schedule: %s (%s)", *indexSchedule, *timezone)
	log.Printf("Metrics listening on :%s", *metricsPort)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()
	metricsServer.Shutdown(context.Background())

	log.Println("Aggregator stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
