package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cipherhub/cipherhub/pkg/accounts"
	"github.com/cipherhub/cipherhub/pkg/admin"
	"github.com/cipherhub/cipherhub/pkg/auth"
	"github.com/cipherhub/cipherhub/pkg/config"
	"github.com/cipherhub/cipherhub/pkg/httputil"
	"github.com/cipherhub/cipherhub/pkg/middleware"
	"github.com/cipherhub/cipherhub/pkg/observability"
	"github.com/cipherhub/cipherhub/pkg/popularity"
	"github.com/cipherhub/cipherhub/pkg/sharing"
	"github.com/cipherhub/cipherhub/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := storage.ConnectPostgres(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := storage.ConnectRedis(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var cache *popularity.Cache
	if redisClient != nil {
		cache = popularity.NewCache(redisClient, popularity.DefaultCacheTTL)
	}

	verifier, err := auth.NewTokenVerifier(db)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}
	authmw := middleware.NewAuthMiddleware(verifier)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(httputil.RequestIDMiddleware()))
	router.Use(mux.MiddlewareFunc(httputil.LoggingMiddleware(logger)))
	router.Use(mux.MiddlewareFunc(httputil.RecoveryMiddleware(logger)))
	if cfg.Observability.MetricsEnabled {
		router.Use(mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(metrics)))
	}

	accounts.NewHandlers(accounts.NewService(db, logger)).RegisterRoutes(router)
	admin.NewHandlers(admin.NewService(db, cfg.Admin.BootstrapSecret, verifier)).RegisterRoutes(router, authmw)
	sharing.NewHandlers(sharing.NewService(db)).RegisterRoutes(router, authmw)
	popularity.NewHandlers(
		popularity.NewBuilder(db, cache, logger, metrics),
		popularity.NewIndexer(db, logger),
	).RegisterRoutes(router)

	// Health and metrics on a separate listener so probes bypass auth
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Health server failed: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	go func() {
		logger.WithField("addr", server.Addr).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("API server shutdown failed")
	}
	if err := healthServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("health server shutdown failed")
	}
}
