package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadconnect/internal/enrich"
	identitymetrics "leadconnect/internal/identity/metrics"
	"leadconnect/internal/identity/service"
	identitystore "leadconnect/internal/identity/store"
	"leadconnect/internal/platform/config"
	"leadconnect/internal/platform/httpserver"
	"leadconnect/internal/platform/logger"
	"leadconnect/internal/platform/metrics"
	"leadconnect/internal/platform/postgres"
	platformredis "leadconnect/internal/platform/redis"
	"leadconnect/internal/schema"
	"leadconnect/internal/shortlink"
	httptransport "leadconnect/internal/transport/http"
	"leadconnect/internal/workflow"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Schemas load once at startup; the server never answers requests
	// against an empty registry.
	registry, err := schema.Load(ctx, schema.NewPostgres(db))
	if err != nil {
		log.Error("schema load failed", "error", err)
		os.Exit(1)
	}
	log.Info("schemas loaded", "event_schemas", registry.Len())

	identity := service.New(identitystore.NewPostgres(db), registry,
		service.WithLogger(log),
		service.WithMetrics(identitymetrics.New()),
	)

	shortlinkOpts := []shortlink.Option{
		shortlink.WithLogger(log),
		shortlink.WithMetrics(shortlink.NewMetrics()),
	}
	if redisClient != nil {
		shortlinkOpts = append(shortlinkOpts,
			shortlink.WithCache(shortlink.NewRedisCache(redisClient.Client, cfg.TrackpageCacheTTL)))
	}
	shortlinks := shortlink.New(shortlink.NewPostgresStore(db), shortlinkOpts...)

	workflows := workflow.New(workflow.NewPostgresStore(db))

	handler := httptransport.NewHandler(identity, shortlinks, workflows,
		httptransport.WithLogger(log),
		httptransport.WithGeo(enrich.NewGeoClient(cfg.GeoBaseURL)),
		httptransport.WithHTTPMetrics(metrics.NewHTTP()),
		httptransport.WithHealthCheck(func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		}),
	)
	router := httptransport.NewRouter(handler)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting leadconnect", "addr", cfg.Addr, "redis", redisClient != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Let in-flight trackpage writes land before the process exits.
	handler.Wait()
}
