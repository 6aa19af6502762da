package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"attestor/internal/bridge"
	"attestor/internal/bridge/cache"
	"attestor/internal/bridge/handler"
	"attestor/internal/bridge/metrics"
	"attestor/internal/platform/config"
	"attestor/internal/platform/httpserver"
	"attestor/internal/platform/logger"
	"attestor/internal/platform/redis"
	"attestor/internal/registry/client"
	"attestor/pkg/platform/middleware/metadata"
	"attestor/pkg/platform/middleware/requestid"
	"attestor/pkg/platform/middleware/requesttime"
)

// main wires the verification bridge: registry client, verify cache, and the
// public credential API. Business logic lives in internal/bridge.
func main() {
	cfg := config.BridgeFromEnv()
	log := logger.New("bridge")

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var redisClient *goredis.Client
	if rdb != nil {
		defer rdb.Close()
		redisClient = rdb.Client
	}

	registryClient := client.NewHTTP(cfg.RegistryURL, cfg.Principal, []byte(cfg.JWTSigningKey),
		client.WithPingTimeout(cfg.PingTimeout),
	)

	service := bridge.NewService(registryClient, log, cfg.VerifyBaseURL,
		bridge.WithMetrics(metrics.New()),
		bridge.WithCache(cache.New(redisClient, cfg.CacheTTL, log)),
		bridge.WithDefaultValidity(cfg.DefaultValidity),
	)

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)

	handler.New(service, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting verification bridge",
		"addr", cfg.Addr,
		"registry_url", cfg.RegistryURL,
		"cache_enabled", rdb != nil,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("verification bridge stopped")
}
