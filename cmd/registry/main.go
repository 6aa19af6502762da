package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"attestor/internal/audit"
	"attestor/internal/platform/config"
	"attestor/internal/platform/httpserver"
	"attestor/internal/platform/logger"
	"attestor/internal/registry"
	"attestor/internal/registry/handler"
	"attestor/internal/registry/metrics"
	"attestor/internal/registry/store"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/platform/middleware/auth"
	"attestor/pkg/platform/middleware/metadata"
	"attestor/pkg/platform/middleware/requestid"
	"attestor/pkg/platform/middleware/requesttime"
)

// main wires the registry node: journal, ledger replay, audit pipeline, and
// the HTTP surface. Business logic lives in internal/registry.
func main() {
	cfg := config.RegistryFromEnv()
	log := logger.New("registry")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var journal registry.Journal
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			log.Error("open journal database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("migrate journal schema", "error", err)
			os.Exit(1)
		}
		journal = pg
	} else {
		log.Warn("no postgres configured, journaling in memory; the ledger is lost on restart")
		journal = store.NewMemory()
	}

	publisher := audit.NewPublisher(cfg.AuditBuffer, log)
	sinks := []audit.Appender{audit.NewMemoryStore()}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		sinks = append(sinks, kafka)
	}
	worker := audit.NewWorker(publisher.Inbox(), log, sinks...)

	ledger, err := registry.Open(ctx, cfg.Owner, journal,
		registry.WithMetrics(metrics.New()),
		registry.WithAudit(publisher),
		registry.WithLogger(log),
	)
	if err != nil {
		log.Error("replay ledger", "error", err)
		os.Exit(1)
	}

	verifier := auth.NewVerifier([]byte(cfg.JWTSigningKey))

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)

	handler.New(ledger, log).Register(router, auth.RequirePrincipal(verifier, log))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting registry node", "addr", cfg.Addr, "owner", cfg.Owner)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("registry node stopped", "error", err)
		os.Exit(1)
	}
	log.Info("registry node stopped")
}
