package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"attestor/internal/migration"
	"attestor/internal/platform/config"
	"attestor/internal/platform/logger"
	"attestor/internal/registry/client"
)

// main runs the legacy migration batch once and prints the report as JSON.
// Exit code 1 means the batch could not run or at least one entry failed;
// re-running is safe because migrated entries are skipped.
func main() {
	cfg := config.MigrateFromEnv()
	log := logger.New("migrate")

	if cfg.LegacyDSN == "" {
		log.Error("ATTESTOR_LEGACY_POSTGRES_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	legacy, err := migration.OpenPostgres(cfg.LegacyDSN)
	if err != nil {
		log.Error("open legacy store", "error", err)
		os.Exit(1)
	}
	defer legacy.Close()

	registryClient := client.NewHTTP(cfg.RegistryURL, cfg.Principal, []byte(cfg.JWTSigningKey))

	service := migration.NewService(legacy, registryClient, log,
		migration.WithValidity(cfg.Validity),
	)

	report, err := service.Run(ctx)
	if err != nil {
		log.Error("migration run failed", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error("encode report", "error", err)
		os.Exit(1)
	}
	os.Stdout.Write(append(out, '\n'))

	if report.Failed > 0 {
		os.Exit(1)
	}
}
