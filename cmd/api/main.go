package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legal-ai-jobs/internal/config"
	"legal-ai-jobs/internal/infra/api"
	pg "legal-ai-jobs/internal/infra/db/postgres"
	"legal-ai-jobs/internal/infra/logging"
	"legal-ai-jobs/internal/infra/metrics"
	"legal-ai-jobs/internal/infra/queue"
	red "legal-ai-jobs/internal/infra/redis"
	"legal-ai-jobs/internal/infra/sched"
	"legal-ai-jobs/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed defaults)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema bootstrap failed")
	}
	jobRepo := pg.NewJobRepo(pool)

	// ---- Valkey broker ----
	redisClient := red.NewClient(&cfg.Valkey)
	defer redisClient.Close()
	broker := queue.NewBroker(redisClient, cfg.Worker.PollTimeout, logger)
	if !broker.IsConnected(ctx) {
		// Submissions will start failing with 503 until the broker is back;
		// the process still comes up so health reporting works.
		logger.Warn().Str("addr", cfg.Valkey.Addr()).Msg("broker not reachable at startup")
	}

	// ---- Use cases + HTTP ----
	dispatcherUC := usecase.NewDispatcherUseCase(jobRepo, broker, logger)
	maintenanceUC := usecase.NewMaintenanceUseCase(jobRepo, broker, logger)
	server := api.NewServer(dispatcherUC, maintenanceUC, logger)

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// ---- Scheduled retention sweep ----
	retention := sched.NewRetentionWorker(cfg.Worker.CleanupInterval, cfg.Worker.RetentionDays, maintenanceUC, logger)
	go func() { _ = retention.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()
}
