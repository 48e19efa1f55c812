package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"legal-ai-jobs/internal/config"
	"legal-ai-jobs/internal/domain/ports/adapter"
	aiAdapters "legal-ai-jobs/internal/infra/adapters/ai"
	vecAdapters "legal-ai-jobs/internal/infra/adapters/vector"
	pg "legal-ai-jobs/internal/infra/db/postgres"
	"legal-ai-jobs/internal/infra/logging"
	"legal-ai-jobs/internal/infra/metrics"
	"legal-ai-jobs/internal/infra/queue"
	red "legal-ai-jobs/internal/infra/redis"
	"legal-ai-jobs/internal/infra/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop AI)")
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

	// ---- AI provider (Gemini -> OpenAI -> noop in dev) ----
	var ai adapter.AIService
	var embed adapter.Embedder
	switch {
	case cfg.AI.GeminiKey != "":
		g, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, cfg.AI.MaxTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter failed")
		}
		ai, embed = g, g
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.AI.OpenAIKey != "":
		o, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, cfg.AI.OpenAIBase)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter failed")
		}
		ai, embed = o, o
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.Runtime.Dev:
		n := aiAdapters.NewNoopAIAdapter()
		ai, embed = n, n
		logger.Warn().Msg("AI adapter: noop (dev mode)")
	default:
		logger.Fatal().Msgf("no AI provider configured: set ai.gemini_key or ai.openai_key in %s", *cfgPath)
	}

	// ---- Vector store ----
	var vector adapter.VectorStore
	if cfg.Runtime.Dev && cfg.AI.GeminiKey == "" && cfg.AI.OpenAIKey == "" {
		vector = vecAdapters.NewMemStore()
		logger.Warn().Msg("vector store: in-memory (dev mode)")
	} else {
		vector = vecAdapters.NewQdrantStore(cfg.Vector.QdrantURL, embed, logger)
		logger.Info().Str("url", cfg.Vector.QdrantURL).Msg("vector store: Qdrant")
	}

	// ---- Worker loop ----
	handlers := worker.NewHandlers(ai, vector, cfg.Vector.TopK, cfg.Vector.DefaultCollection, logger)
	loop := worker.NewLoop(broker, jobRepo, handlers.Registry(), logger)

	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
		cancel()
		<-errc
	case err := <-errc:
		if err != nil {
			logger.Fatal().Err(err).Msg("worker loop failed")
		}
	}
}
