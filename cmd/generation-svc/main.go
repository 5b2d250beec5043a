// Package main 生成服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"z-notebook-ai-api/internal/application/generation"
	"z-notebook-ai-api/internal/config"
	"z-notebook-ai-api/internal/infrastructure/fetcher"
	"z-notebook-ai-api/internal/infrastructure/image"
	"z-notebook-ai-api/internal/infrastructure/llm"
	"z-notebook-ai-api/internal/infrastructure/messaging"
	"z-notebook-ai-api/internal/infrastructure/persistence/postgres"
	"z-notebook-ai-api/internal/infrastructure/persistence/redis"
	"z-notebook-ai-api/internal/infrastructure/search"
	"z-notebook-ai-api/internal/interfaces/http/handler"
	"z-notebook-ai-api/internal/interfaces/http/router"
	"z-notebook-ai-api/internal/workflow/chain"
	"z-notebook-ai-api/pkg/logger"
	"z-notebook-ai-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting generation-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 存储层
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to connect postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	artifactRepo := postgres.NewArtifactRepository(pgClient)
	runRepo := postgres.NewRunRepository(pgClient)
	creditGate := redis.NewCreditGate(redisClient)
	rateLimiter := redis.NewRateLimiter(redisClient)

	// 消息
	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))

	// 流水线阶段
	chatFactory := llm.NewEinoFactory(cfg)
	synthChain := chain.NewSynthesisChain(chatFactory)
	searchClient := search.NewClient(&cfg.Search)
	pageFetcher := fetcher.NewReadabilityFetcher()
	imageClient := image.NewClient(&cfg.Image)

	corpusBuilder := generation.NewCorpusBuilder(pageFetcher, generation.CorpusOptions{
		FetchTimeout:     cfg.Pipeline.FetchTimeout,
		FetchConcurrency: cfg.Pipeline.FetchConcurrency,
		PerSourceCap:     cfg.Pipeline.PerSourceCap,
		MinUsefulChars:   cfg.Pipeline.MinUsefulChars,
		CorpusCap:        cfg.Pipeline.CorpusCap,
	})
	synthesisInvoker := generation.NewSynthesisInvoker(synthChain)
	mediaStage := generation.NewMediaStage(imageClient, cfg.Pipeline.ImageConcurrency)

	orchestrator := generation.NewOrchestrator(
		creditGate,
		searchClient,
		corpusBuilder,
		synthesisInvoker,
		mediaStage,
		artifactRepo,
		producer,
		generation.Options{
			SearchResultCount: cfg.Pipeline.SearchResultCount,
			ResearchCost:      cfg.Credits.ResearchCost,
			FictionCost:       cfg.Credits.FictionCost,
		},
	)

	// HTTP 层
	handlers := router.Handlers{
		Health:     handler.NewHealthHandler(pgClient, redisClient),
		Generation: handler.NewGenerationHandler(orchestrator, runRepo, &cfg.LLM),
		Artifact:   handler.NewArtifactHandler(artifactRepo),
		Run:        handler.NewRunHandler(runRepo),
	}
	r := router.New(cfg, handlers, rateLimiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
