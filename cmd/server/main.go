package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/feichai0017/policy-decoder/api/handlers"
	"github.com/feichai0017/policy-decoder/api/routes"
	"github.com/feichai0017/policy-decoder/config"
	"github.com/feichai0017/policy-decoder/internal/agent"
	docagent "github.com/feichai0017/policy-decoder/internal/agent/document"
	"github.com/feichai0017/policy-decoder/internal/agent/llm"
	"github.com/feichai0017/policy-decoder/internal/service/document"
	"github.com/feichai0017/policy-decoder/internal/session"
	"github.com/feichai0017/policy-decoder/internal/utils/validator"
	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/ratelimit"
	"github.com/feichai0017/policy-decoder/pkg/storage"
	"github.com/feichai0017/policy-decoder/pkg/worker"
)

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		panic(err)
	}

	// init logger
	outputs := []string{"stdout"}
	if cfg.Log.File != "" {
		outputs = append(outputs, cfg.Log.File)
	}
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(outputs),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// init upload storage
	uploads, err := storage.NewStorage(storage.Config{Type: storage.StorageTypeLocal, Dir: cfg.Upload.Dir}, log)
	if err != nil {
		log.Fatal("Failed to init upload storage", logger.Error(err))
	}

	sweeper := worker.NewTempSweeper(worker.Config{
		Interval: cfg.Upload.SweepInterval,
		MaxAge:   cfg.Upload.MaxAge,
	}, uploads, log)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start sweeper", logger.Error(err))
	}

	completer, err := llm.New(ctx, llm.Config{
		Provider:       cfg.LLM.Provider,
		OpenAIAPIKey:   cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.LLM.OpenAIBaseURL,
		OpenAIModel:    cfg.LLM.OpenAIModel,
		OllamaEndpoint: cfg.LLM.OllamaEndpoint,
		OllamaModel:    cfg.LLM.OllamaModel,
		MaxTokens:      cfg.LLM.MaxTokens,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        cfg.LLM.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to init completion provider", logger.Error(err))
	}

	sessions := session.NewStore(cfg.Session.Timeout, log)
	pipeline := docagent.NewPipeline(agent.NewProcessorFactory(log), uploads, log)
	docService := document.NewService(pipeline, sessions, uploads, completer, log, &document.ServiceConfig{
		Limits: docagent.Limits{
			MaxBytes:     cfg.Limits.MaxUploadBytes,
			MaxUnits:     cfg.Limits.MaxPages,
			MaxTextBytes: cfg.Limits.MaxTextBytes,
		},
	})

	limiter, redisClient := newUploadLimiter(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// init handlers
	uploadValidator := validator.NewDocumentValidator(log, validator.DefaultConfig(cfg.Limits.MaxUploadBytes))
	h := handlers.NewHandlers(docService, uploadValidator, cfg.Limits.MaxUploadBytes, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.MaxMultipartMemory = cfg.Limits.MaxUploadBytes
	routes.SetupRoutes(r, h, routes.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		UploadLimiter:  limiter,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
			stop()
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", logger.Error(err))
	}
	sessions.Close()
	log.Info("Server stopped")
}

// newUploadLimiter prefers a Redis counter shared across instances and falls
// back to an in-process limiter.
func newUploadLimiter(cfg *config.Config, log logger.Logger) (ratelimit.Limiter, *redis.Client) {
	if cfg.RateLimit.PerMinute <= 0 {
		return ratelimit.Unlimited{}, nil
	}
	memory := ratelimit.NewMemoryLimiter(cfg.RateLimit.PerMinute)
	if cfg.Redis.Addr == "" {
		return memory, nil
	}

	client, err := ratelimit.NewRedisClient(ratelimit.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, rate limiting per instance", logger.Error(err))
		return memory, nil
	}
	return &ratelimit.Fallback{
		Primary:   ratelimit.NewRedisLimiter(client, cfg.RateLimit.PerMinute, log),
		Secondary: memory,
		Logger:    log.Named("ratelimit"),
	}, client
}
