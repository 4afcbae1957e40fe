package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"videogen/archive"
	"videogen/compose"
	"videogen/config"
	"videogen/database"
	"videogen/events"
	"videogen/handlers"
	"videogen/middleware"
	"videogen/pipeline"
	"videogen/provider"
	"videogen/retry"
	"videogen/script"
	"videogen/store"
	"videogen/upload"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Video generation service starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	jobStore := store.NewJobStore()

	opts := pipeline.Options{}

	if cfg.RedisAddr != "" {
		cache, err := database.ConnectCache(database.CacheConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err != nil {
			logger.Warn("Redis unavailable, status mirror disabled", zap.Error(err))
		} else {
			defer cache.Close()
			opts.StatusCache = store.NewStatusCache(cache)
			logger.Info("Status mirror enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := database.ConnectDB(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("Postgres unavailable, outcome archive disabled", zap.Error(err))
		} else {
			defer db.Close()
			opts.Archive = archive.NewPostgresRepo(db)
			logger.Info("Outcome archive enabled")
		}
	}

	if cfg.KafkaBrokers != "" {
		producer, err := events.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		if err != nil {
			logger.Warn("Kafka unavailable, event publishing disabled", zap.Error(err))
		} else {
			defer producer.Close()
			opts.Producer = producer
			logger.Info("Event publishing enabled", zap.String("topic", cfg.KafkaTopic))
		}
	}

	taskClient := provider.NewClient(cfg.KieBaseURL, cfg.KieAPIKey, logger)
	scriptGen := script.NewGenerator(taskClient, cfg.ScriptModel, cfg.PollInterval, logger)
	composer := compose.NewComposer(cfg.TempDir, cfg.OutputDir, cfg.CrossfadeDuration, cfg.TrimLeadIn, logger)
	uploader := upload.NewUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, logger)

	retrier := &retry.Executor{
		Logger:     logger,
		MaxRetries: cfg.MaxRetries,
		IsFatal:    provider.IsFatal,
	}
	pool := pipeline.NewPool(cfg.EncoderWorkers)

	orchestrator := pipeline.NewOrchestrator(
		jobStore, scriptGen, taskClient, composer, uploader,
		retrier, pool, cfg.PollInterval, logger, opts,
	)

	// A typed nil inside the interface would defeat the handler's nil
	// check, so only assign when the cache actually connected.
	var statusReader handlers.StatusReader
	if opts.StatusCache != nil {
		statusReader = opts.StatusCache
	}
	jobHandler := handlers.NewJobHandler(jobStore, orchestrator, statusReader, cfg.DefaultSceneCount, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/generate", jobHandler.Generate)
	mux.HandleFunc("/status/", jobHandler.Status)
	mux.HandleFunc("/download/", jobHandler.Download)
	mux.HandleFunc("/jobs/", jobHandler.Delete)
	mux.HandleFunc("/health", jobHandler.Health)
	mux.Handle("/outputs/", http.StripPrefix("/outputs/", http.FileServer(http.Dir(cfg.OutputDir))))

	handler := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	orchestrator.Wait()
	logger.Info("Shutdown complete")
}
