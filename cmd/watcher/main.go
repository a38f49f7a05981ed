package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bimakw/wallet-watcher/internal/application/services"
	"github.com/bimakw/wallet-watcher/internal/config"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/cache"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/database"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/httpclient"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/notify"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/solana"
	"github.com/bimakw/wallet-watcher/internal/presentation/handlers"
	"github.com/bimakw/wallet-watcher/internal/presentation/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting wallet-watcher",
		zap.Int("port", cfg.API.Port),
	)

	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	err = db.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Redis is optional. The Store must stay an untyped nil when it is absent.
	var remote cache.Store
	var cacheChecker handlers.HealthChecker
	redisCache, err := cache.NewRedisCache(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, using in-process metadata cache only", zap.Error(err))
	} else {
		defer redisCache.Close()
		remote = redisCache
		cacheChecker = redisCache
	}

	session := httpclient.NewSession(cfg.HTTP)
	defer session.Close()

	walletRepo := database.NewWalletRepo(db.DB())

	rpcClient := solana.NewClient(cfg.Solana, session, logger)
	heliusClient := solana.NewHeliusClient(cfg.Helius, session, logger)
	fetcher := solana.NewPortfolioFetcher(rpcClient, heliusClient, logger)
	tokenCache := cache.NewTokenCache(remote, cfg.Redis.MetadataTTL, logger)
	resolver := solana.NewMetadataResolver(rpcClient, tokenCache, logger)

	sinks := notify.NewMultiNotifier(logger)
	if cfg.Telegram.Enabled() {
		sinks.Add("telegram", notify.NewTelegramNotifier(cfg.Telegram, session, logger))
	}
	if cfg.Kafka.Enabled() {
		kafkaSink := notify.NewKafkaNotifier(cfg.Kafka, logger)
		defer kafkaSink.Close()
		sinks.Add("kafka", kafkaSink)
	}
	if sinks.Len() == 0 {
		logger.Warn("No notification sinks configured, activity will only be recorded")
	}

	ingestion := services.NewIngestionService(walletRepo, resolver, sinks, cfg.API.Concurrency, logger)
	walletService := services.NewWalletService(walletRepo, logger)
	portfolioService := services.NewPortfolioService(walletRepo, fetcher, cfg.Portfolio.CacheTTL, logger)

	webhookHandler := handlers.NewWebhookHandler(ingestion, cfg.API.WebhookSecret, cfg.API.MaxBodyBytes, logger)
	walletHandler := handlers.NewWalletHandler(walletService, logger)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, logger)
	healthHandler := handlers.NewHealthHandler(db).
		WithOptional("cache", cacheChecker).
		WithOptional("solana_rpc", rpcClient)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	webhookHandler.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))
		walletHandler.RegisterRoutes(r)
		portfolioHandler.RegisterRoutes(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	// Stop taking webhooks first, then let in-flight batches finish
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := ingestion.Shutdown(ctx); err != nil {
		logger.Error("Ingestion shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func setupLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	atomicLevel := zap.NewAtomicLevelAt(level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomicLevel)

	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotating), atomicLevel)
		core = zapcore.NewTee(core, fileCore)
	}

	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr)))
}
