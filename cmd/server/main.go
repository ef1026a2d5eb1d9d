package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombar/viralrank/internal/api"
	"github.com/zombar/viralrank/internal/app"
	"github.com/zombar/viralrank/internal/config"
	"github.com/zombar/viralrank/internal/database"
	"github.com/zombar/viralrank/internal/metrics"
	"github.com/zombar/viralrank/internal/queue"
	"github.com/zombar/viralrank/internal/tracing"
	"github.com/zombar/viralrank/pkg/logging"
)

const serviceName = "viralrank"

func main() {
	cfg, err := config.Load()

	// Setup structured logging with JSON output
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("viralrank service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Flags default to the loaded configuration
	var (
		port        = flag.String("port", cfg.Server.Port, "Server port (env: PORT)")
		dbDriver    = flag.String("db-driver", cfg.Database.Driver, "Database driver: sqlite or postgres (env: DB_DRIVER)")
		dbDSN       = flag.String("db", cfg.Database.DSN, "Database file path or DSN (env: DATABASE_DSN)")
		redisAddr   = flag.String("redis-addr", cfg.Queue.RedisAddr, "Redis address for the task queue (env: REDIS_ADDR)")
		useQueue    = flag.Bool("queue", cfg.Queue.Enabled, "Enable asynchronous ranking jobs (env: QUEUE_ENABLED)")
		concurrency = flag.Int("concurrency", cfg.Queue.Concurrency, "Worker concurrency (env: WORKER_CONCURRENCY)")
	)
	flag.Parse()
	cfg.Server.Port = *port
	cfg.Database.Driver = *dbDriver
	cfg.Database.DSN = *dbDSN
	cfg.Queue.RedisAddr = *redisAddr
	cfg.Queue.Enabled = *useQueue
	cfg.Queue.Concurrency = *concurrency

	// Initialize database
	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(context.Background()); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize metrics
	dbMetrics := metrics.NewDatabaseMetrics(serviceName, nil)
	businessMetrics := metrics.NewBusinessMetrics(serviceName, nil)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			dbMetrics.UpdateDBStats(db.Conn())
		}
	}()
	logger.Info("metrics initialized")

	backends := app.New(cfg, logger)
	newPipeline := backends.PipelineFactory()

	deps := api.Dependencies{
		Store:       db,
		NewPipeline: newPipeline,
		Scorer:      backends.Scorer,
		Defaults:    cfg.Pipeline,
		TopN:        cfg.TopN,
		Metrics:     businessMetrics,
		Gatherer:    prometheus.DefaultGatherer,
		Logger:      logger,
	}

	var worker *queue.Worker
	if cfg.Queue.Enabled {
		queueClient := queue.NewClient(queue.ClientConfig{RedisAddr: cfg.Queue.RedisAddr})
		defer queueClient.Close()
		deps.Queue = queueClient

		worker = queue.NewWorker(queue.WorkerConfig{
			RedisAddr:   cfg.Queue.RedisAddr,
			Concurrency: cfg.Queue.Concurrency,
			Logger:      logger,
			Metrics:     businessMetrics,
		}, db, newPipeline, backends.Scorer)

		go func() {
			if err := worker.Start(); err != nil {
				logger.Error("worker stopped", "error", err)
			}
		}()
	} else {
		logger.Info("task queue disabled, /api/jobs unavailable")
	}

	// Initialize API handler
	apiHandler := api.NewHandler(deps)

	// Middleware chain: tracing -> HTTP logging -> handlers
	handler := tracing.HTTPMiddleware(serviceName)(
		logging.HTTPLoggingMiddleware(logger)(apiHandler),
	)

	// Extended write timeout for synchronous LLM scoring
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("viralrank service starting",
			"port", cfg.Server.Port,
			"driver", cfg.Database.Driver,
			"queue_enabled", cfg.Queue.Enabled,
			"scorer", cfg.Scorer,
			"embedder", cfg.Embedder,
			"use_llm_scoring", cfg.Pipeline.UseLLMScoring,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if worker != nil {
		worker.Shutdown()
	}

	logger.Info("server stopped")
}
