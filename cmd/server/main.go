package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/broadcast"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/database"
	"github.com/stemsi/lms-backend/internal/handler"
	"github.com/stemsi/lms-backend/internal/logger"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stemsi/lms-backend/internal/router"
	"github.com/stemsi/lms-backend/internal/service"
	"github.com/stemsi/lms-backend/internal/validator"
	"github.com/stemsi/lms-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("bus", cfg.BusBackend).
		Msg("Starting LMS Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	metrics := service.NewMetricsService()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewPostgresExamRepository(pool)
	accountRepo := repository.NewPostgresAccountRepository(pool)
	resultRepo := repository.NewPostgresResultRepository(pool)
	publishedRepo := repository.NewRedisPublishedRepository(rdb)
	resultQueue := repository.NewRedisResultQueue(rdb)

	bus := newBus(cfg, rdb, metrics, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, accountRepo, log)
	examService := service.NewExamService(examRepo, publishedRepo, accountRepo, bus, metrics, log)
	attemptService := service.NewAttemptService(examService, resultQueue, metrics, log)
	resultService := service.NewResultService(examService, resultRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, log),
		Exam:    handler.NewExamHandler(examService, log),
		Result:  handler.NewResultHandler(resultService, log),
		Student: handler.NewStudentHandler(examService, log),
		WS:      handler.NewWSHandler(examService, attemptService, metrics, log, cfg.AllowedOrigins),
		Metrics: handler.NewMetricsHandler(metrics),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	resultWorker := worker.NewResultWorker(resultQueue, resultRepo, cfg.ResultBatchSize, metrics, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		resultWorker.Start(workerCtx)
	}()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Rebuild the published subset BEFORE accepting traffic so student
	// lists never read a stale or empty index.
	if err := examService.PrewarmPublished(ctx); err != nil {
		log.Warn().Err(err).Msg("Published exam prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, metrics, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	// Request contexts derive from serveCtx; cancelling it ends hijacked
	// websocket connections, which srv.Shutdown does not track.
	serveCtx, serveCancel := context.WithCancel(ctx)
	defer serveCancel()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return serveCtx },
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. End live feeds and open attempts, then stop the worker and wait
	// for its final flush.
	serveCancel()
	bus.Close()
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// newBus picks the exam event transport from BUS_BACKEND.
func newBus(cfg *config.Config, rdb *redis.Client, metrics *service.MetricsService, log zerolog.Logger) broadcast.Bus {
	if cfg.BusBackend == config.BusBackendLocal {
		return broadcast.NewLocalBus(cfg.BusBuffer, metrics.EventDropped, log)
	}
	return broadcast.NewRedisBus(rdb, config.CacheKey.ExamEventsChannel, cfg.BusBuffer, metrics.EventDropped, log)
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
