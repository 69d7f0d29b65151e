package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/methods"
	"github.com/tillpoint/tillpoint/internal/movements"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/platform/cache"
	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/till"
	"github.com/tillpoint/tillpoint/jobs"
)

func detectorFromConfig(cfg *app.Config, logger *slog.Logger) ledger.Detector {
	detector := ledger.NewDetector()
	if cfg.DuplicateTimeTolerance > 0 {
		detector.TimeTolerance = cfg.DuplicateTimeTolerance
	}
	if cfg.DuplicateAmountTolerance != "" {
		tolerance, err := decimal.NewFromString(cfg.DuplicateAmountTolerance)
		if err != nil {
			logger.Warn("invalid duplicate amount tolerance, using default",
				slog.String("value", cfg.DuplicateAmountTolerance))
		} else {
			detector.AmountTolerance = tolerance
		}
	}
	return detector
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The registry falls back to built-in defaults without Redis.
		logger.Warn("redis unavailable, running degraded", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	methodsRepo := methods.NewRepository(pool)
	registry := methods.NewRegistry(methodsRepo, redisClient, logger)

	var enqueuer movements.Enqueuer
	if redisClient != nil {
		jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("init jobs client", slog.Any("error", err))
		} else {
			defer func() {
				if err := jobsClient.Close(); err != nil {
					logger.Warn("jobs client close", slog.Any("error", err))
				}
			}()
			enqueuer = jobsClient
		}
	}

	detector := detectorFromConfig(cfg, logger)

	movementsRepo := movements.NewRepository(pool)
	movementsService := movements.NewService(movementsRepo, registry, auditLogger, enqueuer, detector, logger)
	movementsHandler := movements.NewHandler(logger, movementsService, metrics)

	tillRepo := till.NewRepository(pool)
	tillService := till.NewService(tillRepo, movementsRepo, auditLogger, till.ServiceConfig{CashMethod: cfg.CashMethod}, logger)
	tillHandler := till.NewHandler(logger, tillService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		MovementsHandler: movementsHandler,
		TillHandler:      tillHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
