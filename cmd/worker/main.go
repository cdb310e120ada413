package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/innkeep-pms/innkeep/internal/app"
	"github.com/innkeep-pms/innkeep/internal/inventory"
	"github.com/innkeep-pms/innkeep/internal/masterdata"
	"github.com/innkeep-pms/innkeep/internal/platform/cache"
	"github.com/innkeep-pms/innkeep/internal/platform/db"
	"github.com/innkeep-pms/innkeep/internal/shared"
	"github.com/innkeep-pms/innkeep/jobs"
)

func main() {
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLog := shared.NewAuditLogger(pool)
	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLog)
	masterdataService := masterdata.NewService(masterdata.NewRepository(pool), auditLog)
	marker := cache.NewAlertMarker(redisClient, cfg.AlertSuppressTTL)

	sweepJob := jobs.NewExpirySweepJob(inventoryService, masterdataService, logger)
	lowStockJob := jobs.NewLowStockScanJob(inventoryService, marker, logger)

	sweepTask, err := jobs.NewExpirySweepTask(jobs.ExpirySweepPayload{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	lowStockTask, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{})
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExpirySweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExpirySweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.LowStockScanCron, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
