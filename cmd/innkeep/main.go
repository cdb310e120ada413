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
	"golang.org/x/sync/errgroup"

	"github.com/innkeep-pms/innkeep/internal/app"
	"github.com/innkeep-pms/innkeep/internal/audit"
	"github.com/innkeep-pms/innkeep/internal/inventory"
	"github.com/innkeep-pms/innkeep/internal/masterdata"
	"github.com/innkeep-pms/innkeep/internal/menu"
	"github.com/innkeep-pms/innkeep/internal/observability"
	"github.com/innkeep-pms/innkeep/internal/platform/db"
	"github.com/innkeep-pms/innkeep/internal/procurement"
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

	auditLog := shared.NewAuditLogger(pool)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLog)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, auditLog)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo, auditLog)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	menuRepo := menu.NewRepository(pool)
	menuService := menu.NewService(menuRepo, inventoryService)
	menuHandler := menu.NewHandler(logger, menuService)

	auditService := audit.NewService(audit.NewRepository(pool))
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		InventoryHandler:   inventoryHandler,
		ProcurementHandler: procurementHandler,
		MasterDataHandler:  masterdataHandler,
		MenuHandler:        menuHandler,
		AuditHandler:       auditHandler,
		JobsHandler:        jobsHandler,
		Pool:               pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
