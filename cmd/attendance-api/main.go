package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/attendance-analyzer/api/swagger"
	"github.com/noah-isme/attendance-analyzer/internal/handler"
	"github.com/noah-isme/attendance-analyzer/internal/repository"
	"github.com/noah-isme/attendance-analyzer/internal/service"
	"github.com/noah-isme/attendance-analyzer/migrations"
	"github.com/noah-isme/attendance-analyzer/pkg/cache"
	"github.com/noah-isme/attendance-analyzer/pkg/config"
	"github.com/noah-isme/attendance-analyzer/pkg/database"
	"github.com/noah-isme/attendance-analyzer/pkg/jobs"
	"github.com/noah-isme/attendance-analyzer/pkg/logger"
)

// @title Attendance Analyzer API
// @version 1.0.0
// @description Per-subject attendance analytics with threshold projections
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	deps := map[string]handler.Pinger{}

	var reportRepo *repository.AttendanceReportRepository
	if cfg.History.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()

		if err := database.Migrate(cfg.Database, migrations.FS); err != nil {
			return err
		}
		reportRepo = repository.NewAttendanceReportRepository(db)
		deps["postgres"] = reportRepo
	}

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// History still works without the cache.
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client)
			defer cacheRepo.Close()
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
			deps["redis"] = cacheRepo
		}
	}

	svcCfg := service.AttendanceServiceConfig{
		Thresholds:     cfg.Attendance.Thresholds,
		MaxRows:        cfg.Attendance.MaxRows,
		HistoryEnabled: cfg.History.Enabled,
		CacheTTL:       cfg.Cache.TTL,
	}
	var attendanceSvc *service.AttendanceService
	if reportRepo != nil {
		attendanceSvc = service.NewAttendanceService(reportRepo, cacheSvc, metrics, validator.New(), logr, svcCfg)
	} else {
		attendanceSvc = service.NewAttendanceService(nil, nil, metrics, validator.New(), logr, svcCfg)
	}

	var queue *jobs.Queue
	if attendanceSvc.HistoryEnabled() {
		queue = jobs.NewQueue("attendance-history", attendanceSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.History.Workers,
			MaxRetries: cfg.History.MaxRetries,
			RetryDelay: cfg.History.RetryDelay,
			Logger:     logr,
		})
		queue.Start(context.Background())
		attendanceSvc.SetDispatcher(queue)
	}

	router := newRouter(cfg, logr, routerDeps{
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		metrics:    handler.NewMetricsHandler(metrics, deps),
		metricsSvc: metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("history", attendanceSvc.HistoryEnabled()),
			zap.Bool("cache", cacheSvc.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	if queue != nil {
		if err := queue.Stop(shutdownCtx); err != nil {
			logr.Error("history queue shutdown", zap.Error(err))
		}
	}
	logr.Info("server stopped")
	return nil
}
