package main

import (
	"path"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-analyzer/internal/handler"
	"github.com/noah-isme/attendance-analyzer/internal/middleware"
	"github.com/noah-isme/attendance-analyzer/internal/service"
	"github.com/noah-isme/attendance-analyzer/pkg/config"
	"github.com/noah-isme/attendance-analyzer/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-analyzer/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-analyzer/pkg/middleware/requestid"
)

type routerDeps struct {
	attendance *handler.AttendanceHandler
	metrics    *handler.MetricsHandler
	metricsSvc *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(path.Clean("/" + cfg.APIPrefix))
	api.GET("/metrics/summary", deps.metrics.Summary)

	attendance := api.Group("/attendance")
	attendance.POST("/analyze", deps.attendance.Analyze)
	attendance.POST("/analyze/csv", deps.attendance.AnalyzeCSV)
	attendance.GET("/reports", deps.attendance.ListReports)
	attendance.GET("/reports/:id", deps.attendance.GetReport)
	attendance.GET("/reports/:id/export", deps.attendance.ExportReport)
	attendance.DELETE("/reports/:id", deps.attendance.DeleteReport)

	return r
}
