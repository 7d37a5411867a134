package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/config"
	"resumeStudio/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎，挂载通用中间件、健康检查与指标端点。
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics",
		middleware.MetricsTokenMiddleware(cfg.API.MetricsToken),
		gin.WrapH(metrics.Handler()),
	)

	return router
}
