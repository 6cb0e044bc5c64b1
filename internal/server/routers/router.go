package routers

import (
	"github.com/gin-gonic/gin"

	"fieldaudit/internal/server/handlers/scan"
	"fieldaudit/internal/server/middlewares"
	"fieldaudit/pkg/ginx"
	"fieldaudit/pkg/logger"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(
	scanHandler *scan.ScanHandler,
	auth middlewares.AuthConfig,
	log logger.Logger,
) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "fieldaudit",
			"message": "Service is running",
		})
	})

	v1 := r.Group("/api/v1")
	{
		scans := v1.Group("/anomaly-scans", middlewares.Auth(auth, log))
		{
			scans.POST("", scanHandler.Trigger)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		ginx.NotFound(c, "route not found: "+c.Request.Method+" "+c.Request.URL.Path)
	})

	return r
}
