package http

import (
	"net/http"

	"rosterbot/internal/infrastructure/middleware"
	"rosterbot/internal/infrastructure/monitoring"
	"rosterbot/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter assembles the middleware chain, the callback endpoint and the
// operational endpoints. gatherer may be nil when metrics are disabled.
func NewRouter(cfg *config.Config, callback *CallbackHandler, health *monitoring.HealthChecker, gatherer prometheus.Gatherer, logger *zap.SugaredLogger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(logger),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)

	callback.SetupRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
