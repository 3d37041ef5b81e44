package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"realty/internal/handler"
	"realty/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler *handler.PaymentHandler
	FXHandler      *handler.FXHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	Gatherer       prometheus.Gatherer
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.CreatePayment)
			payments.POST("/webhook", deps.PaymentHandler.Webhook)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
			payments.POST("/:id/complete", deps.PaymentHandler.CompletePayment)
			payments.POST("/:id/fail", deps.PaymentHandler.FailPayment)
			payments.POST("/:id/refund", deps.PaymentHandler.RefundPayment)
		}

		// User routes.
		v1.GET("/users/:userId/payments", deps.PaymentHandler.ListUserPayments)

		// FX routes.
		fx := v1.Group("/fx")
		{
			fx.GET("/rate", deps.FXHandler.GetRate)
			fx.GET("/convert", deps.FXHandler.Convert)
		}
	}

	return router
}
