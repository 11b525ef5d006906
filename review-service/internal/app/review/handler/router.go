package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobber/pkg/logger"
	"jobber/pkg/metrics"
)

const serviceName = "review-service"

func SetupRoutes(
	reviewHandler *ReviewHandler,
	healthHandler *HealthHandler,
	authMiddleware *AuthMiddleware,
	allowedOrigins []string,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	router.Use(logger.GinLoggerMiddleware())

	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.Use(ErrorHandler())

	router.GET("/health", healthHandler.Health)
	router.GET("/health/readiness", healthHandler.Readiness)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reviews := router.Group("/api/v1/review")
	reviews.Use(authMiddleware.Authenticate())
	{
		reviews.POST("", reviewHandler.CreateReview)
		reviews.GET("/gig/:gigId", reviewHandler.GetReviewsByGigID)
		reviews.GET("/gig/:gigId/summary", reviewHandler.GetGigRatingSummary)
		reviews.GET("/seller/:sellerId", reviewHandler.GetReviewsBySellerID)
	}

	return router
}

// corsConfig разрешает запросы от клиентского приложения
// "*" или пустой список - любые origins
func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300 * time.Second,
	}

	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = allowedOrigins
	return cfg
}
