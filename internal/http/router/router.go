package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/inference/internal/http/handler"
	"basegraph.app/inference/internal/service"
)

type RouterConfig struct {
	Title   string
	Version string
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// GenerateMiddleware runs in front of POST /ai/generate only (rate limiting).
	GenerateMiddleware []gin.HandlerFunc
	// TrustedProxies may set X-Forwarded-For. With none, ClientIP is the
	// peer address and rate limit keys cannot be spoofed.
	TrustedProxies []string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) error {
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("setting trusted proxies: %w", err)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	openAPIHandler := handler.NewOpenAPIHandler(handler.OpenAPIInfo{
		Title:          cfg.Title,
		Version:        cfg.Version,
		HistoryEnabled: services.HistoryEnabled(),
	})
	router.GET("/openapi.json", openAPIHandler.Document)

	generateHandler := handler.NewGenerateHandler(services.Generations())
	AIRouter(router.Group("/ai"), generateHandler, AIRouterConfig{
		GenerateMiddleware: cfg.GenerateMiddleware,
		HistoryEnabled:     services.HistoryEnabled(),
	})

	return nil
}
