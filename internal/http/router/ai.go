package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/inference/internal/http/handler"
)

type AIRouterConfig struct {
	GenerateMiddleware []gin.HandlerFunc
	HistoryEnabled     bool
}

func AIRouter(rg *gin.RouterGroup, h *handler.GenerateHandler, cfg AIRouterConfig) {
	generate := append(append([]gin.HandlerFunc{}, cfg.GenerateMiddleware...), h.Generate)
	rg.POST("/generate", generate...)

	if cfg.HistoryEnabled {
		rg.GET("/generations/:id", h.GetByID)
	}
}
