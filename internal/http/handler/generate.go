package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/inference/common/id"
	"basegraph.app/inference/common/llm"
	"basegraph.app/inference/internal/http/dto"
	"basegraph.app/inference/internal/service"
)

type GenerateHandler struct {
	service service.GenerationService
}

func NewGenerateHandler(service service.GenerationService) *GenerateHandler {
	return &GenerateHandler{service: service}
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid generate request", "error", err)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	gen, err := h.service.Generate(ctx, *req.Prompt)
	if err != nil {
		_ = c.Error(err)
		if llm.IsTimeout(err) {
			c.JSON(http.StatusGatewayTimeout, dto.ErrorResponse{Error: "generation timed out"})
			return
		}
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "generation failed"})
		return
	}

	c.JSON(http.StatusOK, dto.GenerateResponse{Output: gen.Output})
}

func (h *GenerateHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()

	generationID, err := id.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid generation id"})
		return
	}

	gen, err := h.service.Get(ctx, generationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGenerationNotFound), errors.Is(err, service.ErrHistoryDisabled):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "generation not found"})
		default:
			slog.ErrorContext(ctx, "failed to get generation", "error", err, "generation_id", generationID)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get generation"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToGenerationResponse(gen))
}
