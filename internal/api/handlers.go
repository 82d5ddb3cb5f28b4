package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Huzefaaa2/AIOps/internal/models"
	"github.com/Huzefaaa2/AIOps/internal/services"
	"github.com/Huzefaaa2/AIOps/internal/utils"
)

type handlers struct {
	service *services.AgentService
	logger  *slog.Logger
}

func newHandlers(service *services.AgentService, logger *slog.Logger) *handlers {
	return &handlers{service: service, logger: logger}
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// analyze triggers one incident analysis. Soft failures are part of the 200
// response body; only hard dependency failures produce a non-2xx status.
func (h *handlers) analyze(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid-request", err.Error()))
		return
	}

	// Once accepted, the analysis runs to completion even if the caller
	// disconnects: remediation calls must not be cancelled mid-flight.
	ctx := context.WithoutCancel(c.Request.Context())

	response, err := h.service.Analyze(ctx, req)
	if err != nil {
		kind := utils.KindOf(err)
		c.JSON(statusForKind(kind), errorBody(string(kind), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response)
}

func statusForKind(kind utils.ErrorKind) int {
	switch kind {
	case utils.KindRetrievalUnavailable, utils.KindReasoningUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(kind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}
