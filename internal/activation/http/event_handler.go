// Package http provides the HTTP intake for device certificate events.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SuYehTarn/jitr/internal/activation/http/dto"
	activationUseCase "github.com/SuYehTarn/jitr/internal/activation/usecase"
	"github.com/SuYehTarn/jitr/internal/httputil"
	customValidation "github.com/SuYehTarn/jitr/internal/validation"
)

// EventHandler serves the certificate event intake.
type EventHandler struct {
	pipelineUseCase activationUseCase.PipelineUseCase
	logger          *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(useCase activationUseCase.PipelineUseCase, logger *slog.Logger) *EventHandler {
	return &EventHandler{pipelineUseCase: useCase, logger: logger}
}

// CertificateHandler drives one certificate event to a terminal state.
// POST /events/certificate - Returns 200 OK with the resolution, also when
// the event is suppressed.
func (h *EventHandler) CertificateHandler(c *gin.Context) {
	var req dto.CertificateEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	event, err := req.ToEvent(time.Now().UTC())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	resolution, err := h.pipelineUseCase.Process(c.Request.Context(), event)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapResolutionToResponse(resolution))
}
