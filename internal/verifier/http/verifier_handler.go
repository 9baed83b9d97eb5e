// Package http provides HTTP handlers for the verifier registry.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SuYehTarn/jitr/internal/httputil"
	customValidation "github.com/SuYehTarn/jitr/internal/validation"
	"github.com/SuYehTarn/jitr/internal/verifier/http/dto"
	verifierUseCase "github.com/SuYehTarn/jitr/internal/verifier/usecase"
)

// VerifierHandler serves the verifier registry endpoints.
type VerifierHandler struct {
	verifierUseCase verifierUseCase.VerifierUseCase
	logger          *slog.Logger
}

// NewVerifierHandler creates a new verifier handler.
func NewVerifierHandler(useCase verifierUseCase.VerifierUseCase, logger *slog.Logger) *VerifierHandler {
	return &VerifierHandler{verifierUseCase: useCase, logger: logger}
}

// ListHandler returns every binding ordered by name.
// GET /verifiers - Returns 200 OK.
func (h *VerifierHandler) ListHandler(c *gin.Context) {
	verifiers, err := h.verifierUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVerifiersToListResponse(verifiers))
}

// GetHandler returns one binding.
// GET /verifiers/:name - Returns 200 OK or 404 Not Found.
func (h *VerifierHandler) GetHandler(c *gin.Context) {
	verifier, err := h.verifierUseCase.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVerifierToResponse(verifier))
}

// PutHandler creates or replaces a binding.
// POST /verifiers - Returns 200 OK with the stored binding.
func (h *VerifierHandler) PutHandler(c *gin.Context) {
	var req dto.PutVerifierRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	verifier, err := h.verifierUseCase.Put(c.Request.Context(), req.Name, req.ToReference())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVerifierToResponse(verifier))
}

// DeleteHandler removes a binding. Absent names also answer 204.
// DELETE /verifiers/:name - Returns 204 No Content.
func (h *VerifierHandler) DeleteHandler(c *gin.Context) {
	if err := h.verifierUseCase.Delete(c.Request.Context(), c.Param("name")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
