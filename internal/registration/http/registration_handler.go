// Package http provides HTTP handlers for CA registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SuYehTarn/jitr/internal/httputil"
	"github.com/SuYehTarn/jitr/internal/registration/http/dto"
	registrationUseCase "github.com/SuYehTarn/jitr/internal/registration/usecase"
	customValidation "github.com/SuYehTarn/jitr/internal/validation"
)

// RegistrationHandler serves CA registration endpoints.
type RegistrationHandler struct {
	registrationUseCase registrationUseCase.RegistrationUseCase
	logger              *slog.Logger
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(
	useCase registrationUseCase.RegistrationUseCase,
	logger *slog.Logger,
) *RegistrationHandler {
	return &RegistrationHandler{registrationUseCase: useCase, logger: logger}
}

// RegisterHandler registers a CA and binds verifiers to it.
// POST /caRegister - Returns 200 OK with the registration summary.
func (h *RegistrationHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterCARequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	registration, err := h.registrationUseCase.Register(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRegistrationToResponse(registration))
}

// GetHandler returns the registration of one CA.
// GET /registrations/:caId - Returns 200 OK or 404 Not Found.
func (h *RegistrationHandler) GetHandler(c *gin.Context) {
	registration, err := h.registrationUseCase.Get(c.Request.Context(), c.Param("caId"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRegistrationToResponse(registration))
}

// ListHandler returns a page of registrations.
// GET /registrations?offset=0&limit=50 - Returns 200 OK.
func (h *RegistrationHandler) ListHandler(c *gin.Context) {
	page, err := httputil.ParsePage(c.DefaultQuery)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	registrations, err := h.registrationUseCase.List(c.Request.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRegistrationsToListResponse(registrations))
}
