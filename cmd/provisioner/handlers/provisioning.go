package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/pipeline"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/repository"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/service"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/bootstrap"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
)

// ProvisioningHandler handles provisioning-related requests
type ProvisioningHandler struct {
	svc        *service.ProvisionService
	components *bootstrap.Components
}

// NewProvisioningHandler creates a new provisioning handler
func NewProvisioningHandler(svc *service.ProvisionService, components *bootstrap.Components) *ProvisioningHandler {
	return &ProvisioningHandler{
		svc:        svc,
		components: components,
	}
}

// ListCandidates returns company locations that still need provisioning
// GET /api/v1/locations/candidates
func (h *ProvisioningHandler) ListCandidates(c echo.Context) error {
	candidates, err := h.svc.ListCandidates(c.Request().Context())
	if err != nil {
		return h.platformError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// SubmitRunRequest is the batch submission from the selection UI
type SubmitRunRequest struct {
	Companies []pipeline.Company `json:"companies"`
}

// SubmitRun runs the provisioning pipeline for the selected companies
// POST /api/v1/provisioning/runs
func (h *ProvisioningHandler) SubmitRun(c echo.Context) error {
	var req SubmitRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if len(req.Companies) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "companies is required and must not be empty",
		})
	}

	for i, company := range req.Companies {
		if company.Name == "" || company.ID == "" || company.ExternalID == "" {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "each company requires name, id and externalId",
				"index": i,
			})
		}
	}

	run, err := h.svc.SubmitRun(c.Request().Context(), req.Companies)
	if err != nil {
		return h.platformError(c, err)
	}

	return c.JSON(http.StatusCreated, run)
}

// GetRun retrieves a persisted run report
// GET /api/v1/provisioning/runs/:id
func (h *ProvisioningHandler) GetRun(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid run id",
		})
	}

	run, err := h.svc.GetRun(c.Request().Context(), runID)
	if errors.Is(err, repository.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "run not found",
		})
	}
	if err != nil {
		h.components.Logger.ErrorContext(c.Request().Context(), "failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get run",
		})
	}

	return c.JSON(http.StatusOK, run)
}

// ListRuns returns recent run summaries
// GET /api/v1/provisioning/runs?limit=20
func (h *ProvisioningHandler) ListRuns(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	runs, err := h.svc.ListRuns(c.Request().Context(), limit)
	if err != nil {
		h.components.Logger.ErrorContext(c.Request().Context(), "failed to list runs", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list runs",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// platformError maps gateway error kinds onto HTTP responses
func (h *ProvisioningHandler) platformError(c echo.Context, err error) error {
	if ve, ok := clients.AsValidation(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":       "platform_validation_error",
			"user_errors": ve.Errors,
		})
	}

	h.components.Logger.ErrorContext(c.Request().Context(), "platform request failed", "error", err)
	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "commerce platform request failed",
	})
}
