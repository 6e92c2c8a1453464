package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/container"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/handlers"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/middleware"
)

// RegisterProvisioningRoutes registers the provisioning API
func RegisterProvisioningRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewProvisioningHandler(c.ProvisionService, c.Components)
	cfg := c.Components.Config

	// Candidate locations for the selection UI
	e.GET("/api/v1/locations/candidates", h.ListCandidates)

	runs := e.Group("/api/v1/provisioning/runs")
	{
		// Run submission fans out into many Admin API calls, so it is
		// the rate-limited entry point.
		if cfg.RateLimit.Enabled {
			runs.POST("", h.SubmitRun,
				middleware.RunRateLimitMiddleware(c.Limiter, cfg.RateLimit.RunsPerMinute))
		} else {
			runs.POST("", h.SubmitRun)
		}

		runs.GET("", h.ListRuns)   // GET /api/v1/provisioning/runs?limit=20
		runs.GET("/:id", h.GetRun) // GET /api/v1/provisioning/runs/{run_id}
	}
}
