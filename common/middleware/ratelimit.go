package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/ratelimit"
)

// RunRateLimitMiddleware throttles provisioning run submissions.
// Each run fans out into many Admin API calls against the shop, so the
// submission endpoint is the choke point.
func RunRateLimitMiddleware(limiter *ratelimit.Limiter, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := limiter.CheckRunLimit(c.Request().Context(), limit)
			if err != nil {
				// Fail open: a Redis hiccup should not block provisioning
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "run_rate_limit_exceeded",
					"message": "Too many provisioning runs submitted. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              "60 seconds",
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
