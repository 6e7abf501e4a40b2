package router

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"taskvault/internal/errors"
	"taskvault/internal/ratelimit"
)

// Paths that never count against the rate limit.
var rateLimitExempt = map[string]bool{
	"/healthz": true,
}

// RateLimit rejects clients that spent their per-window request budget.
// Clients are keyed by originating IP (echo resolves X-Forwarded-For).
func RateLimit(limiter ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if rateLimitExempt[path] || len(path) >= 8 && path[:8] == "/swagger" {
				return next(c)
			}

			remaining, ok, err := limiter.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				// A broken limiter backend must not take the API down.
				c.Logger().Errorf("rate limiter: %v", err)
				return next(c)
			}
			if !ok {
				c.Response().Header().Set("Retry-After", "60")
				return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
					Error: "too many requests, please try again later",
					Code:  "RATE_LIMITED",
				})
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			return next(c)
		}
	}
}

// SecurityHeaders adds the response headers not covered by echo's Secure
// middleware.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			return next(c)
		}
	}
}
