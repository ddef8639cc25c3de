package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/spendloop/spendloop/internal/middleware"
)

// RegisterRoutes sets up the auth endpoints on the given Echo instance.
// All of them live under the exempt /api/auth/ prefix, so the session
// middleware never touches them -- the Authenticate/RequireUser pair is
// exported separately for the protected route groups.
//
// Credential endpoints are rate-limited to slow brute-force and credential
// stuffing: 10 attempts per IP per minute for login and refresh, 5 for
// signup.
func RegisterRoutes(e *echo.Echo, h *Handler, limiter *middleware.RateLimiter) {
	g := e.Group("/api/auth")

	g.POST("/login", h.Login, limiter.Limit(10, time.Minute))
	g.POST("/signup", h.Signup, limiter.Limit(5, time.Minute))
	g.POST("/refresh", h.Refresh, limiter.Limit(10, time.Minute))

	g.GET("/user", h.User)
	g.POST("/validate", h.Validate)

	g.GET("/nuclear-logout", h.NuclearLogout)
	g.GET("/logout-complete", h.LogoutComplete)
}
