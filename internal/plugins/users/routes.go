package users

import (
	"github.com/labstack/echo/v4"

	"github.com/spendloop/spendloop/internal/plugins/auth"
)

// RegisterRoutes sets up the profile and preferences routes. Everything
// here requires an authenticated principal; the token itself is resolved by
// the global session middleware.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/me", auth.RequireUser())

	g.GET("", h.Me)
	g.PUT("", h.UpdateMe)
	g.GET("/preferences", h.Preferences)
	g.PUT("/preferences", h.UpdatePreferences)
}
