package expenses

import (
	"github.com/labstack/echo/v4"

	"github.com/spendloop/spendloop/internal/plugins/auth"
)

// RegisterRoutes sets up the expense routes. Everything here requires an
// authenticated principal. The static /summary routes are registered before
// the /:id routes only for readability; Echo matches static segments first
// either way.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/expenses", auth.RequireUser())

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/summary", h.MonthlySummary)
	g.GET("/category-summary", h.CategorySummary)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}
