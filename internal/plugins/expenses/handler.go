package expenses

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/spendloop/spendloop/internal/apperror"
	"github.com/spendloop/spendloop/internal/plugins/auth"
)

// Handler handles HTTP requests for expenses. All routes sit behind
// RequireUser, so a principal is always present.
type Handler struct {
	service Service
}

// NewHandler creates a new expenses handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List returns a page of the user's expenses (GET /api/expenses).
// Optional query params: category, startDate, endDate, page, size.
func (h *Handler) List(c echo.Context) error {
	q := ListQuery{
		Category:  c.QueryParam("category"),
		StartDate: c.QueryParam("startDate"),
		EndDate:   c.QueryParam("endDate"),
		Page:      intParam(c, "page", 0),
		Size:      intParam(c, "size", 0),
	}

	page, err := h.service.List(c.Request().Context(), auth.GetUsername(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Create records a new expense (POST /api/expenses).
func (h *Handler) Create(c echo.Context) error {
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	expense, err := h.service.Create(c.Request().Context(), auth.GetUsername(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, expense)
}

// Get returns one expense by id (GET /api/expenses/:id).
func (h *Handler) Get(c echo.Context) error {
	expense, err := h.service.Get(c.Request().Context(), auth.GetUsername(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, expense)
}

// Delete removes one expense by id (DELETE /api/expenses/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), auth.GetUsername(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MonthlySummary returns per-month totals for a date range
// (GET /api/expenses/summary?startDate&endDate).
func (h *Handler) MonthlySummary(c echo.Context) error {
	totals, err := h.service.MonthlySummary(
		c.Request().Context(),
		auth.GetUsername(c),
		c.QueryParam("startDate"),
		c.QueryParam("endDate"),
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, totals)
}

// CategorySummary returns all-time per-category totals
// (GET /api/expenses/category-summary).
func (h *Handler) CategorySummary(c echo.Context) error {
	totals, err := h.service.CategorySummary(c.Request().Context(), auth.GetUsername(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, totals)
}

// intParam parses an integer query param, falling back on absence or junk.
func intParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
