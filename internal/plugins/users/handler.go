package users

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spendloop/spendloop/internal/apperror"
	"github.com/spendloop/spendloop/internal/plugins/auth"
)

// Handler handles HTTP requests for the current user's profile and
// preferences. All routes sit behind RequireUser, so a principal is always
// present.
type Handler struct {
	service Service
}

// NewHandler creates a new users handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Me returns the authenticated user's profile (GET /api/me).
func (h *Handler) Me(c echo.Context) error {
	user, err := h.service.GetByUsername(c.Request().Context(), auth.GetUsername(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe applies a partial profile update (PUT /api/me).
func (h *Handler) UpdateMe(c echo.Context) error {
	var input UpdateProfileInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), auth.GetUsername(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Preferences returns the authenticated user's preferences
// (GET /api/me/preferences).
func (h *Handler) Preferences(c echo.Context) error {
	user, err := h.service.GetByUsername(c.Request().Context(), auth.GetUsername(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.Preferences)
}

// UpdatePreferences applies a partial preferences update
// (PUT /api/me/preferences).
func (h *Handler) UpdatePreferences(c echo.Context) error {
	var input UpdatePreferencesInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	prefs, err := h.service.UpdatePreferences(c.Request().Context(), auth.GetUsername(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prefs)
}
