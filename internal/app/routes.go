package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spendloop/spendloop/internal/middleware"
	"github.com/spendloop/spendloop/internal/plugins/auth"
	"github.com/spendloop/spendloop/internal/plugins/expenses"
	"github.com/spendloop/spendloop/internal/plugins/users"
)

// RegisterRoutes wires every plugin (repository, service, handler) and sets
// up all application routes. This is the single place where all routes are
// aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// --- Plugin wiring ---

	usersRepo := users.NewRepository(a.DB)
	usersSvc := users.NewService(usersRepo, expenses.ValidCategory)

	expensesRepo := expenses.NewRepository(a.DB, a.Codec)
	expensesSvc := expenses.NewService(expensesRepo, expenses.NewUserFinder(usersSvc))

	validator := auth.NewValidator(a.Keycloak)
	authSvc := auth.NewService(a.Keycloak, users.NewAuthDirectory(usersSvc))
	terminator := auth.NewTerminator(a.Keycloak)
	authHandler := auth.NewHandler(
		authSvc,
		validator,
		terminator,
		a.Keycloak.LogoutURL,
		a.Config.BaseURL,
		a.Config.FrontendURL,
	)

	// Session authentication runs on every request. It only attaches a
	// principal; the per-group RequireUser middleware enforces it.
	e.Use(auth.Authenticate(validator))

	// --- Public Routes ---

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Plugin Routes ---

	limiter := middleware.NewRateLimiter(a.Redis)
	auth.RegisterRoutes(e, authHandler, limiter)
	users.RegisterRoutes(e, users.NewHandler(usersSvc))
	expenses.RegisterRoutes(e, expenses.NewHandler(expensesSvc))
}
