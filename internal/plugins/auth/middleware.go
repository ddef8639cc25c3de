package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// contextKeyPrincipal stores the resolved *Principal in the Echo context.
// Other plugins read it via the exported getters below.
const contextKeyPrincipal = "auth_principal"

// bearerPrefix is the Authorization scheme marker. Matched case-sensitively:
// "bearer x" and "BEARER x" are not token carriers.
const bearerPrefix = "Bearer "

// exemptPrefixes are path prefixes the authenticator skips entirely. The
// login and signup endpoints cannot require a token, and health checks must
// not depend on the identity provider being up.
var exemptPrefixes = []string{
	"/api/auth/",
	"/healthz",
	"/error",
}

// Authenticate returns the session authentication middleware. For every
// non-exempt request it extracts the bearer token, validates it remotely,
// and attaches the resulting principal to the context.
//
// This middleware NEVER fails a request. No token, a malformed header, and
// a rejected token all pass through with no principal attached; route
// groups that need one add RequireUser on top. Keeping the two concerns
// separate lets public and protected routes share one middleware chain.
func Authenticate(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isExempt(c.Request().URL.Path) {
				return next(c)
			}

			token := bearerToken(c)
			if token == "" {
				return next(c)
			}

			claims, ok := validator.Validate(c.Request().Context(), token)
			if !ok {
				return next(c)
			}

			principal := PrincipalFromClaims(claims)
			if principal.Username == "" && principal.Email == "" {
				// A claim set with no usable identity cannot be joined to a
				// local user. Treat it as unauthenticated.
				return next(c)
			}

			c.Set(contextKeyPrincipal, principal)
			return next(c)
		}
	}
}

// RequireUser returns middleware that rejects requests lacking a principal
// with the USER role. This is the only place a 401 is produced for missing
// authentication.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil || !principal.HasRole(RoleUser) {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":   "unauthorized",
					"message": "authentication required",
				})
			}
			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// GetPrincipal retrieves the authenticated principal from the Echo context.
// Returns nil if the request is not authenticated.
func GetPrincipal(c echo.Context) *Principal {
	principal, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// GetUsername retrieves the authenticated principal's directory username.
// Returns empty string if the request is not authenticated.
func GetUsername(c echo.Context) string {
	principal := GetPrincipal(c)
	if principal == nil {
		return ""
	}
	return principal.DirectoryUsername()
}

// --- Helpers ---

// isExempt reports whether the path is outside the authentication boundary.
func isExempt(path string) bool {
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from the Authorization header. Returns
// empty string for a missing header, a non-Bearer scheme, or a bare
// "Bearer " with nothing after it.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return header[len(bearerPrefix):]
}
