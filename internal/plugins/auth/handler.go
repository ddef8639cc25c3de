package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spendloop/spendloop/internal/apperror"
)

// Cookie names for the optional client-side token persistence.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// refreshCookieMaxAge is how long the refresh token cookie lives: 30 days.
const refreshCookieMaxAge = 30 * 24 * 60 * 60

// providerCookies are identity-provider session cookies that may be present
// on this domain behind a shared reverse proxy. Cleared on logout alongside
// our own token cookies.
var providerCookies = []string{
	"KEYCLOAK_SESSION",
	"KEYCLOAK_IDENTITY",
	"KEYCLOAK_REMEMBER_ME",
	"AUTH_SESSION_ID",
	"KC_RESTART",
}

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and shape the JSON response. No
// business logic lives here.
type Handler struct {
	service    AuthService
	validator  TokenValidator
	terminator *Terminator

	// logoutURL builds the provider's front-channel logout URL for a given
	// post-logout redirect.
	logoutURL func(postLogoutRedirect string) string

	// baseURL is this server's externally visible origin.
	baseURL string

	// frontendURL is where logout-complete sends the browser.
	frontendURL string
}

// NewHandler creates a new auth handler.
func NewHandler(service AuthService, validator TokenValidator, terminator *Terminator, logoutURL func(string) string, baseURL, frontendURL string) *Handler {
	return &Handler{
		service:     service,
		validator:   validator,
		terminator:  terminator,
		logoutURL:   logoutURL,
		baseURL:     baseURL,
		frontendURL: frontendURL,
	}
}

// Login processes a credential login (POST /api/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	result, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return h.failure(c, err)
	}

	// rememberMe opts into HTTP-only cookie persistence; otherwise the SPA
	// keeps the tokens in memory only.
	if req.RememberMe {
		h.setTokenCookies(c, result.Tokens)
	}

	return c.JSON(http.StatusOK, successResponse("Login successful", result))
}

// Signup registers a new account and logs it in (POST /api/auth/signup).
// The provider account is created first; if the follow-up login fails the
// account stays behind and the client simply retries logging in.
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.Register(c.Request().Context(), req); err != nil {
		return h.failure(c, err)
	}

	result, err := h.service.Login(c.Request().Context(), LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.failure(c, apperror.NewRegistrationFailed(err))
	}

	return c.JSON(http.StatusOK, successResponse("Registration successful", result))
}

// Refresh exchanges a refresh token for a fresh pair (POST /api/auth/refresh).
// The token comes from the refresh_token cookie when present, otherwise from
// the request body. Success re-issues both cookies.
func (h *Handler) Refresh(c echo.Context) error {
	refreshToken := cookieValue(c, refreshTokenCookie)
	if refreshToken == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		// Body is optional; a bind failure just means no token was supplied.
		_ = c.Bind(&body)
		refreshToken = body.RefreshToken
	}

	tokens, err := h.service.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		return h.failure(c, err)
	}

	h.setTokenCookies(c, *tokens)

	return c.JSON(http.StatusOK, AuthResponse{
		Success:      true,
		Message:      "Token refreshed",
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// User returns the profile behind the presented token (GET /api/auth/user).
// This route sits on an exempt prefix, so it validates the token itself
// instead of relying on the session middleware.
func (h *Handler) User(c echo.Context) error {
	principal, ok := h.resolve(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: "Token is invalid or expired",
		})
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Token is valid",
		User:    userInfo(principal),
	})
}

// Validate reports whether the presented token is currently valid
// (POST /api/auth/validate).
func (h *Handler) Validate(c echo.Context) error {
	_, ok := h.resolve(c)
	if !ok {
		return c.JSON(http.StatusOK, AuthResponse{
			Success: false,
			Message: "Token is invalid or expired",
		})
	}
	return c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Token is valid",
	})
}

// NuclearLogout kills the provider session and clears every auth cookie,
// then bounces the browser through the provider's front-channel logout
// (GET /api/auth/nuclear-logout). Local cleanup is unconditional: it
// happens whether or not remote termination worked.
func (h *Handler) NuclearLogout(c echo.Context) error {
	principal, _ := h.resolve(c)
	terminated := h.terminator.Terminate(c.Request().Context(), principal)
	if !terminated {
		// Best effort only. The front-channel redirect below still ends the
		// browser-visible session.
		c.Logger().Warnf("remote session termination incomplete")
	}

	h.clearAuthCookies(c)

	redirect := h.logoutURL(h.baseURL + "/api/auth/logout-complete")
	return c.Redirect(http.StatusFound, redirect)
}

// LogoutComplete is the provider's post-logout landing: clears cookies once
// more and sends the browser home (GET /api/auth/logout-complete).
func (h *Handler) LogoutComplete(c echo.Context) error {
	h.clearAuthCookies(c)
	return c.Redirect(http.StatusFound, h.frontendURL)
}

// --- Response helpers ---

// successResponse shapes the uniform success body from a login result.
func successResponse(message string, result *LoginResult) AuthResponse {
	return AuthResponse{
		Success:      true,
		Message:      message,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresIn:    result.Tokens.ExpiresIn,
		User:         userInfo(result.Principal),
	}
}

// userInfo shapes the embedded profile fragment from a principal.
func userInfo(p *Principal) *UserInfo {
	return &UserInfo{
		ID:            p.Subject,
		Email:         p.Email,
		FirstName:     p.GivenName,
		LastName:      p.FamilyName,
		DisplayName:   p.DisplayName,
		EmailVerified: p.EmailVerified,
	}
}

// failure maps a service error to the uniform failure body. The status code
// comes from the error; the message is always the safe one.
func (h *Handler) failure(c echo.Context, err error) error {
	c.Logger().Errorf("auth request failed: %v", err)
	return c.JSON(apperror.SafeCode(err), AuthResponse{
		Success: false,
		Message: apperror.SafeMessage(err),
	})
}

// resolve validates the presented token (Authorization header first, then
// the access_token cookie) and builds a principal from its claims.
func (h *Handler) resolve(c echo.Context) (*Principal, bool) {
	token := bearerToken(c)
	if token == "" {
		token = cookieValue(c, accessTokenCookie)
	}
	if token == "" {
		return nil, false
	}

	claims, ok := h.validator.Validate(c.Request().Context(), token)
	if !ok {
		return nil, false
	}
	return PrincipalFromClaims(claims), true
}

// --- Cookie helpers ---

// cookieValue reads a cookie, returning empty string when absent.
func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setTokenCookies persists the token pair as HTTP-only cookies. The access
// token cookie expires with the token itself; the refresh token cookie
// lives 30 days.
func (h *Handler) setTokenCookies(c echo.Context, tokens TokenPair) {
	secure := isSecure(c)
	c.SetCookie(&http.Cookie{
		Name:     accessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(tokens.ExpiresIn),
	})
	c.SetCookie(&http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   refreshCookieMaxAge,
	})
}

// clearAuthCookies expires our token cookies and any provider session
// cookies visible on this domain.
func (h *Handler) clearAuthCookies(c echo.Context) {
	names := append([]string{accessTokenCookie, refreshTokenCookie}, providerCookies...)
	for _, name := range names {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}

// isSecure reports whether the request arrived over TLS, directly or via a
// trusted proxy.
func isSecure(c echo.Context) bool {
	req := c.Request()
	return req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https"
}
