// Package keycloak is a thin REST client for the identity provider of
// record. It covers exactly the surface Spendloop consumes: the OIDC token
// and userinfo endpoints of the application realm, and the administrative
// API used for user creation and session termination.
//
// Every call is a single synchronous HTTP round trip bounded by the
// configured request timeout. There are no retries: callers treat a
// transient provider failure the same as a rejection (fail closed).
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spendloop/spendloop/internal/config"
)

// adminClientID is the built-in Keycloak client used for master-realm
// administrative password grants.
const adminClientID = "admin-cli"

// Client talks to a single Keycloak server and realm. Safe for concurrent
// use; all state is immutable after New.
type Client struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	admin        config.AdminCredentials
	http         *http.Client
}

// New creates a Keycloak client from the given configuration.
func New(cfg config.KeycloakConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		realm:        cfg.Realm,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		admin:        cfg.Admin,
		http:         &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// TokenSet is the provider's response to a successful token grant.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims is the raw claim map returned by the userinfo endpoint. Values are
// passed through opaquely; the typed getters below cover the claims the
// application actually reads.
type Claims map[string]any

// str returns a string claim or "" when absent or not a string.
func (c Claims) str(key string) string {
	s, _ := c[key].(string)
	return s
}

// Subject returns the provider's stable user identifier.
func (c Claims) Subject() string { return c.str("sub") }

// Email returns the email claim.
func (c Claims) Email() string { return c.str("email") }

// PreferredUsername returns the preferred_username claim.
func (c Claims) PreferredUsername() string { return c.str("preferred_username") }

// GivenName returns the given_name claim.
func (c Claims) GivenName() string { return c.str("given_name") }

// FamilyName returns the family_name claim.
func (c Claims) FamilyName() string { return c.str("family_name") }

// Name returns the full display name claim.
func (c Claims) Name() string { return c.str("name") }

// SessionState returns the provider session identifier, when present.
func (c Claims) SessionState() string { return c.str("session_state") }

// EmailVerified returns the email_verified claim, defaulting to false.
func (c Claims) EmailVerified() bool {
	v, _ := c["email_verified"].(bool)
	return v
}

// --- Realm OIDC endpoints ---

// PasswordGrant exchanges end-user credentials for a token set via the
// Resource Owner Password Credentials flow. Any non-200 response is an
// error; the provider's error body is never included in the returned error.
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("scope", "openid profile email")

	return c.tokenRequest(ctx, c.realmURL("/protocol/openid-connect/token"), form)
}

// RefreshGrant exchanges a refresh token for a fresh token set.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}
	form.Set("refresh_token", refreshToken)

	return c.tokenRequest(ctx, c.realmURL("/protocol/openid-connect/token"), form)
}

// UserInfo fetches the verified claim set for a bearer token. A non-200
// response means the token is invalid from the application's point of view.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.realmURL("/protocol/openid-connect/userinfo"), nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling userinfo: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo rejected token: status %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}
	return claims, nil
}

// LogoutURL builds the provider's browser-facing logout endpoint with a
// post-logout redirect target. Used for the final redirect of the logout
// flow; the actual session revocation happens via the admin API.
func (c *Client) LogoutURL(postLogoutRedirect string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("post_logout_redirect_uri", postLogoutRedirect)
	return c.realmURL("/protocol/openid-connect/logout") + "?" + q.Encode()
}

// --- Administrative API ---

// AdminToken authenticates the configured admin credentials against the
// master-realm token endpoint and returns a short-lived administrative
// access token. This token is distinct from end-user tokens and must only
// be used for admin API calls.
func (c *Client) AdminToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", adminClientID)
	form.Set("username", c.admin.Username)
	form.Set("password", c.admin.Password)

	ts, err := c.tokenRequest(ctx, c.baseURL+"/realms/master/protocol/openid-connect/token", form)
	if err != nil {
		return "", fmt.Errorf("admin token grant: %w", err)
	}
	return ts.AccessToken, nil
}

// NewUser describes an account to create in the provider. The password is
// set as a permanent credential and the email is pre-verified, matching the
// self-service signup flow.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// userRepresentation is the admin API's wire format for user creation.
type userRepresentation struct {
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	Enabled       bool            `json:"enabled"`
	EmailVerified bool            `json:"emailVerified"`
	Credentials   []credentialRep `json:"credentials"`
}

type credentialRep struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// CreateUser creates a new enabled account in the application realm and
// returns its provider-assigned id, extracted from the trailing segment of
// the 201 response's Location header.
func (c *Client) CreateUser(ctx context.Context, adminToken string, u NewUser) (string, error) {
	rep := userRepresentation{
		Username:      u.Email,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Enabled:       true,
		EmailVerified: true,
		Credentials: []credentialRep{
			{Type: "password", Value: u.Password, Temporary: false},
		},
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("encoding user representation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.adminURL("/users"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building create-user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling create-user: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create-user failed: status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("create-user response missing Location header")
	}
	return location[strings.LastIndex(location, "/")+1:], nil
}

// UserExistsByEmail reports whether an account with the given email already
// exists in the application realm. Errors are treated as "unknown" by the
// caller, so this returns false on any failure.
func (c *Client) UserExistsByEmail(ctx context.Context, adminToken, email string) (bool, error) {
	q := url.Values{}
	q.Set("email", email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.adminURL("/users")+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("building user-lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling user-lookup: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("user-lookup failed: status %d", resp.StatusCode)
	}

	var users []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return false, fmt.Errorf("decoding user-lookup response: %w", err)
	}
	return len(users) > 0, nil
}

// DeleteSession revokes a single provider session by its id.
func (c *Client) DeleteSession(ctx context.Context, adminToken, sessionID string) error {
	return c.adminCall(ctx, http.MethodDelete, c.adminURL("/sessions/"+sessionID), adminToken)
}

// LogoutUser revokes every provider session belonging to the given user.
func (c *Client) LogoutUser(ctx context.Context, adminToken, userID string) error {
	return c.adminCall(ctx, http.MethodPost, c.adminURL("/users/"+userID+"/logout"), adminToken)
}

// --- Internals ---

// tokenRequest posts a form to a token endpoint and decodes the token set.
func (c *Client) tokenRequest(ctx context.Context, endpoint string, form url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling token endpoint: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint rejected grant: status %d", resp.StatusCode)
	}

	var ts TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if ts.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &ts, nil
}

// adminCall issues a bodyless admin API request and checks for 2xx.
func (c *Client) adminCall(ctx context.Context, method, endpoint, adminToken string) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building admin request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling admin endpoint: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("admin call %s failed: status %d", method, resp.StatusCode)
	}
	return nil
}

// realmURL builds an application-realm endpoint URL.
func (c *Client) realmURL(path string) string {
	return c.baseURL + "/realms/" + c.realm + path
}

// adminURL builds an admin API endpoint URL for the application realm.
func (c *Client) adminURL(path string) string {
	return c.baseURL + "/admin/realms/" + c.realm + path
}

// drain discards and closes a response body so the connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
