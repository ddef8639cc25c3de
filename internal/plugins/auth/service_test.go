package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/spendloop/spendloop/internal/apperror"
	"github.com/spendloop/spendloop/internal/keycloak"
)

// --- Mock Provider ---

// mockProvider implements the provider-facing interfaces for testing.
type mockProvider struct {
	passwordGrantFn     func(ctx context.Context, username, password string) (*keycloak.TokenSet, error)
	refreshGrantFn      func(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error)
	userInfoFn          func(ctx context.Context, accessToken string) (keycloak.Claims, error)
	adminTokenFn        func(ctx context.Context) (string, error)
	createUserFn        func(ctx context.Context, adminToken string, user keycloak.NewUser) (string, error)
	userExistsByEmailFn func(ctx context.Context, adminToken, email string) (bool, error)
	deleteSessionFn     func(ctx context.Context, adminToken, sessionID string) error
	logoutUserFn        func(ctx context.Context, adminToken, userID string) error
}

func (m *mockProvider) PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
	if m.passwordGrantFn != nil {
		return m.passwordGrantFn(ctx, username, password)
	}
	return nil, errors.New("not configured")
}

func (m *mockProvider) RefreshGrant(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error) {
	if m.refreshGrantFn != nil {
		return m.refreshGrantFn(ctx, refreshToken)
	}
	return nil, errors.New("not configured")
}

func (m *mockProvider) UserInfo(ctx context.Context, accessToken string) (keycloak.Claims, error) {
	if m.userInfoFn != nil {
		return m.userInfoFn(ctx, accessToken)
	}
	return nil, errors.New("not configured")
}

func (m *mockProvider) AdminToken(ctx context.Context) (string, error) {
	if m.adminTokenFn != nil {
		return m.adminTokenFn(ctx)
	}
	return "admin-token", nil
}

func (m *mockProvider) CreateUser(ctx context.Context, adminToken string, user keycloak.NewUser) (string, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, adminToken, user)
	}
	return "new-id", nil
}

func (m *mockProvider) UserExistsByEmail(ctx context.Context, adminToken, email string) (bool, error) {
	if m.userExistsByEmailFn != nil {
		return m.userExistsByEmailFn(ctx, adminToken, email)
	}
	return false, nil
}

func (m *mockProvider) DeleteSession(ctx context.Context, adminToken, sessionID string) error {
	if m.deleteSessionFn != nil {
		return m.deleteSessionFn(ctx, adminToken, sessionID)
	}
	return nil
}

func (m *mockProvider) LogoutUser(ctx context.Context, adminToken, userID string) error {
	if m.logoutUserFn != nil {
		return m.logoutUserFn(ctx, adminToken, userID)
	}
	return nil
}

// --- Mock Directory ---

// mockDirectory implements UserDirectory for testing.
type mockDirectory struct {
	findOrCreateFn func(ctx context.Context, p *Principal) error
	calls          int
	lastPrincipal  *Principal
}

func (m *mockDirectory) FindOrCreate(ctx context.Context, p *Principal) error {
	m.calls++
	m.lastPrincipal = p
	if m.findOrCreateFn != nil {
		return m.findOrCreateFn(ctx, p)
	}
	return nil
}

// --- Test Helpers ---

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func testClaims() keycloak.Claims {
	return keycloak.Claims{
		"sub":                "sub-1",
		"email":              "alice@example.com",
		"preferred_username": "alice",
		"given_name":         "Alice",
		"family_name":        "Smith",
		"name":               "Alice Smith",
		"email_verified":     true,
		"session_state":      "sess-1",
	}
}

func testTokens() *keycloak.TokenSet {
	return &keycloak.TokenSet{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresIn:    300,
	}
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	provider := &mockProvider{
		passwordGrantFn: func(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
			if username != "alice@example.com" || password != "hunter22" {
				t.Errorf("unexpected credentials forwarded: %s", username)
			}
			return testTokens(), nil
		},
		userInfoFn: func(ctx context.Context, accessToken string) (keycloak.Claims, error) {
			if accessToken != "AT1" {
				t.Errorf("expected userinfo called with the granted token, got %s", accessToken)
			}
			return testClaims(), nil
		},
	}
	directory := &mockDirectory{}

	svc := NewService(provider, directory)
	result, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Tokens.AccessToken != "AT1" || result.Tokens.RefreshToken != "RT1" {
		t.Errorf("unexpected token pair: %+v", result.Tokens)
	}
	if result.Tokens.ExpiresIn != 300 {
		t.Errorf("expected expiresIn 300, got %d", result.Tokens.ExpiresIn)
	}
	if result.Principal.Username != "alice" {
		t.Errorf("expected principal username alice, got %s", result.Principal.Username)
	}
	if directory.calls != 1 {
		t.Errorf("expected exactly one directory upsert, got %d", directory.calls)
	}
	if directory.lastPrincipal.DirectoryUsername() != "alice" {
		t.Errorf("expected directory join key alice, got %s", directory.lastPrincipal.DirectoryUsername())
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	provider := &mockProvider{
		passwordGrantFn: func(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
			return nil, errors.New(`token endpoint returned status 401`)
		},
	}
	directory := &mockDirectory{}

	svc := NewService(provider, directory)
	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assertAppError(t, err, 400)

	// The client-visible message stays generic.
	if msg := apperror.SafeMessage(err); msg != "Authentication failed" {
		t.Errorf("expected generic failure message, got %q", msg)
	}
	if directory.calls != 0 {
		t.Error("directory must not be touched on a failed grant")
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	svc := NewService(&mockProvider{}, &mockDirectory{})
	_, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com"})
	assertAppError(t, err, 400)
}

func TestLogin_UserinfoFailureFailsLogin(t *testing.T) {
	provider := &mockProvider{
		passwordGrantFn: func(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
			return testTokens(), nil
		},
		userInfoFn: func(ctx context.Context, accessToken string) (keycloak.Claims, error) {
			return nil, errors.New("userinfo returned status 500")
		},
	}

	svc := NewService(provider, &mockDirectory{})
	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	assertAppError(t, err, 400)
}

func TestLogin_DirectoryFailureFailsLogin(t *testing.T) {
	provider := &mockProvider{
		passwordGrantFn: func(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
			return testTokens(), nil
		},
		userInfoFn: func(ctx context.Context, accessToken string) (keycloak.Claims, error) {
			return testClaims(), nil
		},
	}
	directory := &mockDirectory{
		findOrCreateFn: func(ctx context.Context, p *Principal) error {
			return errors.New("db gone")
		},
	}

	svc := NewService(provider, directory)
	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	assertAppError(t, err, 500)
}

// --- Refresh Tests ---

func TestRefresh_Success(t *testing.T) {
	provider := &mockProvider{
		refreshGrantFn: func(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error) {
			if refreshToken != "RT1" {
				t.Errorf("expected refresh token RT1, got %s", refreshToken)
			}
			return &keycloak.TokenSet{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 300}, nil
		},
	}

	svc := NewService(provider, &mockDirectory{})
	tokens, err := svc.Refresh(context.Background(), "RT1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.AccessToken != "AT2" || tokens.RefreshToken != "RT2" {
		t.Errorf("unexpected token pair: %+v", tokens)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	svc := NewService(&mockProvider{}, &mockDirectory{})
	_, err := svc.Refresh(context.Background(), "")
	assertAppError(t, err, 400)
}

func TestRefresh_RejectedToken(t *testing.T) {
	provider := &mockProvider{
		refreshGrantFn: func(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error) {
			return nil, errors.New("token endpoint returned status 400")
		},
	}

	svc := NewService(provider, &mockDirectory{})
	_, err := svc.Refresh(context.Background(), "expired")
	assertAppError(t, err, 400)
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	var created keycloak.NewUser
	provider := &mockProvider{
		createUserFn: func(ctx context.Context, adminToken string, user keycloak.NewUser) (string, error) {
			if adminToken != "admin-token" {
				t.Errorf("expected admin token forwarded, got %s", adminToken)
			}
			created = user
			return "kc-123", nil
		},
	}

	svc := NewService(provider, &mockDirectory{})
	err := svc.Register(context.Background(), SignupRequest{
		Email:     "bob@example.com",
		Password:  "secure-password-123",
		FirstName: "Bob",
		LastName:  "Jones",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Email != "bob@example.com" {
		t.Errorf("expected email forwarded, got %s", created.Email)
	}
	if created.Password != "secure-password-123" {
		t.Error("expected password forwarded to provider")
	}
}

func TestRegister_AdminTokenUnavailable(t *testing.T) {
	provider := &mockProvider{
		adminTokenFn: func(ctx context.Context) (string, error) {
			return "", errors.New("admin token endpoint returned status 503")
		},
	}

	svc := NewService(provider, &mockDirectory{})
	err := svc.Register(context.Background(), SignupRequest{
		Email:    "bob@example.com",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 500)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	provider := &mockProvider{
		userExistsByEmailFn: func(ctx context.Context, adminToken, email string) (bool, error) {
			return true, nil
		},
		createUserFn: func(ctx context.Context, adminToken string, user keycloak.NewUser) (string, error) {
			t.Fatal("CreateUser must not be called for a duplicate email")
			return "", nil
		},
	}

	svc := NewService(provider, &mockDirectory{})
	err := svc.Register(context.Background(), SignupRequest{
		Email:    "bob@example.com",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 400)
}

func TestRegister_ValidatesPayload(t *testing.T) {
	svc := NewService(&mockProvider{}, &mockDirectory{})

	cases := []SignupRequest{
		{Password: "secure-password-123"},                // missing email
		{Email: "not-an-email", Password: "longenough1"}, // invalid email
		{Email: "bob@example.com"},                       // missing password
		{Email: "bob@example.com", Password: "short"},    // too short
	}
	for _, req := range cases {
		if err := svc.Register(context.Background(), req); err == nil {
			t.Errorf("expected validation failure for %+v", req)
		}
	}
}
