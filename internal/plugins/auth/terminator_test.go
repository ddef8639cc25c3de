package auth

import (
	"context"
	"errors"
	"testing"
)

func richPrincipal() *Principal {
	return &Principal{
		Subject:      "sub-1",
		Email:        "alice@example.com",
		Username:     "alice",
		SessionState: "sess-1",
		Roles:        []string{RoleUser},
	}
}

func TestTerminate_SessionDeleteShortCircuits(t *testing.T) {
	logoutCalled := false
	provider := &mockProvider{
		deleteSessionFn: func(ctx context.Context, adminToken, sessionID string) error {
			if sessionID != "sess-1" {
				t.Errorf("expected session sess-1, got %s", sessionID)
			}
			return nil
		},
		logoutUserFn: func(ctx context.Context, adminToken, userID string) error {
			logoutCalled = true
			return nil
		},
	}

	term := NewTerminator(provider)
	if !term.Terminate(context.Background(), richPrincipal()) {
		t.Fatal("expected termination to succeed")
	}
	if logoutCalled {
		t.Error("fallback strategy must not run after the first success")
	}
}

func TestTerminate_FallsBackToUserLogout(t *testing.T) {
	provider := &mockProvider{
		deleteSessionFn: func(ctx context.Context, adminToken, sessionID string) error {
			return errors.New("session endpoint returned status 404")
		},
		logoutUserFn: func(ctx context.Context, adminToken, userID string) error {
			if userID != "sub-1" {
				t.Errorf("expected logout for sub-1, got %s", userID)
			}
			return nil
		},
	}

	term := NewTerminator(provider)
	if !term.Terminate(context.Background(), richPrincipal()) {
		t.Fatal("expected fallback strategy to succeed")
	}
}

func TestTerminate_AdminTokenFailureShortCircuits(t *testing.T) {
	provider := &mockProvider{
		adminTokenFn: func(ctx context.Context) (string, error) {
			return "", errors.New("admin token endpoint returned status 503")
		},
		deleteSessionFn: func(ctx context.Context, adminToken, sessionID string) error {
			t.Fatal("no remote strategy may run without an admin token")
			return nil
		},
	}

	term := NewTerminator(provider)
	if term.Terminate(context.Background(), richPrincipal()) {
		t.Fatal("expected termination to report failure")
	}
}

func TestTerminate_AllStrategiesFail(t *testing.T) {
	provider := &mockProvider{
		deleteSessionFn: func(ctx context.Context, adminToken, sessionID string) error {
			return errors.New("boom")
		},
		logoutUserFn: func(ctx context.Context, adminToken, userID string) error {
			return errors.New("boom")
		},
	}

	term := NewTerminator(provider)
	if term.Terminate(context.Background(), richPrincipal()) {
		t.Fatal("expected termination to report failure")
	}
}

func TestTerminate_SkipsInapplicableStrategies(t *testing.T) {
	deleteCalled := false
	provider := &mockProvider{
		deleteSessionFn: func(ctx context.Context, adminToken, sessionID string) error {
			deleteCalled = true
			return nil
		},
	}

	p := richPrincipal()
	p.SessionState = ""

	term := NewTerminator(provider)
	if !term.Terminate(context.Background(), p) {
		t.Fatal("expected subject strategy to succeed")
	}
	if deleteCalled {
		t.Error("session strategy must be skipped without a session id")
	}
}

func TestTerminate_NilPrincipal(t *testing.T) {
	term := NewTerminator(&mockProvider{})
	if term.Terminate(context.Background(), nil) {
		t.Fatal("expected false for a nil principal")
	}
}
