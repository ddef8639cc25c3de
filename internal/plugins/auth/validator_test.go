package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/spendloop/spendloop/internal/keycloak"
)

func TestValidate_ProviderAccepts(t *testing.T) {
	provider := &mockProvider{
		userInfoFn: func(ctx context.Context, accessToken string) (keycloak.Claims, error) {
			return testClaims(), nil
		},
	}

	claims, ok := NewValidator(provider).Validate(context.Background(), "AT1")
	if !ok {
		t.Fatal("expected token accepted")
	}
	if claims.Subject() != "sub-1" {
		t.Errorf("expected sub claim preserved, got %q", claims.Subject())
	}
}

func TestValidate_FailClosed(t *testing.T) {
	cases := map[string]error{
		"provider rejects": errors.New("userinfo returned status 401"),
		"provider errors":  errors.New("userinfo returned status 500"),
		"transport error":  errors.New(`dial tcp: connection refused`),
	}
	for name, failure := range cases {
		provider := &mockProvider{
			userInfoFn: func(ctx context.Context, accessToken string) (keycloak.Claims, error) {
				return nil, failure
			},
		}
		claims, ok := NewValidator(provider).Validate(context.Background(), "AT1")
		if ok || claims != nil {
			t.Errorf("%s: expected (nil, false), got (%v, %v)", name, claims, ok)
		}
	}
}

func TestValidate_EmptyToken(t *testing.T) {
	called := false
	provider := &mockProvider{
		userInfoFn: func(ctx context.Context, accessToken string) (keycloak.Claims, error) {
			called = true
			return testClaims(), nil
		},
	}

	if _, ok := NewValidator(provider).Validate(context.Background(), ""); ok {
		t.Fatal("expected empty token rejected")
	}
	if called {
		t.Error("provider must not be called for an empty token")
	}
}
