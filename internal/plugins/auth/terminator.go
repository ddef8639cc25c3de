package auth

import (
	"context"
	"log/slog"
)

// adminClient is the slice of the provider client session termination needs.
type adminClient interface {
	AdminToken(ctx context.Context) (string, error)
	DeleteSession(ctx context.Context, adminToken, sessionID string) error
	LogoutUser(ctx context.Context, adminToken, userID string) error
}

// terminationStrategy is one way of killing a provider session. Returns
// (true, nil) on success, (false, nil) when not applicable to this
// principal, and (false, err) when attempted but failed.
type terminationStrategy struct {
	name    string
	attempt func(ctx context.Context, adminToken string, p *Principal) (bool, error)
}

// Terminator revokes identity-provider sessions on logout. Remote
// revocation is best effort: the outcome is a boolean, never an error, and
// callers clear local cookies regardless of it.
type Terminator struct {
	provider   adminClient
	strategies []terminationStrategy
}

// NewTerminator creates a session terminator with the standard strategy
// order: delete the concrete session by its id first, and only if that
// fails fall back to logging out every session of the user.
func NewTerminator(provider adminClient) *Terminator {
	t := &Terminator{provider: provider}
	t.strategies = []terminationStrategy{
		{
			name: "delete_session",
			attempt: func(ctx context.Context, adminToken string, p *Principal) (bool, error) {
				if p.SessionState == "" {
					return false, nil
				}
				if err := t.provider.DeleteSession(ctx, adminToken, p.SessionState); err != nil {
					return false, err
				}
				return true, nil
			},
		},
		{
			name: "logout_user",
			attempt: func(ctx context.Context, adminToken string, p *Principal) (bool, error) {
				if p.Subject == "" {
					return false, nil
				}
				if err := t.provider.LogoutUser(ctx, adminToken, p.Subject); err != nil {
					return false, err
				}
				return true, nil
			},
		},
	}
	return t
}

// Terminate walks the strategy list in order and stops at the first one
// that succeeds. An unobtainable admin token means no remote strategy can
// run, so the result is false immediately. Individual strategy failures
// are logged and the next strategy is tried.
func (t *Terminator) Terminate(ctx context.Context, principal *Principal) bool {
	if principal == nil {
		return false
	}

	adminToken, err := t.provider.AdminToken(ctx)
	if err != nil {
		slog.Warn("session termination skipped: admin token unavailable",
			slog.Any("error", err),
		)
		return false
	}

	for _, strategy := range t.strategies {
		ok, err := strategy.attempt(ctx, adminToken, principal)
		if err != nil {
			slog.Warn("session termination strategy failed",
				slog.String("strategy", strategy.name),
				slog.String("subject", principal.Subject),
				slog.Any("error", err),
			)
			continue
		}
		if ok {
			slog.Info("provider session terminated",
				slog.String("strategy", strategy.name),
				slog.String("subject", principal.Subject),
			)
			return true
		}
	}

	return false
}
