package ports

import (
	"context"

	"github.com/optiflow/optiflow/internal/core/domain"
)

// AuthAPI is the backend surface the session store talks to.
type AuthAPI interface {
	// IssueToken exchanges credentials for a bearer token.
	IssueToken(ctx context.Context, username, password string) (*domain.TokenResponse, error)
	// CreateUser registers a new account.
	CreateUser(ctx context.Context, username, password string) (*domain.User, error)
	// CurrentUser resolves the identity behind token, which is sent as given.
	// An empty token fails with domain.ErrNotAuthenticated without a request.
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	// RevokeToken asks the backend to invalidate token.
	RevokeToken(ctx context.Context, token string) error
}
