package domain

import (
	"context"
	"errors"

	identitydomain "github.com/workhive/workhive/internal/identity/domain"
)

type Service interface {
	Login(ctx context.Context, username, password string) (*Session, *identitydomain.User, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a bearer token to its user. Expired sessions are
	// treated as unauthorized, not deleted inline.
	Authenticate(ctx context.Context, token string) (*identitydomain.User, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAccountDisabled    = errors.New("account_disabled")
)
