package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListUnverifiedLocal(ctx context.Context) ([]User, error)

	// EnsureVerificationToken returns the outstanding token for the user,
	// rotating it when missing or expired.
	EnsureVerificationToken(ctx context.Context, userID snowflake.ID) (*VerificationToken, error)
	VerifyEmail(ctx context.Context, token string) (*User, error)
	ResendVerification(ctx context.Context, userID snowflake.ID) (*VerificationToken, error)
	MarkReminderSent(ctx context.Context, userID snowflake.ID, stage string) error
}

type RegisterRequest struct {
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
	AuthProvider string
	Role         string
}

var (
	ErrNotFound        = errors.New("user_not_found")
	ErrInvalidUsername = errors.New("invalid_username")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidPassword = errors.New("invalid_password")
	ErrUsernameTaken   = errors.New("username_taken")
	ErrEmailTaken      = errors.New("email_taken")
	ErrTokenExpired    = errors.New("verification_token_expired")
	ErrTokenNotFound   = errors.New("verification_token_not_found")
	ErrAlreadyVerified = errors.New("email_already_verified")
	ErrResendThrottled = errors.New("resend_throttled")
	ErrUnknownStage    = errors.New("unknown_reminder_stage")
)
