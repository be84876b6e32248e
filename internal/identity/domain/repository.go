package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListUnverifiedLocal(ctx context.Context) ([]User, error)

	SetEmailVerified(ctx context.Context, userID snowflake.ID, at time.Time) error
	SetReminderSent(ctx context.Context, userID snowflake.ID, stage string, at time.Time) error
	SetLastResend(ctx context.Context, userID snowflake.ID, at time.Time) error

	TokenByUser(ctx context.Context, userID snowflake.ID) (*VerificationToken, error)
	TokenByValue(ctx context.Context, token string) (*VerificationToken, error)
	SaveToken(ctx context.Context, token VerificationToken) error
	DeleteToken(ctx context.Context, userID snowflake.ID) error
}
