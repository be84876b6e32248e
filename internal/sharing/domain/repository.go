package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	UpsertGrant(ctx context.Context, grant Grant) (*Grant, error)
	DeleteGrant(ctx context.Context, resourceType string, resourceID, userID snowflake.ID) error
	GrantsFor(ctx context.Context, resourceType string, resourceID snowflake.ID) ([]Grant, error)
	GrantFor(ctx context.Context, resourceType string, resourceID, userID snowflake.ID) (*Grant, error)
	GrantsByUser(ctx context.Context, userID snowflake.ID) ([]Grant, error)

	CreateInvitation(ctx context.Context, inv Invitation) error
	UpdateInvitation(ctx context.Context, inv Invitation) error
	InvitationByID(ctx context.Context, id snowflake.ID) (*Invitation, error)
	PendingInvitation(ctx context.Context, resourceType string, resourceID snowflake.ID, email string) (*Invitation, error)
	PendingByEmail(ctx context.Context, email string) ([]Invitation, error)
	CountPending(ctx context.Context, resourceType string, resourceID snowflake.ID) (int64, error)
	SetInvitationStatus(ctx context.Context, id snowflake.ID, from, to string) (bool, error)

	CreateShareLink(ctx context.Context, link ShareLink) error
	ShareLinkFor(ctx context.Context, resourceType string, resourceID snowflake.ID) (*ShareLink, error)
	ShareLinkByToken(ctx context.Context, token string) (*ShareLink, error)
	SetShareLinkActive(ctx context.Context, id snowflake.ID, active bool) error
}
