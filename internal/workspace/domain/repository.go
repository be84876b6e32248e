package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, ws Workspace) error
	GetByID(ctx context.Context, id snowflake.ID) (*Workspace, error)
	PersonalFor(ctx context.Context, ownerID snowflake.ID) (*Workspace, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]WorkspaceListItem, error)

	AddMember(ctx context.Context, member Membership) error
	MembershipFor(ctx context.Context, workspaceID, userID snowflake.ID) (*Membership, error)
	AdminIDs(ctx context.Context, workspaceID snowflake.ID) ([]snowflake.ID, error)
	UpdateMemberRole(ctx context.Context, workspaceID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, workspaceID, userID snowflake.ID) error
}
