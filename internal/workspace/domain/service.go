package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
)

type Service interface {
	// EnsurePersonal lazily creates the user's personal workspace. Safe to
	// call on every request; a duplicate-key race resolves to the winner's row.
	EnsurePersonal(ctx context.Context, user identitydomain.User) (*Workspace, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Workspace, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]WorkspaceListItem, error)
	MembershipFor(ctx context.Context, workspaceID, userID snowflake.ID) (*Membership, error)
	AddMember(ctx context.Context, workspaceID, userID snowflake.ID, role string) (*Membership, error)
	UpdateMemberRole(ctx context.Context, workspaceID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, workspaceID, userID snowflake.ID) error
}

type WorkspaceListItem struct {
	ID        snowflake.ID `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Type      string       `json:"type"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
}

var (
	ErrNotFound       = errors.New("workspace_not_found")
	ErrNotMember      = errors.New("not_a_member")
	ErrInvalidRole    = errors.New("invalid_workspace_role")
	ErrOwnerImmutable = errors.New("owner_immutable")
)

// ValidRole reports whether role is one of the workspace roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}
