// Package domain contains grants, invitations and share links.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Resource roles. Owner is implicit from the resource row and never stored
// as a grant.
const (
	RoleOwner     = "owner"
	RoleEditor    = "editor"
	RoleCommenter = "commenter"
	RoleViewer    = "viewer"
)

// Invitation statuses. A pending invitation moves to exactly one terminal
// state.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
	StatusRevoked  = "revoked"
)

// Grant gives a user a role on one resource.
type Grant struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ResourceType string       `gorm:"type:text;not null;uniqueIndex:ux_resource_grants,priority:1" json:"resource_type"`
	ResourceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_resource_grants,priority:2" json:"resource_id"`
	UserID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_resource_grants,priority:3" json:"user_id"`
	Role         string       `gorm:"type:text;not null" json:"role"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Grant) TableName() string { return "resource_grants" }

// Invitation tracks a pending share offer to an email address. At most one
// pending row per (resource, email); a re-invite updates it in place.
type Invitation struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ResourceType string       `gorm:"type:text;not null;index:ix_invitations_resource,priority:1" json:"resource_type"`
	ResourceID   snowflake.ID `gorm:"not null;index:ix_invitations_resource,priority:2" json:"resource_id"`
	InviterID    snowflake.ID `gorm:"not null;index" json:"inviter_id"`
	Email        string       `gorm:"type:text;not null;index" json:"email"`
	Role         string       `gorm:"type:text;not null" json:"role"`
	Status       string       `gorm:"type:text;not null;default:'pending'" json:"status"`
	Token        string       `gorm:"type:text;not null;uniqueIndex:ux_invitations_token" json:"-"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt    time.Time    `gorm:"not null" json:"expires_at"`
	AcceptedAt   *time.Time   `json:"accepted_at,omitempty"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

// ShareLink is the single anonymous-access link of a resource. Toggling
// active never rotates the token.
type ShareLink struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ResourceType string       `gorm:"type:text;not null;uniqueIndex:ux_share_links_resource,priority:1" json:"resource_type"`
	ResourceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_share_links_resource,priority:2" json:"resource_id"`
	Token        string       `gorm:"type:text;not null;uniqueIndex:ux_share_links_token" json:"token"`
	Role         string       `gorm:"type:text;not null" json:"role"`
	Active       bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ShareLink) TableName() string { return "share_links" }

// GrantableRole reports whether role can be given to a collaborator.
func GrantableRole(role string) bool {
	switch role {
	case RoleEditor, RoleCommenter, RoleViewer:
		return true
	}
	return false
}

// LinkRole reports whether role is valid for a share link.
func LinkRole(role string) bool {
	return role == RoleViewer || role == RoleCommenter
}
