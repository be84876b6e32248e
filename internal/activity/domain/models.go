// Package domain contains the activity log models. Activity IDs are ULIDs,
// so lexicographic order is creation order with a monotonic tie-break.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action kinds. Closed set; Record rejects anything else.
const (
	KindCommentAdded       = "comment_added"
	KindMention            = "mention"
	KindInvitationSent     = "invitation_sent"
	KindInvitationAccepted = "invitation_accepted"
	KindPermissionGranted  = "permission_granted"
	KindPermissionRevoked  = "permission_revoked"
	KindTaskUpdated        = "task_updated"
	KindResourceCreated    = "resource_created"
	KindResourceRenamed    = "resource_renamed"
	KindResourceDeleted    = "resource_deleted"
	KindPaymentAdded       = "payment_added"
)

// KnownKind reports whether kind belongs to the action enum.
func KnownKind(kind string) bool {
	switch kind {
	case KindCommentAdded, KindMention, KindInvitationSent, KindInvitationAccepted,
		KindPermissionGranted, KindPermissionRevoked, KindTaskUpdated,
		KindResourceCreated, KindResourceRenamed, KindResourceDeleted,
		KindPaymentAdded:
		return true
	}
	return false
}

type Activity struct {
	ID           string            `gorm:"primaryKey;type:text" json:"id"`
	WorkspaceID  snowflake.ID      `gorm:"not null;index" json:"workspace_id"`
	ResourceType string            `gorm:"type:text;not null;default:'';index:ix_activities_resource,priority:1" json:"resource_type,omitempty"`
	ResourceID   snowflake.ID      `gorm:"not null;default:0;index:ix_activities_resource,priority:2" json:"resource_id,omitempty"`
	ActorID      snowflake.ID      `gorm:"not null" json:"actor_id"`
	Kind         string            `gorm:"type:text;not null" json:"kind"`
	Target       datatypes.JSONMap `gorm:"not null;default:'{}'" json:"target"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Activity) TableName() string { return "activities" }

// Recipient materializes one user's view of one activity. The actor gets a
// pre-read row so their own actions never show as unread.
type Recipient struct {
	ActivityID string       `gorm:"primaryKey;type:text" json:"activity_id"`
	UserID     snowflake.ID `gorm:"primaryKey" json:"user_id"`
	Actor      bool         `gorm:"not null;default:false" json:"actor"`
	ReadAt     *time.Time   `json:"read_at,omitempty"`
}

// TableName sets the database table name.
func (Recipient) TableName() string { return "activity_recipients" }
