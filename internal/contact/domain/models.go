// Package domain contains CRM contact and reminder models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Contact struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkspaceID   snowflake.ID `gorm:"not null;index" json:"workspace_id"`
	OwnerUsername string       `gorm:"type:text;not null" json:"owner_username"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Email         string       `gorm:"type:text;not null;default:''" json:"email"`
	Phone         string       `gorm:"type:text;not null;default:''" json:"phone"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Contact) TableName() string { return "contacts" }

// CRMReminder is a follow-up note attached to a contact.
type CRMReminder struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	WorkspaceID   snowflake.ID  `gorm:"not null;index" json:"workspace_id"`
	OwnerUsername string        `gorm:"type:text;not null" json:"owner_username"`
	ContactID     *snowflake.ID `gorm:"index" json:"contact_id,omitempty"`
	Title         string        `gorm:"type:text;not null" json:"title"`
	DueAt         *time.Time    `json:"due_at,omitempty"`
	Done          bool          `gorm:"not null;default:false" json:"done"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CRMReminder) TableName() string { return "crm_reminders" }
