// Package domain contains the board model. Card and checklist management is
// handled client side; the server only needs the row for access checks.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Board struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkspaceID   snowflake.ID `gorm:"not null;index" json:"workspace_id"`
	OwnerUsername string       `gorm:"type:text;not null" json:"owner_username"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Board) TableName() string { return "boards" }
