// Package domain contains the session model and the auth contract consumed
// by the HTTP layer.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session is a bearer-token login session.
type Session struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	Token     string       `gorm:"type:text;not null;uniqueIndex:ux_sessions_token" json:"-"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
