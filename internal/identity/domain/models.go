// Package domain contains persistence models for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"

	ProviderLocal     = "local"
	ProviderFederated = "federated"
)

// Reminder stages for unverified local accounts, checked highest first.
const (
	Stage24h = "24h"
	Stage72h = "72h"
	Stage7d  = "7d"
)

// User is an account. Federated users are always email verified.
type User struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Username      string       `gorm:"type:text;not null;uniqueIndex:ux_users_username" json:"username"`
	Email         string       `gorm:"type:text;index" json:"email"`
	DisplayName   string       `gorm:"type:text;not null;default:''" json:"display_name"`
	Role          string       `gorm:"type:text;not null;default:'member'" json:"role"`
	AuthProvider  string       `gorm:"type:text;not null;default:'local'" json:"auth_provider"`
	EmailVerified bool         `gorm:"not null;default:false" json:"email_verified"`
	Plan          string       `gorm:"type:text;not null;default:'free'" json:"plan"`
	PlanOverride  bool         `gorm:"not null;default:false" json:"plan_override"`
	Disabled      bool         `gorm:"not null;default:false" json:"-"`
	PasswordHash  string       `gorm:"type:text;not null;default:''" json:"-"`

	Reminder24hSentAt *time.Time `gorm:"column:reminder_24h_sent_at" json:"-"`
	Reminder72hSentAt *time.Time `gorm:"column:reminder_72h_sent_at" json:"-"`
	Reminder7dSentAt  *time.Time `gorm:"column:reminder_7d_sent_at" json:"-"`
	LastResendAt      *time.Time `gorm:"column:last_resend_at" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// ReminderSentAt returns the dispatch timestamp recorded for a stage.
func (u User) ReminderSentAt(stage string) *time.Time {
	switch stage {
	case Stage24h:
		return u.Reminder24hSentAt
	case Stage72h:
		return u.Reminder72hSentAt
	case Stage7d:
		return u.Reminder7dSentAt
	}
	return nil
}

// VerificationToken is the single outstanding email-verification token for a
// user. Rotated in place when expired.
type VerificationToken struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_verification_tokens_user" json:"user_id"`
	Token     string       `gorm:"type:text;not null;uniqueIndex:ux_verification_tokens_token" json:"-"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (VerificationToken) TableName() string { return "verification_tokens" }
