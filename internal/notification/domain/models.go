// Package domain contains notification preferences and email dispatch
// bookkeeping.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	"gorm.io/datatypes"
)

// Digest cadences.
const (
	DigestInstant = "instant"
	DigestDaily   = "daily"
	DigestWeekly  = "weekly"
	DigestNone    = "none"
)

// Preference keys the notify_on map ranges over.
const (
	PrefComments          = "comments"
	PrefMentions          = "mentions"
	PrefInvitations       = "invitations"
	PrefPermissionChanges = "permission_changes"
	PrefTaskUpdates       = "task_updates"
	PrefResourceChanges   = "resource_changes"
)

// Dispatch statuses.
const (
	DispatchSent   = "sent"
	DispatchQueued = "queued"
)

// Preferences is one user's notification settings. Absent row means
// defaults: everything on, instant cadence.
type Preferences struct {
	UserID       snowflake.ID      `gorm:"primaryKey" json:"user_id"`
	EmailEnabled bool              `gorm:"not null;default:true" json:"email_enabled"`
	EmailDigest  string            `gorm:"type:text;not null;default:'instant'" json:"email_digest"`
	NotifyOn     datatypes.JSONMap `gorm:"not null;default:'{}'" json:"notify_on"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Preferences) TableName() string { return "notification_preferences" }

// EmailDispatch is the at-most-once record for one (activity, recipient)
// email. The unique index is the dedupe; a failed send leaves no row.
type EmailDispatch struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ActivityID  string       `gorm:"type:text;not null;uniqueIndex:ux_email_dispatches,priority:1" json:"activity_id"`
	RecipientID snowflake.ID `gorm:"not null;uniqueIndex:ux_email_dispatches,priority:2" json:"recipient_id"`
	Kind        string       `gorm:"type:text;not null" json:"kind"`
	Status      string       `gorm:"type:text;not null;default:'queued'" json:"status"`
	SendAfter   *time.Time   `json:"send_after,omitempty"`
	SentAt      *time.Time   `json:"sent_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (EmailDispatch) TableName() string { return "email_dispatches" }

// prefKeyFor maps an action kind to the preference key gating it.
var prefKeyFor = map[string]string{
	activitydomain.KindCommentAdded:       PrefComments,
	activitydomain.KindMention:            PrefMentions,
	activitydomain.KindInvitationSent:     PrefInvitations,
	activitydomain.KindInvitationAccepted: PrefInvitations,
	activitydomain.KindPermissionGranted:  PrefPermissionChanges,
	activitydomain.KindPermissionRevoked:  PrefPermissionChanges,
	activitydomain.KindTaskUpdated:        PrefTaskUpdates,
	activitydomain.KindResourceCreated:    PrefResourceChanges,
	activitydomain.KindResourceRenamed:    PrefResourceChanges,
	activitydomain.KindResourceDeleted:    PrefResourceChanges,
	activitydomain.KindPaymentAdded:       PrefResourceChanges,
}

// PrefKeyFor returns the preference key gating a kind.
func PrefKeyFor(kind string) (string, bool) {
	key, ok := prefKeyFor[kind]
	return key, ok
}

// emailWorthy is the closed set of kinds that may produce email at all.
var emailWorthy = map[string]struct{}{
	activitydomain.KindCommentAdded:       {},
	activitydomain.KindMention:            {},
	activitydomain.KindInvitationSent:     {},
	activitydomain.KindInvitationAccepted: {},
	activitydomain.KindPermissionGranted:  {},
	activitydomain.KindPermissionRevoked:  {},
}

// EmailWorthy reports whether a kind is allowed to email. Anything outside
// the set stays feed-only regardless of preferences.
func EmailWorthy(kind string) bool {
	_, ok := emailWorthy[kind]
	return ok
}

// Wants reports whether these preferences let kind through.
func (p Preferences) Wants(kind string) bool {
	key, ok := PrefKeyFor(kind)
	if !ok {
		return false
	}
	// Keys missing from the map default to on.
	raw, present := p.NotifyOn[key]
	if !present {
		return true
	}
	enabled, ok := raw.(bool)
	return !ok || enabled
}

// DefaultPreferences is what Get returns when no row exists.
func DefaultPreferences(userID snowflake.ID) Preferences {
	return Preferences{
		UserID:       userID,
		EmailEnabled: true,
		EmailDigest:  DigestInstant,
		NotifyOn:     datatypes.JSONMap{},
	}
}

var prefKeys = map[string]struct{}{
	PrefComments:          {},
	PrefMentions:          {},
	PrefInvitations:       {},
	PrefPermissionChanges: {},
	PrefTaskUpdates:       {},
	PrefResourceChanges:   {},
}

// ValidPrefKey reports whether key is one of the notify_on buckets.
func ValidPrefKey(key string) bool {
	_, ok := prefKeys[key]
	return ok
}

// ValidDigest reports whether d is a digest cadence.
func ValidDigest(d string) bool {
	switch d {
	case DigestInstant, DigestDaily, DigestWeekly, DigestNone:
		return true
	}
	return false
}
