package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
)

type Service interface {
	// Get returns stored preferences or defaults when the user has none.
	Get(ctx context.Context, userID snowflake.ID) (*Preferences, error)
	Update(ctx context.Context, userID snowflake.ID, req UpdatePreferencesRequest) (*Preferences, error)
}

// Dispatcher fans one recorded activity out to its audience's inboxes.
type Dispatcher interface {
	Dispatch(ctx context.Context, activity activitydomain.Activity, recipientIDs []snowflake.ID)
}

type UpdatePreferencesRequest struct {
	EmailEnabled *bool           `json:"email_enabled,omitempty"`
	EmailDigest  *string         `json:"email_digest,omitempty"`
	NotifyOn     map[string]bool `json:"notify_on,omitempty"`
}

var (
	ErrInvalidDigest     = errors.New("invalid_digest")
	ErrInvalidPreference = errors.New("invalid_preference")
)
