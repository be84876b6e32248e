package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/resource"
)

type Service interface {
	// Record writes the activity, materializes its audience and hands the
	// pair to the notification dispatcher. The audience is owner plus
	// grantees plus workspace admins, minus the actor.
	Record(ctx context.Context, actor identitydomain.User, ref *resource.Ref, kind string, target map[string]any) (*Activity, error)

	Feed(ctx context.Context, userID snowflake.ID, q FeedQuery) ([]FeedItem, error)
	UnreadCount(ctx context.Context, userID snowflake.ID) (int64, error)
	// MarkRead is idempotent; already-read rows are untouched.
	MarkRead(ctx context.Context, userID snowflake.ID, activityIDs []string) error
	MarkAllRead(ctx context.Context, userID snowflake.ID) error
}

type FeedQuery struct {
	Limit      int
	Offset     int
	IncludeOwn bool
}

type FeedItem struct {
	Activity Activity `json:"activity"`
	Read     bool     `json:"read"`
	Own      bool     `json:"own"`
}

var (
	ErrUnknownKind = errors.New("unknown_action_kind")
	ErrNotFound    = errors.New("activity_not_found")
)
