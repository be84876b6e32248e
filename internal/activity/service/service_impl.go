package service

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	"github.com/workhive/workhive/internal/clock"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	notificationdomain "github.com/workhive/workhive/internal/notification/domain"
	"github.com/workhive/workhive/internal/resource"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
	workspacedomain "github.com/workhive/workhive/internal/workspace/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 100
)

type service struct {
	db         *gorm.DB
	resolver   resource.Resolver
	grants     sharingdomain.Repository
	workspaces workspacedomain.Repository
	users      identitydomain.Service
	dispatcher notificationdomain.Dispatcher
	clock      clock.Clock
	log        *zap.Logger

	// ULIDs share one monotonic entropy source so same-millisecond
	// activities still order.
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewService(
	conn *gorm.DB,
	resolver resource.Resolver,
	grants sharingdomain.Repository,
	workspaces workspacedomain.Repository,
	users identitydomain.Service,
	dispatcher notificationdomain.Dispatcher,
	clk clock.Clock,
	log *zap.Logger,
) activitydomain.Service {
	return &service{
		db:         conn,
		resolver:   resolver,
		grants:     grants,
		workspaces: workspaces,
		users:      users,
		dispatcher: dispatcher,
		clock:      clk,
		log:        log.Named("activity"),
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *service) Record(ctx context.Context, actor identitydomain.User, ref *resource.Ref, kind string, target map[string]any) (*activitydomain.Activity, error) {
	if !activitydomain.KnownKind(kind) {
		return nil, activitydomain.ErrUnknownKind
	}

	now := s.clock.Now()
	activity := activitydomain.Activity{
		ID:        s.newID(now),
		ActorID:   actor.ID,
		Kind:      kind,
		Target:    datatypes.JSONMap(target),
		CreatedAt: now,
	}
	if activity.Target == nil {
		activity.Target = datatypes.JSONMap{}
	}

	var audience []snowflake.ID
	if ref != nil {
		info, err := s.resolver.Resolve(ctx, *ref)
		if err != nil {
			return nil, err
		}
		activity.ResourceType = ref.Type
		activity.ResourceID = ref.ID
		activity.WorkspaceID = info.WorkspaceID

		audience, err = s.audienceFor(ctx, info, actor.ID)
		if err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}

		recipients := make([]activitydomain.Recipient, 0, len(audience)+1)
		readAt := now
		recipients = append(recipients, activitydomain.Recipient{
			ActivityID: activity.ID,
			UserID:     actor.ID,
			Actor:      true,
			ReadAt:     &readAt,
		})
		for _, userID := range audience {
			recipients = append(recipients, activitydomain.Recipient{
				ActivityID: activity.ID,
				UserID:     userID,
			})
		}
		return tx.Create(&recipients).Error
	})
	if err != nil {
		return nil, err
	}

	if len(audience) > 0 {
		s.dispatcher.Dispatch(ctx, activity, audience)
	}
	return &activity, nil
}

func (s *service) Feed(ctx context.Context, userID snowflake.ID, q activitydomain.FeedQuery) ([]activitydomain.FeedItem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("activity_id DESC").
		Limit(limit).
		Offset(offset)
	if !q.IncludeOwn {
		query = query.Where("actor = ?", false)
	}

	var recipients []activitydomain.Recipient
	if err := query.Find(&recipients).Error; err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return []activitydomain.FeedItem{}, nil
	}

	ids := make([]string, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ActivityID)
	}
	var activities []activitydomain.Activity
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&activities).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]activitydomain.Activity, len(activities))
	for _, a := range activities {
		byID[a.ID] = a
	}

	items := make([]activitydomain.FeedItem, 0, len(recipients))
	for _, r := range recipients {
		activity, ok := byID[r.ActivityID]
		if !ok {
			continue
		}
		items = append(items, activitydomain.FeedItem{
			Activity: activity,
			Read:     r.ReadAt != nil,
			Own:      r.Actor,
		})
	}
	return items, nil
}

func (s *service) UnreadCount(ctx context.Context, userID snowflake.ID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&activitydomain.Recipient{}).
		Where("user_id = ? AND actor = ? AND read_at IS NULL", userID, false).
		Count(&count).Error
	return count, err
}

func (s *service) MarkRead(ctx context.Context, userID snowflake.ID, activityIDs []string) error {
	if len(activityIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&activitydomain.Recipient{}).
		Where("user_id = ? AND activity_id IN ? AND read_at IS NULL", userID, activityIDs).
		Update("read_at", s.clock.Now()).Error
}

func (s *service) MarkAllRead(ctx context.Context, userID snowflake.ID) error {
	return s.db.WithContext(ctx).Model(&activitydomain.Recipient{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", s.clock.Now()).Error
}

// audienceFor is owner plus grantees plus workspace admins, minus the actor.
func (s *service) audienceFor(ctx context.Context, info *resource.Info, actorID snowflake.ID) ([]snowflake.ID, error) {
	seen := make(map[snowflake.ID]struct{})
	var audience []snowflake.ID
	add := func(id snowflake.ID) {
		if id == actorID || id == 0 {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		audience = append(audience, id)
	}

	owner, err := s.users.GetByUsername(ctx, info.OwnerUsername)
	if err == nil {
		add(owner.ID)
	} else if !errors.Is(err, identitydomain.ErrNotFound) {
		return nil, err
	}

	grants, err := s.grants.GrantsFor(ctx, info.Ref.Type, info.Ref.ID)
	if err != nil {
		return nil, err
	}
	for _, grant := range grants {
		add(grant.UserID)
	}

	admins, err := s.workspaces.AdminIDs(ctx, info.WorkspaceID)
	if err != nil {
		return nil, err
	}
	for _, id := range admins {
		add(id)
	}
	return audience, nil
}

func (s *service) newID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(uint64(now.UnixMilli()), s.entropy).String()
}
