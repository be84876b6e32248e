package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/resource"
)

// Service owns grants, invitations and share links. Permission checks on the
// acting user happen in the access layer before these are called.
type Service interface {
	SetGrant(ctx context.Context, ref resource.Ref, userID snowflake.ID, role string) (*Grant, error)
	RevokeGrant(ctx context.Context, ref resource.Ref, userID snowflake.ID) error
	GrantsFor(ctx context.Context, ref resource.Ref) ([]Grant, error)
	GrantFor(ctx context.Context, ref resource.Ref, userID snowflake.ID) (*Grant, error)
	// SharedWithUser is the reverse index behind "shared with me".
	SharedWithUser(ctx context.Context, userID snowflake.ID) ([]Grant, error)

	CreateInvitation(ctx context.Context, inviter identitydomain.User, ref resource.Ref, email, role string) (*Invitation, error)
	AcceptInvitation(ctx context.Context, user identitydomain.User, invitationID snowflake.ID) (*Grant, error)
	RevokeInvitation(ctx context.Context, invitationID snowflake.ID) error
	GetInvitation(ctx context.Context, invitationID snowflake.ID) (*Invitation, error)
	ListPendingForEmail(ctx context.Context, email string) ([]Invitation, error)

	CreateShareLink(ctx context.Context, ref resource.Ref, role string) (*ShareLink, error)
	ToggleShareLink(ctx context.Context, ref resource.Ref, active bool) (*ShareLink, error)
	ResolveShareToken(ctx context.Context, token string) (*ShareLink, *resource.Info, error)
}

var (
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrSelfInvite         = errors.New("self_invite")
	ErrPlanLimited        = errors.New("plan_limited")
	ErrInvitationNotFound = errors.New("invitation_not_found")
	ErrInvitationExpired  = errors.New("invitation_expired")
	ErrWrongUser          = errors.New("invitation_wrong_user")
	ErrAlreadyConsumed    = errors.New("invitation_already_consumed")
	ErrLinkNotFound       = errors.New("share_link_not_found")
	ErrEmailDelivery      = errors.New("email_delivery_failed")
)
