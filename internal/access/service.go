// Package access decides whether a user may act on a resource. Role
// capabilities live in a casbin role hierarchy; which role a user holds on a
// resource comes from ownership, explicit grants and workspace membership,
// checked in that order.
package access

import (
	"context"
	_ "embed"
	"errors"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/resource"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
	workspacedomain "github.com/workhive/workhive/internal/workspace/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

// Actions on a resource, weakest first.
const (
	ActionRead          = "read"
	ActionComment       = "comment"
	ActionWrite         = "write"
	ActionManageSharing = "manage-sharing"
	ActionDelete        = "delete"
)

// ErrForbidden is deliberately silent about whether the resource exists.
var ErrForbidden = errors.New("forbidden")

type Service interface {
	// MayAct returns nil when user may perform action on the resource.
	MayAct(ctx context.Context, user identitydomain.User, ref resource.Ref, action string) error
	// MayActViaLink checks a share-link role against an action. The link
	// admits exactly one resource and never consults grants.
	MayActViaLink(link sharingdomain.ShareLink, action string) error
	// RoleOn reports the effective role, or "" when the user has none.
	RoleOn(ctx context.Context, user identitydomain.User, ref resource.Ref) (string, error)
}

type service struct {
	resolver   resource.Resolver
	grants     sharingdomain.Repository
	workspaces workspacedomain.Repository
	enforcer   *casbin.SyncedEnforcer
	log        *zap.Logger
}

func NewService(
	resolver resource.Resolver,
	grants sharingdomain.Repository,
	workspaces workspacedomain.Repository,
	enforcer *casbin.SyncedEnforcer,
	log *zap.Logger,
) Service {
	return &service{
		resolver:   resolver,
		grants:     grants,
		workspaces: workspaces,
		enforcer:   enforcer,
		log:        log.Named("access"),
	}
}

// NewEnforcer loads the role-capability table, persisting policies through
// the gorm adapter so every instance shares one view.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func (s *service) MayAct(ctx context.Context, user identitydomain.User, ref resource.Ref, action string) error {
	role, err := s.RoleOn(ctx, user, ref)
	if err != nil {
		return err
	}
	if role == "" {
		return ErrForbidden
	}
	return s.enforce(role, action)
}

func (s *service) MayActViaLink(link sharingdomain.ShareLink, action string) error {
	return s.enforce(link.Role, action)
}

func (s *service) RoleOn(ctx context.Context, user identitydomain.User, ref resource.Ref) (string, error) {
	info, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		// A missing resource answers the same way as a forbidden one.
		if errors.Is(err, resource.ErrNotFound) || errors.Is(err, resource.ErrUnknownType) {
			return "", ErrForbidden
		}
		return "", err
	}

	if info.OwnerUsername == user.Username {
		return sharingdomain.RoleOwner, nil
	}

	grant, err := s.grants.GrantFor(ctx, ref.Type, ref.ID, user.ID)
	if err != nil {
		return "", err
	}
	if grant != nil {
		return grant.Role, nil
	}

	member, err := s.workspaces.MembershipFor(ctx, info.WorkspaceID, user.ID)
	if err != nil {
		if errors.Is(err, workspacedomain.ErrNotMember) {
			return "", nil
		}
		return "", err
	}
	switch member.Role {
	case workspacedomain.RoleOwner, workspacedomain.RoleAdmin:
		return "admin", nil
	default:
		return sharingdomain.RoleViewer, nil
	}
}

func (s *service) enforce(role, action string) error {
	allowed, err := s.enforcer.Enforce("role:"+role, action)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// seedPolicies writes the capability table: each role adds one capability on
// top of the role below it.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:viewer", ActionRead},
		{"role:commenter", ActionComment},
		{"role:editor", ActionWrite},
		{"role:admin", ActionManageSharing},
		{"role:owner", ActionDelete},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{"role:commenter", "role:viewer"},
		{"role:editor", "role:commenter"},
		{"role:admin", "role:editor"},
		{"role:owner", "role:admin"},
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping); err != nil {
			return err
		}
	}
	return nil
}
