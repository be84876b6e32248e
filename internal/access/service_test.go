package access_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/workhive/workhive/internal/access"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/migration"
	"github.com/workhive/workhive/internal/resource"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
	sharingrepo "github.com/workhive/workhive/internal/sharing/repository"
	workspacedomain "github.com/workhive/workhive/internal/workspace/domain"
	workspacerepo "github.com/workhive/workhive/internal/workspace/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeResolver struct {
	infos map[resource.Ref]*resource.Info
}

func (r *fakeResolver) Resolve(ctx context.Context, ref resource.Ref) (*resource.Info, error) {
	info, ok := r.infos[ref]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return info, nil
}

type fixture struct {
	db      *gorm.DB
	svc     access.Service
	grants  sharingdomain.Repository
	members workspacedomain.Repository
	node    *snowflake.Node

	workspaceID snowflake.ID
	ref         resource.Ref
	owner       identitydomain.User
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	workspaceID := node.Generate()
	ref := resource.Ref{Type: resource.TypeProject, ID: node.Generate()}
	resolver := &fakeResolver{infos: map[resource.Ref]*resource.Info{
		ref: {Ref: ref, WorkspaceID: workspaceID, OwnerUsername: "ana", Name: "Roadmap"},
	}}

	enforcer, err := access.NewEnforcer(db)
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}

	grants := sharingrepo.NewRepository(db)
	members := workspacerepo.NewRepository(db)
	svc := access.NewService(resolver, grants, members, enforcer, zap.NewNop())

	return &fixture{
		db:          db,
		svc:         svc,
		grants:      grants,
		members:     members,
		node:        node,
		workspaceID: workspaceID,
		ref:         ref,
		owner:       identitydomain.User{ID: node.Generate(), Username: "ana"},
	}
}

func (f *fixture) grant(t *testing.T, user identitydomain.User, role string) {
	t.Helper()
	_, err := f.grants.UpsertGrant(context.Background(), sharingdomain.Grant{
		ID:           f.node.Generate(),
		ResourceType: f.ref.Type,
		ResourceID:   f.ref.ID,
		UserID:       user.ID,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed grant: %v", err)
	}
}

func (f *fixture) member(t *testing.T, user identitydomain.User, role string) {
	t.Helper()
	err := f.members.AddMember(context.Background(), workspacedomain.Membership{
		ID:          f.node.Generate(),
		WorkspaceID: f.workspaceID,
		UserID:      user.ID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed membership: %v", err)
	}
}

func TestOwnerMayDoEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, action := range []string{
		access.ActionRead, access.ActionComment, access.ActionWrite,
		access.ActionManageSharing, access.ActionDelete,
	} {
		if err := f.svc.MayAct(ctx, f.owner, f.ref, action); err != nil {
			t.Fatalf("owner %s: %v", action, err)
		}
	}
}

func TestStrangerMayDoNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stranger := identitydomain.User{ID: f.node.Generate(), Username: "sam"}
	if err := f.svc.MayAct(ctx, stranger, f.ref, access.ActionRead); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	role, err := f.svc.RoleOn(ctx, stranger, f.ref)
	if err != nil {
		t.Fatalf("role on: %v", err)
	}
	if role != "" {
		t.Fatalf("expected no role, got %q", role)
	}
}

func TestMissingResourceLooksForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ghost := resource.Ref{Type: resource.TypeProject, ID: f.node.Generate()}
	if err := f.svc.MayAct(ctx, f.owner, ghost, access.ActionRead); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for missing resource, got %v", err)
	}
}

func TestRoleHierarchy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		role    string
		allowed []string
		denied  []string
	}{
		{
			role:    sharingdomain.RoleViewer,
			allowed: []string{access.ActionRead},
			denied:  []string{access.ActionComment, access.ActionWrite, access.ActionManageSharing, access.ActionDelete},
		},
		{
			role:    sharingdomain.RoleCommenter,
			allowed: []string{access.ActionRead, access.ActionComment},
			denied:  []string{access.ActionWrite, access.ActionManageSharing, access.ActionDelete},
		},
		{
			role:    sharingdomain.RoleEditor,
			allowed: []string{access.ActionRead, access.ActionComment, access.ActionWrite},
			denied:  []string{access.ActionManageSharing, access.ActionDelete},
		},
	}

	for _, tc := range cases {
		user := identitydomain.User{ID: f.node.Generate(), Username: "u-" + tc.role}
		f.grant(t, user, tc.role)

		for _, action := range tc.allowed {
			if err := f.svc.MayAct(ctx, user, f.ref, action); err != nil {
				t.Fatalf("%s should allow %s: %v", tc.role, action, err)
			}
		}
		for _, action := range tc.denied {
			if err := f.svc.MayAct(ctx, user, f.ref, action); !errors.Is(err, access.ErrForbidden) {
				t.Fatalf("%s should deny %s, got %v", tc.role, action, err)
			}
		}
	}
}

func TestWorkspaceMembershipFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Plain members read workspace resources but nothing more.
	member := identitydomain.User{ID: f.node.Generate(), Username: "max"}
	f.member(t, member, workspacedomain.RoleMember)

	if err := f.svc.MayAct(ctx, member, f.ref, access.ActionRead); err != nil {
		t.Fatalf("member read: %v", err)
	}
	if err := f.svc.MayAct(ctx, member, f.ref, access.ActionComment); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected member comment to be denied, got %v", err)
	}

	// Workspace admins manage sharing but cannot delete.
	admin := identitydomain.User{ID: f.node.Generate(), Username: "ada"}
	f.member(t, admin, workspacedomain.RoleAdmin)

	if err := f.svc.MayAct(ctx, admin, f.ref, access.ActionManageSharing); err != nil {
		t.Fatalf("admin manage-sharing: %v", err)
	}
	if err := f.svc.MayAct(ctx, admin, f.ref, access.ActionDelete); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected admin delete to be denied, got %v", err)
	}
}

func TestExplicitGrantBeatsMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user := identitydomain.User{ID: f.node.Generate(), Username: "eve"}
	f.member(t, user, workspacedomain.RoleMember)
	f.grant(t, user, sharingdomain.RoleEditor)

	role, err := f.svc.RoleOn(ctx, user, f.ref)
	if err != nil {
		t.Fatalf("role on: %v", err)
	}
	if role != sharingdomain.RoleEditor {
		t.Fatalf("expected editor, got %q", role)
	}
}

func TestLinkRoleNeverElevates(t *testing.T) {
	f := newFixture(t)

	viewerLink := sharingdomain.ShareLink{Role: sharingdomain.RoleViewer}
	if err := f.svc.MayActViaLink(viewerLink, access.ActionRead); err != nil {
		t.Fatalf("viewer link read: %v", err)
	}
	if err := f.svc.MayActViaLink(viewerLink, access.ActionComment); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected viewer link comment to be denied, got %v", err)
	}

	commenterLink := sharingdomain.ShareLink{Role: sharingdomain.RoleCommenter}
	if err := f.svc.MayActViaLink(commenterLink, access.ActionComment); err != nil {
		t.Fatalf("commenter link comment: %v", err)
	}
	if err := f.svc.MayActViaLink(commenterLink, access.ActionWrite); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected commenter link write to be denied, got %v", err)
	}
}
