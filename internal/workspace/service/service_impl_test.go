package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/workhive/workhive/internal/clock"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/migration"
	"github.com/workhive/workhive/internal/workspace/domain"
	"github.com/workhive/workhive/internal/workspace/repository"
	"github.com/workhive/workhive/internal/workspace/service"
	"gorm.io/gorm"
)

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

func newService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(18)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC))
	return service.NewService(db, repository.NewRepository(db), node, clk), node
}

func TestEnsurePersonalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, node := newService(t)
	user := identitydomain.User{ID: node.Generate(), Username: "ana", DisplayName: "Ana Ruiz"}

	ws, err := svc.EnsurePersonal(ctx, user)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if ws.Type != domain.TypePersonal || ws.OwnerID != user.ID {
		t.Fatalf("unexpected workspace %+v", ws)
	}
	if ws.Name != "Ana Ruiz's workspace" || ws.Slug != "ana" {
		t.Fatalf("unexpected naming %+v", ws)
	}

	again, err := svc.EnsurePersonal(ctx, user)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if again.ID != ws.ID {
		t.Fatalf("expected the same workspace back, got %s and %s", ws.ID, again.ID)
	}

	member, err := svc.MembershipFor(ctx, ws.ID, user.ID)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if member.Role != domain.RoleOwner {
		t.Fatalf("expected the creator to be the owner, got %s", member.Role)
	}

	items, err := svc.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Role != domain.RoleOwner {
		t.Fatalf("unexpected list %+v", items)
	}
}

func TestAddMemberUpsertsRole(t *testing.T) {
	ctx := context.Background()
	svc, node := newService(t)
	owner := identitydomain.User{ID: node.Generate(), Username: "ana"}

	ws, err := svc.EnsurePersonal(ctx, owner)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	bobID := node.Generate()
	member, err := svc.AddMember(ctx, ws.ID, bobID, domain.RoleMember)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if member.Role != domain.RoleMember {
		t.Fatalf("unexpected role %s", member.Role)
	}

	// Re-adding with a different role updates in place.
	member, err = svc.AddMember(ctx, ws.ID, bobID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("re-add member: %v", err)
	}
	if member.Role != domain.RoleAdmin {
		t.Fatalf("expected the role to be updated, got %s", member.Role)
	}

	// Nobody hands out the owner role, and the owner's row is untouchable.
	if _, err := svc.AddMember(ctx, ws.ID, bobID, domain.RoleOwner); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := svc.AddMember(ctx, ws.ID, owner.ID, domain.RoleMember); !errors.Is(err, domain.ErrOwnerImmutable) {
		t.Fatalf("expected ErrOwnerImmutable, got %v", err)
	}
}
