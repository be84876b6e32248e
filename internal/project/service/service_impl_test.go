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
	"github.com/workhive/workhive/internal/migration"
	"github.com/workhive/workhive/internal/project/domain"
	"github.com/workhive/workhive/internal/project/service"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
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

func newService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(16)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))
	return service.NewService(db, node, clk), db, node
}

func TestCreateSlugsTheName(t *testing.T) {
	ctx := context.Background()
	svc, _, node := newService(t)

	project, err := svc.Create(ctx, node.Generate(), "ana", "Q3 Launch Plan")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if project.Slug != "q3-launch-plan" {
		t.Fatalf("unexpected slug %q", project.Slug)
	}
}

func TestCreateReportsNameConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, node := newService(t)
	workspaceID := node.Generate()

	first, err := svc.Create(ctx, workspaceID, "ana", "Roadmap")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Create(ctx, workspaceID, "ana", "Roadmap")
	var conflict *domain.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NameConflictError, got %v", err)
	}
	if conflict.ExistingID != first.ID || conflict.ExistingName != "Roadmap" {
		t.Fatalf("unexpected conflict %+v", conflict)
	}
	if !errors.Is(err, domain.ErrNameConflict) {
		t.Fatalf("expected the conflict to match the sentinel")
	}

	// The name is only unique per owner.
	if _, err := svc.Create(ctx, workspaceID, "bob", "Roadmap"); err != nil {
		t.Fatalf("other owner: %v", err)
	}
}

func TestRenameReportsNameConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, node := newService(t)
	workspaceID := node.Generate()

	taken, err := svc.Create(ctx, workspaceID, "ana", "Roadmap")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	project, err := svc.Create(ctx, workspaceID, "ana", "Scratch")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Rename(ctx, project.ID, "Roadmap")
	var conflict *domain.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NameConflictError, got %v", err)
	}
	if conflict.ExistingID != taken.ID {
		t.Fatalf("expected conflict with %s, got %+v", taken.ID, conflict)
	}

	renamed, err := svc.Rename(ctx, project.ID, "Scratch Pad")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Scratch Pad" || renamed.Slug != "scratch-pad" {
		t.Fatalf("unexpected rename result %+v", renamed)
	}
}

func TestDeleteCascadesSharingRows(t *testing.T) {
	ctx := context.Background()
	svc, db, node := newService(t)

	project, err := svc.Create(ctx, node.Generate(), "ana", "Roadmap")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	rows := []any{
		&sharingdomain.Grant{
			ID: node.Generate(), ResourceType: "mindmap_project", ResourceID: project.ID,
			UserID: node.Generate(), Role: sharingdomain.RoleEditor, CreatedAt: now,
		},
		&sharingdomain.Invitation{
			ID: node.Generate(), ResourceType: "mindmap_project", ResourceID: project.ID,
			InviterID: node.Generate(), Email: "bob@example.com", Role: sharingdomain.RoleViewer,
			Status: sharingdomain.StatusPending, Token: "tok-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		},
		&sharingdomain.ShareLink{
			ID: node.Generate(), ResourceType: "mindmap_project", ResourceID: project.ID,
			Token: "tok-2", Role: sharingdomain.RoleViewer, Active: true, CreatedAt: now,
		},
	}
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed sharing row: %v", err)
		}
	}

	if err := svc.Delete(ctx, project.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, model := range []any{&sharingdomain.Grant{}, &sharingdomain.Invitation{}, &sharingdomain.ShareLink{}} {
		var count int64
		if err := db.Model(model).Where("resource_id = ?", project.ID).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Fatalf("expected sharing rows for %T to be gone, found %d", model, count)
		}
	}

	if _, err := svc.GetByID(ctx, project.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, project.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
