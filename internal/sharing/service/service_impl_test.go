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
	"github.com/workhive/workhive/internal/config"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/migration"
	"github.com/workhive/workhive/internal/resource"
	"github.com/workhive/workhive/internal/sharing/domain"
	"github.com/workhive/workhive/internal/sharing/repository"
	"github.com/workhive/workhive/internal/sharing/service"
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

type sentMail struct {
	to       []string
	template string
	data     map[string]any
}

type captureMailer struct {
	sent []sentMail
	fail bool
}

func (m *captureMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return nil
}

func (m *captureMailer) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{to: to, template: templateName, data: data})
	return nil
}

type fixture struct {
	db     *gorm.DB
	svc    domain.Service
	mailer *captureMailer
	clk    *clock.FakeClock
	node   *snowflake.Node
	ref    resource.Ref
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
	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	mailer := &captureMailer{}
	plans, err := config.NewPlanConfigHolder()
	if err != nil {
		t.Fatalf("plan config: %v", err)
	}

	ref := resource.Ref{Type: resource.TypeProject, ID: node.Generate()}
	resolver := &fakeResolver{infos: map[resource.Ref]*resource.Info{
		ref: {Ref: ref, WorkspaceID: node.Generate(), OwnerUsername: "ana", Name: "Roadmap"},
	}}

	svc := service.NewService(
		db,
		repository.NewRepository(db),
		resolver,
		plans,
		mailer,
		config.Config{PublicBaseURL: "https://app.example.com/"},
		node,
		clk,
		zap.NewNop(),
	)

	return &fixture{db: db, svc: svc, mailer: mailer, clk: clk, node: node, ref: ref}
}

func inviter(node *snowflake.Node, plan string) identitydomain.User {
	return identitydomain.User{
		ID:            node.Generate(),
		Username:      "ana",
		Email:         "ana@example.com",
		EmailVerified: true,
		Plan:          plan,
	}
}

func TestCreateInvitationRejectsSelfInvite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := inviter(f.node, "free")

	if _, err := f.svc.CreateInvitation(ctx, ana, f.ref, "Ana@Example.com", domain.RoleEditor); !errors.Is(err, domain.ErrSelfInvite) {
		t.Fatalf("expected ErrSelfInvite, got %v", err)
	}
}

func TestCreateInvitationSupersedesPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := inviter(f.node, "free")

	first, err := f.svc.CreateInvitation(ctx, ana, f.ref, "bob@example.com", domain.RoleViewer)
	if err != nil {
		t.Fatalf("first invite: %v", err)
	}

	f.clk.Advance(48 * time.Hour)

	second, err := f.svc.CreateInvitation(ctx, ana, f.ref, "BOB@example.com", domain.RoleEditor)
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected the pending row to be reused, got new id %s", second.ID)
	}
	if second.Role != domain.RoleEditor {
		t.Fatalf("expected role to be updated, got %s", second.Role)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("expected expiry to be pushed out")
	}

	var count int64
	if err := f.db.Model(&domain.Invitation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 invitation row, got %d", count)
	}
	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(f.mailer.sent))
	}
}

func TestCreateInvitationEnforcesPlanLimits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := inviter(f.node, "free")

	// Free plan caps collaborators per resource at 5.
	for i := 0; i < 5; i++ {
		if _, err := f.svc.SetGrant(ctx, f.ref, f.node.Generate(), domain.RoleViewer); err != nil {
			t.Fatalf("seed grant %d: %v", i, err)
		}
	}

	if _, err := f.svc.CreateInvitation(ctx, ana, f.ref, "late@example.com", domain.RoleViewer); !errors.Is(err, domain.ErrPlanLimited) {
		t.Fatalf("expected ErrPlanLimited, got %v", err)
	}

	// Business plan is unlimited.
	ana.Plan = "business"
	if _, err := f.svc.CreateInvitation(ctx, ana, f.ref, "late@example.com", domain.RoleViewer); err != nil {
		t.Fatalf("business invite: %v", err)
	}
}

func TestCreateInvitationReportsEmailFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mailer.fail = true
	ana := inviter(f.node, "free")

	inv, err := f.svc.CreateInvitation(ctx, ana, f.ref, "bob@example.com", domain.RoleViewer)
	if !errors.Is(err, domain.ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}
	if inv == nil {
		t.Fatalf("expected the invitation row to survive the send failure")
	}

	var count int64
	if err := f.db.Model(&domain.Invitation{}).Where("status = ?", domain.StatusPending).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the pending row to persist, got %d", count)
	}
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := inviter(f.node, "free")

	inv, err := f.svc.CreateInvitation(ctx, ana, f.ref, "bob@example.com", domain.RoleEditor)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	bob := identitydomain.User{
		ID:            f.node.Generate(),
		Username:      "bob",
		Email:         "Bob@Example.com",
		EmailVerified: true,
	}

	// Unverified accounts cannot accept.
	unverified := bob
	unverified.EmailVerified = false
	if _, err := f.svc.AcceptInvitation(ctx, unverified, inv.ID); !errors.Is(err, domain.ErrWrongUser) {
		t.Fatalf("expected ErrWrongUser for unverified account, got %v", err)
	}

	// Neither can an account with a different primary address.
	carol := identitydomain.User{ID: f.node.Generate(), Username: "carol", Email: "carol@example.com", EmailVerified: true}
	if _, err := f.svc.AcceptInvitation(ctx, carol, inv.ID); !errors.Is(err, domain.ErrWrongUser) {
		t.Fatalf("expected ErrWrongUser for mismatched email, got %v", err)
	}

	grant, err := f.svc.AcceptInvitation(ctx, bob, inv.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if grant.UserID != bob.ID || grant.Role != domain.RoleEditor {
		t.Fatalf("unexpected grant %+v", grant)
	}

	// Accepted is terminal.
	if _, err := f.svc.AcceptInvitation(ctx, bob, inv.ID); !errors.Is(err, domain.ErrAlreadyConsumed) {
		t.Fatalf("expected ErrAlreadyConsumed on second accept, got %v", err)
	}
}

func TestAcceptInvitationExpiresLazily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := inviter(f.node, "free")

	inv, err := f.svc.CreateInvitation(ctx, ana, f.ref, "bob@example.com", domain.RoleViewer)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	f.clk.Advance(8 * 24 * time.Hour)

	bob := identitydomain.User{ID: f.node.Generate(), Username: "bob", Email: "bob@example.com", EmailVerified: true}
	if _, err := f.svc.AcceptInvitation(ctx, bob, inv.ID); !errors.Is(err, domain.ErrInvitationExpired) {
		t.Fatalf("expected ErrInvitationExpired, got %v", err)
	}

	stored, err := f.svc.GetInvitation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusExpired {
		t.Fatalf("expected stored status expired, got %s", stored.Status)
	}
}

func TestRevokeInvitationIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ana := inviter(f.node, "free")

	inv, err := f.svc.CreateInvitation(ctx, ana, f.ref, "bob@example.com", domain.RoleViewer)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := f.svc.RevokeInvitation(ctx, inv.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := f.svc.RevokeInvitation(ctx, inv.ID); !errors.Is(err, domain.ErrAlreadyConsumed) {
		t.Fatalf("expected ErrAlreadyConsumed on second revoke, got %v", err)
	}

	bob := identitydomain.User{ID: f.node.Generate(), Username: "bob", Email: "bob@example.com", EmailVerified: true}
	if _, err := f.svc.AcceptInvitation(ctx, bob, inv.ID); !errors.Is(err, domain.ErrAlreadyConsumed) {
		t.Fatalf("expected ErrAlreadyConsumed accepting a revoked invite, got %v", err)
	}
}

func TestShareLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.CreateShareLink(ctx, f.ref, domain.RoleViewer)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	// Repeat creates return the same link; the token never rotates.
	second, err := f.svc.CreateShareLink(ctx, f.ref, domain.RoleCommenter)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ID != first.ID || second.Token != first.Token || second.Role != domain.RoleViewer {
		t.Fatalf("expected a stable link, got %+v", second)
	}

	link, info, err := f.svc.ResolveShareToken(ctx, first.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if link.ID != first.ID || info.Name != "Roadmap" {
		t.Fatalf("unexpected resolve result link=%+v info=%+v", link, info)
	}

	if _, err := f.svc.ToggleShareLink(ctx, f.ref, false); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if _, _, err := f.svc.ResolveShareToken(ctx, first.Token); !errors.Is(err, domain.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound for inactive link, got %v", err)
	}

	reEnabled, err := f.svc.ToggleShareLink(ctx, f.ref, true)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if reEnabled.Token != first.Token {
		t.Fatalf("expected token to survive the toggle")
	}
	if _, _, err := f.svc.ResolveShareToken(ctx, first.Token); err != nil {
		t.Fatalf("resolve after re-enable: %v", err)
	}
}

func TestShareLinkRejectsEditorRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.CreateShareLink(ctx, f.ref, domain.RoleEditor); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}
