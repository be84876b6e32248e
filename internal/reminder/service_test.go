package reminder_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/config"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	identityrepo "github.com/workhive/workhive/internal/identity/repository"
	identityservice "github.com/workhive/workhive/internal/identity/service"
	"github.com/workhive/workhive/internal/migration"
	"github.com/workhive/workhive/internal/notification/dispatch"
	notificationservice "github.com/workhive/workhive/internal/notification/service"
	"github.com/workhive/workhive/internal/providers/email"
	"github.com/workhive/workhive/internal/reminder"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMail struct {
	to       []string
	template string
	data     map[string]any
}

type captureMailer struct {
	sent []sentMail
	fail bool
}

var _ email.Provider = (*captureMailer)(nil)

func (m *captureMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return nil
}

func (m *captureMailer) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	if m.fail {
		return fmt.Errorf("smtp down")
	}
	m.sent = append(m.sent, sentMail{to: to, template: templateName, data: data})
	return nil
}

type fixture struct {
	db     *gorm.DB
	svc    *reminder.Service
	users  identitydomain.Service
	mailer *captureMailer
	clk    *clock.FakeClock
	node   *snowflake.Node
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
	node, err := snowflake.NewNode(14)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC))
	mailer := &captureMailer{}

	users := identityservice.NewService(db, identityrepo.NewRepository(db), node, clk)
	prefs := notificationservice.NewService(db, clk)
	dispatcher := dispatch.NewDispatcher(db, prefs, users, mailer, node, clk, zap.NewNop())

	svc := reminder.New(
		reminder.Config{},
		config.Config{PublicBaseURL: "https://app.example.com"},
		users,
		mailer,
		dispatcher,
		nil,
		clk,
		nil,
		zap.NewNop(),
	)

	return &fixture{db: db, svc: svc, users: users, mailer: mailer, clk: clk, node: node}
}

func (f *fixture) seedUser(t *testing.T, username string, age time.Duration, verified bool) identitydomain.User {
	t.Helper()
	user := identitydomain.User{
		ID:            f.node.Generate(),
		Username:      username,
		Email:         username + "@example.com",
		AuthProvider:  identitydomain.ProviderLocal,
		EmailVerified: verified,
		CreatedAt:     f.clk.Now().Add(-age),
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) identitydomain.User {
	t.Helper()
	var user identitydomain.User
	if err := f.db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user
}

func TestRunSends24hStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.seedUser(t, "newbie", 25*time.Hour, false)

	stats, err := f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Sent24h != 1 || stats.Sent72h != 0 || stats.Sent7d != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].template != "verification_reminder" {
		t.Fatalf("unexpected mail %+v", f.mailer.sent)
	}

	stored := f.reload(t, user.ID)
	if stored.Reminder24hSentAt == nil {
		t.Fatalf("expected the 24h timestamp to be recorded")
	}

	// The same stage never fires twice.
	stats, err = f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.Sent24h != 0 || stats.Skipped != 1 {
		t.Fatalf("expected a skip on the second tick, got %+v", stats)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected no second email, got %d", len(f.mailer.sent))
	}
}

func TestRunPicksHighestExceededStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.seedUser(t, "dormant", 4*24*time.Hour, false)

	stats, err := f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Sent72h != 1 || stats.Sent24h != 0 {
		t.Fatalf("expected only the 72h stage, got %+v", stats)
	}

	stored := f.reload(t, user.ID)
	if stored.Reminder72hSentAt == nil {
		t.Fatalf("expected the 72h timestamp to be recorded")
	}
	// The lower stage was leapfrogged and stays unsent forever.
	if stored.Reminder24hSentAt != nil {
		t.Fatalf("expected the 24h timestamp to stay empty")
	}

	// Three days later the account crosses 7 d and gets the last nudge.
	f.clk.Advance(3 * 24 * time.Hour)
	stats, err = f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.Sent7d != 1 {
		t.Fatalf("expected the 7d stage, got %+v", stats)
	}
	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected 2 emails total, got %d", len(f.mailer.sent))
	}
}

func TestRunIgnoresFreshAndVerifiedAccounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "fresh", 2*time.Hour, false)
	f.seedUser(t, "done", 48*time.Hour, true)

	stats, err := f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Sent24h+stats.Sent72h+stats.Sent7d != 0 {
		t.Fatalf("expected nothing sent, got %+v", stats)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no emails, got %d", len(f.mailer.sent))
	}
}

func TestRunRetriesAfterSendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.seedUser(t, "flaky", 25*time.Hour, false)

	f.mailer.fail = true
	stats, err := f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Errors != 1 || stats.Sent24h != 0 {
		t.Fatalf("expected a send error, got %+v", stats)
	}
	if stored := f.reload(t, user.ID); stored.Reminder24hSentAt != nil {
		t.Fatalf("expected the stage timestamp to stay unset after a failed send")
	}

	// The next tick retries the same stage.
	f.mailer.fail = false
	stats, err = f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if stats.Sent24h != 1 {
		t.Fatalf("expected the retry to send, got %+v", stats)
	}
	if stored := f.reload(t, user.ID); stored.Reminder24hSentAt == nil {
		t.Fatalf("expected the stage timestamp after the retry")
	}
}
