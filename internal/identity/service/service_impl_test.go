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
	"github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/identity/repository"
	"github.com/workhive/workhive/internal/identity/service"
	"github.com/workhive/workhive/internal/migration"
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

func newService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(17)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	return service.NewService(db, repository.NewRepository(db), node, clk), clk
}

func register(t *testing.T, svc domain.Service, username, email, provider string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username:     username,
		Email:        email,
		AuthProvider: provider,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func TestRegisterNormalizesAndGuardsUniqueness(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	user := register(t, svc, "  Ana  ", "ana@example.com", "")
	if user.Username != "ana" || user.AuthProvider != domain.ProviderLocal || user.EmailVerified {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.Register(ctx, domain.RegisterRequest{Username: "ANA"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.Register(ctx, domain.RegisterRequest{Username: "ana2", Email: "ana@example.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestFederatedAccountsArriveVerified(t *testing.T) {
	svc, _ := newService(t)

	user := register(t, svc, "gina", "gina@example.com", domain.ProviderFederated)
	if !user.EmailVerified {
		t.Fatalf("expected federated account to be verified")
	}

	if _, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username:     "ghost",
		AuthProvider: domain.ProviderFederated,
	}); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail for federated signup without email, got %v", err)
	}
}

func TestVerificationTokenRotatesOnlyWhenExpired(t *testing.T) {
	ctx := context.Background()
	svc, clk := newService(t)
	user := register(t, svc, "ana", "ana@example.com", "")

	first, err := svc.EnsureVerificationToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}

	// A live token is reused.
	clk.Advance(time.Hour)
	again, err := svc.EnsureVerificationToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("ensure token again: %v", err)
	}
	if again.Token != first.Token {
		t.Fatalf("expected the live token to be reused")
	}

	// Past the TTL the token rotates in place.
	clk.Advance(24 * time.Hour)
	rotated, err := svc.EnsureVerificationToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("ensure rotated token: %v", err)
	}
	if rotated.Token == first.Token {
		t.Fatalf("expected a fresh token after expiry")
	}

	// The old value is dead.
	if _, err := svc.VerifyEmail(ctx, first.Token); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for the stale token, got %v", err)
	}
}

func TestVerifyEmailConsumesTheToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	user := register(t, svc, "ana", "ana@example.com", "")

	token, err := svc.EnsureVerificationToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}

	verified, err := svc.VerifyEmail(ctx, token.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.EmailVerified {
		t.Fatalf("expected the account to be verified")
	}

	if _, err := svc.VerifyEmail(ctx, token.Token); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on reuse, got %v", err)
	}
}

func TestVerifyEmailRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc, clk := newService(t)
	user := register(t, svc, "ana", "ana@example.com", "")

	token, err := svc.EnsureVerificationToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}

	clk.Advance(25 * time.Hour)
	if _, err := svc.VerifyEmail(ctx, token.Token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestResendVerificationThrottles(t *testing.T) {
	ctx := context.Background()
	svc, clk := newService(t)
	user := register(t, svc, "ana", "ana@example.com", "")

	if _, err := svc.ResendVerification(ctx, user.ID); err != nil {
		t.Fatalf("first resend: %v", err)
	}

	clk.Advance(time.Minute)
	if _, err := svc.ResendVerification(ctx, user.ID); !errors.Is(err, domain.ErrResendThrottled) {
		t.Fatalf("expected ErrResendThrottled, got %v", err)
	}

	clk.Advance(5 * time.Minute)
	token, err := svc.ResendVerification(ctx, user.ID)
	if err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}

	// Verified accounts never get another token.
	if _, err := svc.VerifyEmail(ctx, token.Token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := svc.ResendVerification(ctx, user.ID); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}
