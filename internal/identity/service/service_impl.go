package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/pkg/db"
	"gorm.io/gorm"
)

const (
	tokenTTL       = 24 * time.Hour
	resendCooldown = 5 * time.Minute
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(conn *gorm.DB, repo domain.Repository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{db: conn, repo: repo, genID: genID, clock: clk}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(strings.ToLower(req.Username))
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}

	email := strings.TrimSpace(req.Email)
	provider := req.AuthProvider
	if provider == "" {
		provider = domain.ProviderLocal
	}
	if provider == domain.ProviderFederated && email == "" {
		return nil, domain.ErrInvalidEmail
	}

	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}

	if email != "" {
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return nil, domain.ErrEmailTaken
		}
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Role:         role,
		AuthProvider: provider,
		// Federated providers hand us a verified address.
		EmailVerified: provider == domain.ProviderFederated,
		Plan:          "free",
		PasswordHash:  req.PasswordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}

	return &user, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.GetByUsername(ctx, strings.TrimSpace(strings.ToLower(username)))
}

func (s *service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}
	return s.repo.GetByEmail(ctx, email)
}

func (s *service) ListUnverifiedLocal(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUnverifiedLocal(ctx)
}

func (s *service) EnsureVerificationToken(ctx context.Context, userID snowflake.ID) (*domain.VerificationToken, error) {
	now := s.clock.Now()

	existing, err := s.repo.TokenByUser(ctx, userID)
	if err == nil && existing.ExpiresAt.After(now) {
		return existing, nil
	}
	if err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
		return nil, err
	}

	value, err := randomToken()
	if err != nil {
		return nil, err
	}
	token := domain.VerificationToken{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Token:     value,
		ExpiresAt: now.Add(tokenTTL),
		CreatedAt: now,
	}
	if err := s.repo.SaveToken(ctx, token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *service) VerifyEmail(ctx context.Context, value string) (*domain.User, error) {
	token, err := s.repo.TokenByValue(ctx, strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !token.ExpiresAt.After(now) {
		return nil, domain.ErrTokenExpired
	}

	var user *domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SetEmailVerified(ctx, token.UserID, now); err != nil {
			return err
		}
		if err := repo.DeleteToken(ctx, token.UserID); err != nil {
			return err
		}
		user, err = repo.GetByID(ctx, token.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) ResendVerification(ctx context.Context, userID snowflake.ID) (*domain.VerificationToken, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return nil, domain.ErrAlreadyVerified
	}

	now := s.clock.Now()
	if user.LastResendAt != nil && now.Sub(*user.LastResendAt) < resendCooldown {
		return nil, domain.ErrResendThrottled
	}

	token, err := s.EnsureVerificationToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetLastResend(ctx, userID, now); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *service) MarkReminderSent(ctx context.Context, userID snowflake.ID, stage string) error {
	return s.repo.SetReminderSent(ctx, userID, stage, s.clock.Now())
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
