package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/workhive/workhive/internal/auth/domain"
	"github.com/workhive/workhive/internal/clock"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionTTL = 30 * 24 * time.Hour

type service struct {
	db    *gorm.DB
	users identitydomain.Service
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(conn *gorm.DB, users identitydomain.Service, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{db: conn, users: users, genID: genID, clock: clk}
}

func (s *service) Login(ctx context.Context, username, password string) (*domain.Session, *identitydomain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, identitydomain.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if user.Disabled {
		return nil, nil, domain.ErrAccountDisabled
	}
	if user.PasswordHash == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	now := s.clock.Now()
	session := domain.Session{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, nil, err
	}
	return &session, user, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&domain.Session{}).Error
}

func (s *service) Authenticate(ctx context.Context, token string) (*identitydomain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	var session domain.Session
	err := s.db.WithContext(ctx).First(&session, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !session.ExpiresAt.After(s.clock.Now()) {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, identitydomain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if user.Disabled {
		return nil, domain.ErrAccountDisabled
	}
	return user, nil
}

// HashPassword is the single place bcrypt cost is chosen.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
