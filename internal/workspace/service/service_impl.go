package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/workhive/workhive/internal/clock"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/workspace/domain"
	"github.com/workhive/workhive/pkg/db"
	"gorm.io/gorm"
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

func (s *service) EnsurePersonal(ctx context.Context, user identitydomain.User) (*domain.Workspace, error) {
	existing, err := s.repo.PersonalFor(ctx, user.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	ws := domain.Workspace{
		ID:        s.genID.Generate(),
		OwnerID:   user.ID,
		Name:      fmt.Sprintf("%s's workspace", name),
		Slug:      slug.Make(user.Username),
		Type:      domain.TypePersonal,
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, ws); err != nil {
			return err
		}
		return repo.AddMember(ctx, domain.Membership{
			ID:          s.genID.Generate(),
			WorkspaceID: ws.ID,
			UserID:      user.ID,
			Role:        domain.RoleOwner,
			CreatedAt:   now,
		})
	})
	if err != nil {
		// Two requests raced the lazy create; the winner's row stands.
		if db.IsDuplicateKeyErr(err) {
			return s.repo.PersonalFor(ctx, user.ID)
		}
		return nil, err
	}
	return &ws, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Workspace, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.WorkspaceListItem, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) MembershipFor(ctx context.Context, workspaceID, userID snowflake.ID) (*domain.Membership, error) {
	return s.repo.MembershipFor(ctx, workspaceID, userID)
}

func (s *service) AddMember(ctx context.Context, workspaceID, userID snowflake.ID, role string) (*domain.Membership, error) {
	if !domain.ValidRole(role) || role == domain.RoleOwner {
		return nil, domain.ErrInvalidRole
	}
	ws, err := s.repo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID == userID {
		return nil, domain.ErrOwnerImmutable
	}

	member := domain.Membership{
		ID:          s.genID.Generate(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			if err := s.repo.UpdateMemberRole(ctx, workspaceID, userID, role); err != nil {
				return nil, err
			}
			return s.repo.MembershipFor(ctx, workspaceID, userID)
		}
		return nil, err
	}
	return &member, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, workspaceID, userID snowflake.ID, role string) error {
	if !domain.ValidRole(role) || role == domain.RoleOwner {
		return domain.ErrInvalidRole
	}
	ws, err := s.repo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID == userID {
		return domain.ErrOwnerImmutable
	}
	return s.repo.UpdateMemberRole(ctx, workspaceID, userID, role)
}

func (s *service) RemoveMember(ctx context.Context, workspaceID, userID snowflake.ID) error {
	ws, err := s.repo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID == userID {
		return domain.ErrOwnerImmutable
	}
	return s.repo.RemoveMember(ctx, workspaceID, userID)
}
