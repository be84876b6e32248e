package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/project/domain"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
	"github.com/workhive/workhive/pkg/db"
	"gorm.io/gorm"
)

const resourceType = "mindmap_project"

type service struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(conn *gorm.DB, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{db: conn, genID: genID, clock: clk}
}

func (s *service) Create(ctx context.Context, workspaceID snowflake.ID, ownerUsername, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	project := domain.Project{
		ID:            s.genID.Generate(),
		WorkspaceID:   workspaceID,
		OwnerUsername: ownerUsername,
		Name:          name,
		Slug:          slug.Make(name),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, s.conflictFor(ctx, ownerUsername, name)
		}
		return nil, err
	}
	return &project, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerUsername string) ([]domain.Project, error) {
	var projects []domain.Project
	err := s.db.WithContext(ctx).
		Where("owner_username = ?", ownerUsername).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *service) Rename(ctx context.Context, id snowflake.ID, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	project, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(project).
		Updates(map[string]any{
			"name":       name,
			"slug":       slug.Make(name),
			"updated_at": s.clock.Now(),
		}).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, s.conflictFor(ctx, project.OwnerUsername, name)
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&domain.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Where("resource_type = ? AND resource_id = ?", resourceType, id).
			Delete(&sharingdomain.Grant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_type = ? AND resource_id = ?", resourceType, id).
			Delete(&sharingdomain.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Where("resource_type = ? AND resource_id = ?", resourceType, id).
			Delete(&sharingdomain.ShareLink{}).Error
	})
}

// conflictFor looks up the row that owns the name so the caller can surface
// existing_id and a rename suggestion.
func (s *service) conflictFor(ctx context.Context, ownerUsername, name string) error {
	var existing domain.Project
	err := s.db.WithContext(ctx).
		First(&existing, "owner_username = ? AND name = ?", ownerUsername, name).Error
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrNameConflict, name)
	}
	return &domain.NameConflictError{ExistingID: existing.ID, ExistingName: existing.Name}
}
