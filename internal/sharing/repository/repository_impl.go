package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/sharing/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) UpsertGrant(ctx context.Context, grant domain.Grant) (*domain.Grant, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resource_type"}, {Name: "resource_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(&grant).Error
	if err != nil {
		return nil, err
	}
	return r.GrantFor(ctx, grant.ResourceType, grant.ResourceID, grant.UserID)
}

func (r *repository) DeleteGrant(ctx context.Context, resourceType string, resourceID, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ? AND user_id = ?", resourceType, resourceID, userID).
		Delete(&domain.Grant{}).Error
}

func (r *repository) GrantsFor(ctx context.Context, resourceType string, resourceID snowflake.ID) ([]domain.Grant, error) {
	var grants []domain.Grant
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) GrantFor(ctx context.Context, resourceType string, resourceID, userID snowflake.ID) (*domain.Grant, error) {
	var grant domain.Grant
	err := r.db.WithContext(ctx).
		First(&grant, "resource_type = ? AND resource_id = ? AND user_id = ?", resourceType, resourceID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *repository) GrantsByUser(ctx context.Context, userID snowflake.ID) ([]domain.Grant, error) {
	var grants []domain.Grant
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	return r.db.WithContext(ctx).Create(&inv).Error
}

func (r *repository) UpdateInvitation(ctx context.Context, inv domain.Invitation) error {
	return r.db.WithContext(ctx).Save(&inv).Error
}

func (r *repository) InvitationByID(ctx context.Context, id snowflake.ID) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) PendingInvitation(ctx context.Context, resourceType string, resourceID snowflake.ID, email string) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.WithContext(ctx).
		First(&inv, "resource_type = ? AND resource_id = ? AND LOWER(email) = LOWER(?) AND status = ?",
			resourceType, resourceID, email, domain.StatusPending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) PendingByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	var invs []domain.Invitation
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND status = ?", email, domain.StatusPending).
		Order("created_at DESC").
		Find(&invs).Error
	if err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *repository) CountPending(ctx context.Context, resourceType string, resourceID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("resource_type = ? AND resource_id = ? AND status = ?", resourceType, resourceID, domain.StatusPending).
		Count(&count).Error
	return count, err
}

// SetInvitationStatus moves an invitation from one status to another. The
// guard on the current status makes the terminal transition race free.
func (r *repository) SetInvitationStatus(ctx context.Context, id snowflake.ID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateShareLink(ctx context.Context, link domain.ShareLink) error {
	return r.db.WithContext(ctx).Create(&link).Error
}

func (r *repository) ShareLinkFor(ctx context.Context, resourceType string, resourceID snowflake.ID) (*domain.ShareLink, error) {
	var link domain.ShareLink
	err := r.db.WithContext(ctx).
		First(&link, "resource_type = ? AND resource_id = ?", resourceType, resourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) ShareLinkByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	var link domain.ShareLink
	err := r.db.WithContext(ctx).First(&link, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) SetShareLinkActive(ctx context.Context, id snowflake.ID, active bool) error {
	return r.db.WithContext(ctx).Model(&domain.ShareLink{}).
		Where("id = ?", id).
		Update("active", active).Error
}
