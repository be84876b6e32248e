package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/contact/domain"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(conn *gorm.DB, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{db: conn, genID: genID, clock: clk}
}

func (s *service) Create(ctx context.Context, workspaceID snowflake.ID, ownerUsername string, req domain.CreateContactRequest) (*domain.Contact, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	contact := domain.Contact{
		ID:            s.genID.Generate(),
		WorkspaceID:   workspaceID,
		OwnerUsername: ownerUsername,
		Name:          name,
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		CreatedAt:     s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Contact, error) {
	var contact domain.Contact
	err := s.db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerUsername string) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := s.db.WithContext(ctx).
		Where("owner_username = ?", ownerUsername).
		Order("created_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *service) CreateReminder(ctx context.Context, workspaceID snowflake.ID, ownerUsername string, req domain.CreateReminderRequest) (*domain.CRMReminder, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	var dueAt *time.Time
	if req.DueAt != nil && *req.DueAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			return nil, domain.ErrInvalidDueAt
		}
		dueAt = &parsed
	}

	reminder := domain.CRMReminder{
		ID:            s.genID.Generate(),
		WorkspaceID:   workspaceID,
		OwnerUsername: ownerUsername,
		ContactID:     req.ContactID,
		Title:         title,
		DueAt:         dueAt,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&reminder).Error; err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (s *service) GetReminder(ctx context.Context, id snowflake.ID) (*domain.CRMReminder, error) {
	var reminder domain.CRMReminder
	err := s.db.WithContext(ctx).First(&reminder, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (s *service) ListReminders(ctx context.Context, ownerUsername string) ([]domain.CRMReminder, error) {
	var reminders []domain.CRMReminder
	err := s.db.WithContext(ctx).
		Where("owner_username = ?", ownerUsername).
		Order("created_at ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

func (s *service) MarkReminderDone(ctx context.Context, id snowflake.ID) error {
	res := s.db.WithContext(ctx).Model(&domain.CRMReminder{}).
		Where("id = ?", id).
		Update("done", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
