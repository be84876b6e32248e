package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, workspaceID snowflake.ID, ownerUsername string, req CreateContactRequest) (*Contact, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Contact, error)
	ListByOwner(ctx context.Context, ownerUsername string) ([]Contact, error)

	CreateReminder(ctx context.Context, workspaceID snowflake.ID, ownerUsername string, req CreateReminderRequest) (*CRMReminder, error)
	GetReminder(ctx context.Context, id snowflake.ID) (*CRMReminder, error)
	ListReminders(ctx context.Context, ownerUsername string) ([]CRMReminder, error)
	MarkReminderDone(ctx context.Context, id snowflake.ID) error
}

type CreateContactRequest struct {
	Name  string
	Email string
	Phone string
}

type CreateReminderRequest struct {
	ContactID *snowflake.ID
	Title     string
	DueAt     *string
}

var (
	ErrNotFound     = errors.New("contact_not_found")
	ErrInvalidName  = errors.New("invalid_contact_name")
	ErrInvalidTitle = errors.New("invalid_reminder_title")
	ErrInvalidDueAt = errors.New("invalid_due_at")
)
