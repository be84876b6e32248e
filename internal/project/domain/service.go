package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, workspaceID snowflake.ID, ownerUsername, name string) (*Project, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Project, error)
	ListByOwner(ctx context.Context, ownerUsername string) ([]Project, error)
	Rename(ctx context.Context, id snowflake.ID, name string) (*Project, error)
	// Delete removes the project together with its grants, invitations and
	// share link.
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound     = errors.New("project_not_found")
	ErrInvalidName  = errors.New("invalid_project_name")
	ErrNameConflict = errors.New("project_name_conflict")
)

// NameConflictError reports the row that already holds the requested name so
// the HTTP layer can return it alongside the 409.
type NameConflictError struct {
	ExistingID   snowflake.ID
	ExistingName string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("project %q already exists", e.ExistingName)
}

func (e *NameConflictError) Is(target error) bool { return target == ErrNameConflict }
