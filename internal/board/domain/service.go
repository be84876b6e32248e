package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, workspaceID snowflake.ID, ownerUsername, name string) (*Board, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Board, error)
	ListByOwner(ctx context.Context, ownerUsername string) ([]Board, error)
}

var (
	ErrNotFound    = errors.New("board_not_found")
	ErrInvalidName = errors.New("invalid_board_name")
)
