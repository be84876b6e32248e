package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/board/domain"
	"github.com/workhive/workhive/internal/clock"
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

func (s *service) Create(ctx context.Context, workspaceID snowflake.ID, ownerUsername, name string) (*domain.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	board := domain.Board{
		ID:            s.genID.Generate(),
		WorkspaceID:   workspaceID,
		OwnerUsername: ownerUsername,
		Name:          name,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&board).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Board, error) {
	var board domain.Board
	err := s.db.WithContext(ctx).First(&board, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerUsername string) ([]domain.Board, error) {
	var boards []domain.Board
	err := s.db.WithContext(ctx).
		Where("owner_username = ?", ownerUsername).
		Order("created_at ASC").
		Find(&boards).Error
	if err != nil {
		return nil, err
	}
	return boards, nil
}
