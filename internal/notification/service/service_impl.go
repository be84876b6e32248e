package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/notification/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type service struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewService(conn *gorm.DB, clk clock.Clock) domain.Service {
	return &service{db: conn, clock: clk}
}

func (s *service) Get(ctx context.Context, userID snowflake.ID) (*domain.Preferences, error) {
	var prefs domain.Preferences
	err := s.db.WithContext(ctx).First(&prefs, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := domain.DefaultPreferences(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (s *service) Update(ctx context.Context, userID snowflake.ID, req domain.UpdatePreferencesRequest) (*domain.Preferences, error) {
	if req.EmailDigest != nil && !domain.ValidDigest(*req.EmailDigest) {
		return nil, domain.ErrInvalidDigest
	}
	for key := range req.NotifyOn {
		if !domain.ValidPrefKey(key) {
			return nil, domain.ErrInvalidPreference
		}
	}

	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.EmailEnabled != nil {
		prefs.EmailEnabled = *req.EmailEnabled
	}
	if req.EmailDigest != nil {
		prefs.EmailDigest = *req.EmailDigest
	}
	for key, enabled := range req.NotifyOn {
		prefs.NotifyOn[key] = enabled
	}
	prefs.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(prefs).Error
	if err != nil {
		return nil, err
	}
	return prefs, nil
}
