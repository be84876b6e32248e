// Package domain contains persistence models for mind-map projects.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Project is a mind-map project. Name is unique per owner.
type Project struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkspaceID   snowflake.ID `gorm:"not null;index" json:"workspace_id"`
	OwnerUsername string       `gorm:"type:text;not null;uniqueIndex:ux_projects_owner_name,priority:1" json:"owner_username"`
	Name          string       `gorm:"type:text;not null;uniqueIndex:ux_projects_owner_name,priority:2" json:"name"`
	Slug          string       `gorm:"type:text;not null;default:''" json:"slug"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "mindmap_projects" }
