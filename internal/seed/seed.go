// Package seed creates the bootstrap admin account for fresh installs.
package seed

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/config"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EnsureDefaultAdmin creates the configured admin user when it does not
// exist yet. Re-running is a no-op.
func EnsureDefaultAdmin(conn *gorm.DB, cfg config.BootstrapConfig) error {
	username := strings.TrimSpace(strings.ToLower(cfg.AdminUsername))
	if username == "" || cfg.AdminPassword == "" {
		return nil
	}

	var count int64
	if err := conn.Model(&identitydomain.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := identitydomain.User{
		ID:            node.Generate(),
		Username:      username,
		Email:         strings.TrimSpace(cfg.AdminEmail),
		DisplayName:   "Administrator",
		Role:          identitydomain.RoleAdmin,
		AuthProvider:  identitydomain.ProviderLocal,
		EmailVerified: true,
		Plan:          "business",
		PasswordHash:  string(hash),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return conn.Create(&admin).Error
}
