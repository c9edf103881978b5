package database

import (
	"gorm.io/gorm"

	"github.com/woopsyyy/portal-credsvc/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. The
// portal owns the users table in production; migrating it here keeps local
// and test environments self-contained.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DirectoryUser{},
		&models.AuditLog{},
	)
}
