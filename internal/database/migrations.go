package database

import (
	"gorm.io/gorm"

	"github.com/minzhou/babydraw/internal/models"
)

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.CacheEntry{},
		&models.Drawing{},
	)
}
