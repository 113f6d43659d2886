package database

import "sociable/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Follow{},
		&models.HashTag{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
	}
}
