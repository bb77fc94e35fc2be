package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// Migrate creates or updates the schema for every persisted entity.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Submission{},
		&models.File{},
		&models.Notification{},
		&models.Reminder{},
		&models.ActivityLog{},
		&models.Exam{},
		&models.ExamQuestion{},
		&models.ExamSubmission{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
