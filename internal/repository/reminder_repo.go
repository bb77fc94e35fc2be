package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ReminderRepository persists scheduled reminders.
type ReminderRepository interface {
	CreateIfAbsent(ctx context.Context, reminder *models.Reminder) (bool, error)
	ListActiveByUser(ctx context.Context, userID uint) ([]models.Reminder, error)
	ListDue(ctx context.Context, reference time.Time, limit int) ([]models.Reminder, error)
	Deactivate(ctx context.Context, id uint) (bool, error)
}

type reminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository constructs the reminder repository.
func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

// CreateIfAbsent inserts the reminder unless one already exists for the same user and
// related entity. It reports whether a row was written.
func (r *reminderRepository) CreateIfAbsent(ctx context.Context, reminder *models.Reminder) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "related_type"}, {Name: "related_id"}},
			DoNothing: true,
		}).
		Create(reminder)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *reminderRepository) ListActiveByUser(ctx context.Context, userID uint) ([]models.Reminder, error) {
	var reminders []models.Reminder
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("scheduled_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, err
	}

	return reminders, nil
}

func (r *reminderRepository) ListDue(ctx context.Context, reference time.Time, limit int) ([]models.Reminder, error) {
	if limit <= 0 {
		limit = 100
	}

	var reminders []models.Reminder
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND scheduled_at <= ?", true, reference).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&reminders).Error; err != nil {
		return nil, err
	}

	return reminders, nil
}

// Deactivate flips an active reminder off and reports whether this call did so.
func (r *reminderRepository) Deactivate(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
