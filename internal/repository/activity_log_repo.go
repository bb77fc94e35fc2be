package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

const maxActivityPageSize = 200

// ActivityLogFilter narrows activity log queries. Since and Until bound created_at inclusively.
type ActivityLogFilter struct {
	Page       int
	PageSize   int
	ActorID    *uint
	Action     string
	EntityType string
	EntityID   *uint
	Since      *time.Time
	Until      *time.Time
}

// ActivityLogRepository persists audit trail events. It exposes no update or delete.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(activityFilterScope(filter))

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityLog
	err := query.
		Scopes(paginate(filter.Page, filter.PageSize, maxActivityPageSize)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func activityFilterScope(filter ActivityLogFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.ActorID != nil {
			db = db.Where("actor_id = ?", *filter.ActorID)
		}
		if filter.Action != "" {
			db = db.Where("action = ?", filter.Action)
		}
		if filter.EntityType != "" {
			db = db.Where("entity_type = ?", filter.EntityType)
		}
		if filter.EntityID != nil {
			db = db.Where("entity_id = ?", *filter.EntityID)
		}
		if filter.Since != nil {
			db = db.Where("created_at >= ?", filter.Since.UTC())
		}
		if filter.Until != nil {
			db = db.Where("created_at <= ?", filter.Until.UTC())
		}
		return db
	}
}

// paginate applies offset pagination; a non-positive size leaves the query unbounded.
func paginate(page, size, maxSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if size <= 0 {
			return db
		}
		if maxSize > 0 && size > maxSize {
			size = maxSize
		}
		if page <= 0 {
			page = 1
		}
		return db.Offset((page - 1) * size).Limit(size)
	}
}
