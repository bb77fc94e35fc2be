package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// NotificationFilter narrows notification listings for a user.
type NotificationFilter struct {
	UserID     uint
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository handles persistence for notification entities.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	ListByRelated(ctx context.Context, ref models.RelatedRef) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint, userID uint) (models.Notification, error)
	FindByID(ctx context.Context, id uint) (models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) ListByRelated(ctx context.Context, ref models.RelatedRef) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := r.db.WithContext(ctx).
		Where("related_type = ? AND related_id = ?", ref.Kind, ref.ID).
		Order("id ASC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, userID uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	if notification.IsRead {
		return notification, nil
	}

	notification.IsRead = true
	if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}
