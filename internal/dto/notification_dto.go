package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint              `json:"id"`
	UserID    uint              `json:"user_id"`
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	Related   models.RelatedRef `json:"related"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      string(model.Type),
		Message:   model.Message,
		Read:      model.IsRead,
		Related:   model.Related(),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// ReminderResponse represents a scheduled reminder.
type ReminderResponse struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	IsActive    bool              `json:"is_active"`
	Related     models.RelatedRef `json:"related"`
}

// NewReminderResponseSlice converts reminders to DTOs.
func NewReminderResponseSlice(items []models.Reminder) []ReminderResponse {
	out := make([]ReminderResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ReminderResponse{
			ID:          item.ID,
			Title:       item.Title,
			ScheduledAt: item.ScheduledAt,
			IsActive:    item.IsActive,
			Related:     item.Related(),
		})
	}
	return out
}
