package models

import "time"

// NotificationType classifies user-facing notifications.
type NotificationType string

const (
	NotificationTypeSubmission     NotificationType = "submission"
	NotificationTypeGrade          NotificationType = "grade"
	NotificationTypeReturned       NotificationType = "returned"
	NotificationTypeReminder       NotificationType = "reminder"
	NotificationTypeTaskClosed     NotificationType = "task_closed"
	NotificationTypeExamSubmission NotificationType = "exam_submission"
	NotificationTypeExamGrade      NotificationType = "exam_grade"
)

// Valid reports whether the type is known.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeSubmission, NotificationTypeGrade, NotificationTypeReturned,
		NotificationTypeReminder, NotificationTypeTaskClosed,
		NotificationTypeExamSubmission, NotificationTypeExamGrade:
		return true
	}
	return false
}

// Notification represents a message targeted to a specific user.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	Type        NotificationType `gorm:"size:32;not null" json:"type"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	IsRead      bool             `gorm:"not null;default:false" json:"is_read"`
	RelatedType RelatedKind      `gorm:"size:32;index:idx_notification_related" json:"related_type"`
	RelatedID   uint             `gorm:"index:idx_notification_related" json:"related_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Related returns the typed reference of the notification.
func (n Notification) Related() RelatedRef {
	return RelatedRef{Kind: n.RelatedType, ID: n.RelatedID}
}

// SetRelated stores the typed reference on the notification.
func (n *Notification) SetRelated(ref RelatedRef) {
	n.RelatedType = ref.Kind
	n.RelatedID = ref.ID
}

// Reminder is a scheduled prompt for a user, one per user and related entity.
type Reminder struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"not null;uniqueIndex:idx_reminder_target" json:"user_id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	ScheduledAt time.Time   `gorm:"not null;index" json:"scheduled_at"`
	IsActive    bool        `gorm:"not null;default:true;index" json:"is_active"`
	RelatedType RelatedKind `gorm:"size:32;not null;uniqueIndex:idx_reminder_target" json:"related_type"`
	RelatedID   uint        `gorm:"not null;uniqueIndex:idx_reminder_target" json:"related_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Related returns the typed reference of the reminder.
func (r Reminder) Related() RelatedRef {
	return RelatedRef{Kind: r.RelatedType, ID: r.RelatedID}
}

// SetRelated stores the typed reference on the reminder.
func (r *Reminder) SetRelated(ref RelatedRef) {
	r.RelatedType = ref.Kind
	r.RelatedID = ref.ID
}
