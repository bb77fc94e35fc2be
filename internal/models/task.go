package models

import "time"

// TaskStatus is the lifecycle state of an assignment.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusSubmitted  TaskStatus = "submitted"
	TaskStatusGraded     TaskStatus = "graded"
	TaskStatusClosed     TaskStatus = "closed"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:       {TaskStatusInProgress, TaskStatusSubmitted, TaskStatusClosed},
	TaskStatusInProgress: {TaskStatusOpen, TaskStatusSubmitted, TaskStatusClosed},
	TaskStatusSubmitted:  {TaskStatusGraded, TaskStatusClosed},
	TaskStatusGraded:     {TaskStatusClosed},
	TaskStatusClosed:     {},
}

// Valid reports whether the status is part of the task lifecycle.
func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// CanTransition reports whether a task may move from s to next.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TaskPriority ranks tasks for display.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether the priority is known.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task represents a gradable assignment.
type Task struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"size:255;not null" json:"name"`
	Description   string       `gorm:"type:text" json:"description"`
	DueDate       *time.Time   `gorm:"index" json:"due_date"`
	Priority      TaskPriority `gorm:"size:16;not null;default:medium" json:"priority"`
	Status        TaskStatus   `gorm:"size:16;not null;default:open;index" json:"status"`
	ResponsibleID uint         `gorm:"not null;index" json:"responsible_id"`
	TutorID       *uint        `gorm:"index" json:"tutor_id"`
	ProjectID     *uint        `gorm:"index" json:"project_id"`
	MaxGrade      *float64     `json:"max_grade"`
	Project       *Project     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"project,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsClosed reports whether the task no longer accepts submissions.
func (t Task) IsClosed() bool {
	return t.Status == TaskStatusClosed
}

// CanGrade reports whether the user is the tutor or responsible party for the task.
func (t Task) CanGrade(userID uint) bool {
	if userID == 0 {
		return false
	}
	if t.ResponsibleID == userID {
		return true
	}
	return t.TutorID != nil && *t.TutorID == userID
}

// CanSubmit reports whether the user may submit work for the task.
func (t Task) CanSubmit(userID uint) bool {
	if userID == 0 {
		return false
	}
	if t.ResponsibleID == userID {
		return true
	}
	return t.Project != nil && t.Project.HasParticipant(userID)
}

// EffectiveMaxGrade resolves the grade ceiling for the task.
func (t Task) EffectiveMaxGrade(fallback float64) float64 {
	if t.MaxGrade != nil && *t.MaxGrade > 0 {
		return *t.MaxGrade
	}
	if fallback <= 0 {
		return 100
	}
	return fallback
}

// IsPastDue returns true when the deadline has already passed.
func (t Task) IsPastDue(reference time.Time) bool {
	return t.DueDate != nil && reference.After(*t.DueDate)
}
