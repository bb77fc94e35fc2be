package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// TaskCreateRequest captures the payload for creating a task.
type TaskCreateRequest struct {
	Name          string     `json:"name" validate:"required,min=3,max=255"`
	Description   string     `json:"description" validate:"omitempty,max=5000"`
	DueDate       *time.Time `json:"due_date"`
	Priority      string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	ResponsibleID uint       `json:"responsible_id" validate:"required,gt=0"`
	TutorID       *uint      `json:"tutor_id" validate:"omitempty,gt=0"`
	ProjectID     *uint      `json:"project_id" validate:"omitempty,gt=0"`
	MaxGrade      *float64   `json:"max_grade" validate:"omitempty,gt=0"`
}

// TaskStatusUpdateRequest moves a task through its lifecycle.
type TaskStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress submitted graded closed"`
}

// TaskListRequest defines filters for listing tasks.
type TaskListRequest struct {
	Page          int
	PageSize      int
	Search        string
	Status        string
	ProjectID     *uint
	ResponsibleID *uint
	TutorID       *uint
	Sort          string
}

// TaskResponse is returned to API clients.
type TaskResponse struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	ResponsibleID uint       `json:"responsible_id"`
	TutorID       *uint      `json:"tutor_id"`
	ProjectID     *uint      `json:"project_id"`
	MaxGrade      *float64   `json:"max_grade"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TaskListResponse wraps paginated tasks.
type TaskListResponse struct {
	Items      []TaskResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewTaskResponse converts a task model into a DTO.
func NewTaskResponse(model models.Task) TaskResponse {
	return TaskResponse{
		ID:            model.ID,
		Name:          model.Name,
		Description:   model.Description,
		DueDate:       model.DueDate,
		Priority:      string(model.Priority),
		Status:        string(model.Status),
		ResponsibleID: model.ResponsibleID,
		TutorID:       model.TutorID,
		ProjectID:     model.ProjectID,
		MaxGrade:      model.MaxGrade,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewTaskResponseSlice converts task models into DTOs.
func NewTaskResponseSlice(items []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewTaskResponse(item))
	}
	return responses
}
