package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// FileRequest describes attachment metadata for an already uploaded file.
type FileRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	Size        int64  `json:"size" validate:"required,gt=0"`
	Path        string `json:"path" validate:"required,max=512"`
	ContentType string `json:"content_type" validate:"required,max=128"`
}

// SubmissionCreateRequest is the payload for submitting work against a task.
type SubmissionCreateRequest struct {
	Content string        `json:"content" validate:"omitempty,max=20000"`
	Files   []FileRequest `json:"files" validate:"omitempty,max=10,dive"`
}

// GradeSubmissionRequest grades or regrades a submission.
type GradeSubmissionRequest struct {
	Grade           *float64 `json:"grade" validate:"required"`
	Feedback        string   `json:"feedback" validate:"omitempty,max=5000"`
	ExpectedVersion *uint    `json:"expected_version" validate:"omitempty,gt=0"`
}

// ReturnSubmissionRequest sends a submission back for another attempt.
type ReturnSubmissionRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=2000"`
}

// SubmissionListRequest describes query string filters for listing submissions.
type SubmissionListRequest struct {
	TaskID    *uint
	StudentID *uint
	Status    string
	Page      int
	PageSize  int
}

// FileResponse serializes attachment metadata.
type FileResponse struct {
	ID          uint   `json:"id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID          uint           `json:"id"`
	TaskID      uint           `json:"task_id"`
	StudentID   uint           `json:"student_id"`
	Attempt     int            `json:"attempt"`
	Content     string         `json:"content"`
	Status      string         `json:"status"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Grade       *float64       `json:"grade"`
	Feedback    *string        `json:"feedback"`
	GradedBy    *uint          `json:"graded_by"`
	GradedAt    *time.Time     `json:"graded_at"`
	Version     uint           `json:"version"`
	Files       []FileResponse `json:"files"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SubmissionListResponse wraps paginated submissions.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	files := make([]FileResponse, 0, len(model.Files))
	for _, file := range model.Files {
		files = append(files, FileResponse{
			ID:          file.ID,
			Filename:    file.Filename,
			Size:        file.Size,
			Path:        file.Path,
			ContentType: file.ContentType,
		})
	}

	return SubmissionResponse{
		ID:          model.ID,
		TaskID:      model.TaskID,
		StudentID:   model.StudentID,
		Attempt:     model.Attempt,
		Content:     model.Content,
		Status:      string(model.Status),
		SubmittedAt: model.SubmittedAt,
		Grade:       model.Grade,
		Feedback:    model.Feedback,
		GradedBy:    model.GradedBy,
		GradedAt:    model.GradedAt,
		Version:     model.Version,
		Files:       files,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
