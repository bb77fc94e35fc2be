package dto

import (
	"strconv"
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ExamQuestionRequest describes a question when authoring an exam.
type ExamQuestionRequest struct {
	Prompt        string  `json:"prompt" validate:"required,min=1,max=2000"`
	Kind          string  `json:"kind" validate:"required,oneof=choice text"`
	CorrectAnswer string  `json:"correct_answer" validate:"required_if=Kind choice,max=500"`
	Points        float64 `json:"points" validate:"gte=0"`
}

// ExamCreateRequest captures the payload for authoring an exam.
type ExamCreateRequest struct {
	Title       string                `json:"title" validate:"required,min=3,max=255"`
	Description string                `json:"description" validate:"omitempty,max=5000"`
	StartsAt    *time.Time            `json:"starts_at"`
	EndsAt      *time.Time            `json:"ends_at"`
	MaxScore    float64               `json:"max_score" validate:"omitempty,gt=0"`
	Questions   []ExamQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// ExamSubmitRequest carries answers keyed by question id.
type ExamSubmitRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

// ExamGradeRequest grades or regrades an exam submission.
type ExamGradeRequest struct {
	Score           *float64 `json:"score" validate:"required"`
	Review          string   `json:"review" validate:"omitempty,max=5000"`
	ExpectedVersion *uint    `json:"expected_version" validate:"omitempty,gt=0"`
}

// ExamQuestionResponse hides the correct answer.
type ExamQuestionResponse struct {
	ID       uint    `json:"id"`
	Prompt   string  `json:"prompt"`
	Kind     string  `json:"kind"`
	Points   float64 `json:"points"`
	Position int     `json:"position"`
}

// ExamResponse serializes an exam.
type ExamResponse struct {
	ID          uint                   `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	OwnerID     uint                   `json:"owner_id"`
	Status      string                 `json:"status"`
	StartsAt    *time.Time             `json:"starts_at"`
	EndsAt      *time.Time             `json:"ends_at"`
	MaxScore    float64                `json:"max_score"`
	Questions   []ExamQuestionResponse `json:"questions"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ExamSubmissionResponse serializes an exam submission.
type ExamSubmissionResponse struct {
	ID          uint              `json:"id"`
	ExamID      uint              `json:"exam_id"`
	StudentID   uint              `json:"student_id"`
	Answers     map[string]string `json:"answers"`
	AutoScore   float64           `json:"auto_score"`
	Status      string            `json:"status"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Score       *float64          `json:"score"`
	Review      *string           `json:"review"`
	ReviewedAt  *time.Time        `json:"reviewed_at"`
	ReviewedBy  *uint             `json:"reviewed_by"`
	Version     uint              `json:"version"`
}

// NewExamResponse converts an exam model into a DTO.
func NewExamResponse(model models.Exam) ExamResponse {
	questions := make([]ExamQuestionResponse, 0, len(model.Questions))
	for _, question := range model.Questions {
		questions = append(questions, ExamQuestionResponse{
			ID:       question.ID,
			Prompt:   question.Prompt,
			Kind:     string(question.Kind),
			Points:   question.Points,
			Position: question.Position,
		})
	}

	return ExamResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		OwnerID:     model.OwnerID,
		Status:      string(model.Status),
		StartsAt:    model.StartsAt,
		EndsAt:      model.EndsAt,
		MaxScore:    model.MaxScore,
		Questions:   questions,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewExamSubmissionResponse converts an exam submission into a DTO.
func NewExamSubmissionResponse(model models.ExamSubmission) ExamSubmissionResponse {
	answers := make(map[string]string, len(model.Answers))
	for key, raw := range model.Answers {
		switch value := raw.(type) {
		case string:
			answers[key] = value
		case float64:
			answers[key] = strconv.FormatFloat(value, 'f', -1, 64)
		case bool:
			answers[key] = strconv.FormatBool(value)
		}
	}

	return ExamSubmissionResponse{
		ID:          model.ID,
		ExamID:      model.ExamID,
		StudentID:   model.StudentID,
		Answers:     answers,
		AutoScore:   model.AutoScore,
		Status:      string(model.Status),
		SubmittedAt: model.SubmittedAt,
		Score:       model.Score,
		Review:      model.Review,
		ReviewedAt:  model.ReviewedAt,
		ReviewedBy:  model.ReviewedBy,
		Version:     model.Version,
	}
}
