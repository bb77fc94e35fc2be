package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ExamStatus is the publication state of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusPublished ExamStatus = "published"
	ExamStatusClosed    ExamStatus = "closed"
)

var examTransitions = map[ExamStatus][]ExamStatus{
	ExamStatusDraft:     {ExamStatusPublished, ExamStatusClosed},
	ExamStatusPublished: {ExamStatusClosed},
	ExamStatusClosed:    {},
}

// CanTransition reports whether an exam may move from s to next.
func (s ExamStatus) CanTransition(next ExamStatus) bool {
	for _, allowed := range examTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// QuestionKind distinguishes auto-scored questions from free text.
type QuestionKind string

const (
	QuestionKindChoice QuestionKind = "choice"
	QuestionKindText   QuestionKind = "text"
)

// Exam is a timed assessment graded by its owner.
type Exam struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`
	Status      ExamStatus     `gorm:"size:16;not null;default:draft" json:"status"`
	StartsAt    *time.Time     `json:"starts_at"`
	EndsAt      *time.Time     `json:"ends_at"`
	MaxScore    float64        `gorm:"not null;default:100" json:"max_score"`
	Questions   []ExamQuestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// AcceptsAnswers reports whether submissions are accepted at the reference time.
func (e Exam) AcceptsAnswers(reference time.Time) bool {
	if e.Status != ExamStatusPublished {
		return false
	}
	if e.StartsAt != nil && reference.Before(*e.StartsAt) {
		return false
	}
	if e.EndsAt != nil && reference.After(*e.EndsAt) {
		return false
	}
	return true
}

// ExamQuestion belongs to an exam.
type ExamQuestion struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	ExamID        uint         `gorm:"not null;index" json:"exam_id"`
	Prompt        string       `gorm:"type:text;not null" json:"prompt"`
	Kind          QuestionKind `gorm:"size:16;not null;default:text" json:"kind"`
	CorrectAnswer string       `gorm:"type:text" json:"-"`
	Points        float64      `gorm:"not null;default:1" json:"points"`
	Position      int          `gorm:"not null;default:0" json:"position"`
}

// Score returns the points earned by answer for auto-scored questions.
func (q ExamQuestion) Score(answer string) float64 {
	if q.Kind != QuestionKindChoice {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)) {
		return q.Points
	}
	return 0
}

// ExamSubmission holds a student's answers and the review outcome.
type ExamSubmission struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	ExamID      uint              `gorm:"not null;index" json:"exam_id"`
	StudentID   uint              `gorm:"not null;index" json:"student_id"`
	Answers     datatypes.JSONMap `gorm:"type:json" json:"answers"`
	AutoScore   float64           `gorm:"not null;default:0" json:"auto_score"`
	Status      SubmissionStatus  `gorm:"size:16;not null" json:"status"`
	SubmittedAt time.Time         `gorm:"not null" json:"submitted_at"`
	Score       *float64          `json:"score"`
	Review      *string           `gorm:"type:text" json:"review"`
	ReviewedAt  *time.Time        `json:"reviewed_at"`
	ReviewedBy  *uint             `json:"reviewed_by"`
	Version     uint              `gorm:"not null;default:1" json:"version"`
	Exam        Exam              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
