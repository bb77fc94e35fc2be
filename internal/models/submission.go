package models

import "time"

// SubmissionStatus is the grading state of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusSubmitted indicates the submission has been uploaded but not graded.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded SubmissionStatus = "graded"
	// SubmissionStatusReturned indicates the submission was sent back for a new attempt.
	SubmissionStatusReturned SubmissionStatus = "returned"
)

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusSubmitted: {SubmissionStatusGraded, SubmissionStatusReturned},
	SubmissionStatusGraded:    {SubmissionStatusGraded},
	SubmissionStatusReturned:  {},
}

// Valid reports whether the status is known.
func (s SubmissionStatus) Valid() bool {
	_, ok := submissionTransitions[s]
	return ok
}

// CanTransition reports whether a submission may move from s to next.
func (s SubmissionStatus) CanTransition(next SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Submission represents a student's attempt at a task.
type Submission struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	TaskID      uint             `gorm:"not null;index:idx_submission_task_student" json:"task_id"`
	StudentID   uint             `gorm:"not null;index:idx_submission_task_student" json:"student_id"`
	Attempt     int              `gorm:"not null;default:1" json:"attempt"`
	Content     string           `gorm:"type:text" json:"content"`
	Status      SubmissionStatus `gorm:"size:16;not null;index" json:"status"`
	SubmittedAt time.Time        `gorm:"not null" json:"submitted_at"`
	Grade       *float64         `json:"grade"`
	Feedback    *string          `gorm:"type:text" json:"feedback"`
	GradedAt    *time.Time       `json:"graded_at"`
	GradedBy    *uint            `json:"graded_by"`
	Version     uint             `gorm:"not null;default:1" json:"version"`
	Files       []File           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"files"`
	Task        Task             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// GradingConsistent reports whether the grading fields are all set or all absent.
func (s Submission) GradingConsistent() bool {
	set := 0
	if s.Grade != nil {
		set++
	}
	if s.Feedback != nil {
		set++
	}
	if s.GradedAt != nil {
		set++
	}
	if s.GradedBy != nil {
		set++
	}
	return set == 0 || set == 4
}

// File is attachment metadata; the bytes live in external storage.
type File struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Filename     string    `gorm:"size:255;not null" json:"filename"`
	Size         int64     `gorm:"not null" json:"size"`
	Path         string    `gorm:"size:512;not null" json:"path"`
	ContentType  string    `gorm:"size:128" json:"content_type"`
	SubmissionID *uint     `gorm:"index" json:"submission_id"`
	CreatedAt    time.Time `json:"created_at"`
}
