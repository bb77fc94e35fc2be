package models

import "fmt"

// RelatedKind names the entity a notification or reminder points at.
type RelatedKind string

const (
	RelatedSubmission     RelatedKind = "submission"
	RelatedTask           RelatedKind = "task"
	RelatedExam           RelatedKind = "exam"
	RelatedExamSubmission RelatedKind = "exam_submission"
)

// Valid reports whether the kind is one of the supported entities.
func (k RelatedKind) Valid() bool {
	switch k {
	case RelatedSubmission, RelatedTask, RelatedExam, RelatedExamSubmission:
		return true
	}
	return false
}

// RelatedRef is a typed reference to the entity that triggered a notification or reminder.
// Build it with the constructors below instead of pairing raw strings and ids.
type RelatedRef struct {
	Kind RelatedKind `json:"type"`
	ID   uint        `json:"id"`
}

// SubmissionRef references a task submission.
func SubmissionRef(id uint) RelatedRef { return RelatedRef{Kind: RelatedSubmission, ID: id} }

// TaskRef references a task.
func TaskRef(id uint) RelatedRef { return RelatedRef{Kind: RelatedTask, ID: id} }

// ExamRef references an exam.
func ExamRef(id uint) RelatedRef { return RelatedRef{Kind: RelatedExam, ID: id} }

// ExamSubmissionRef references an exam submission.
func ExamSubmissionRef(id uint) RelatedRef {
	return RelatedRef{Kind: RelatedExamSubmission, ID: id}
}

// Valid reports whether the reference names a known kind and a non-zero id.
func (r RelatedRef) Valid() bool {
	return r.Kind.Valid() && r.ID != 0
}

// IsZero reports whether the reference is unset.
func (r RelatedRef) IsZero() bool {
	return r.Kind == "" && r.ID == 0
}

func (r RelatedRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}
