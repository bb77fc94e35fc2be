package dto

import "time"

// StudentDashboardResponse aggregates task progress for a student.
type StudentDashboardResponse struct {
	Summary           ProgressSummary      `json:"summary"`
	Pending           []TaskProgress       `json:"pending_tasks"`
	RecentSubmissions []SubmissionActivity `json:"recent_submissions"`
}

// ProgressSummary captures aggregated statistics for the dashboard.
type ProgressSummary struct {
	TotalTasks     int     `json:"total_tasks"`
	Submitted      int     `json:"submitted"`
	Graded         int     `json:"graded"`
	Returned       int     `json:"returned"`
	Pending        int     `json:"pending"`
	Overdue        int     `json:"overdue"`
	AverageGrade   float64 `json:"average_grade"`
	CompletionRate float64 `json:"completion_rate"`
}

// TaskProgress describes the state of a single task relative to a student.
type TaskProgress struct {
	TaskID       uint       `json:"task_id"`
	Name         string     `json:"name"`
	DueDate      *time.Time `json:"due_date"`
	Status       string     `json:"status"`
	SubmissionID *uint      `json:"submission_id"`
	Attempt      int        `json:"attempt"`
	Grade        *float64   `json:"grade"`
	Feedback     *string    `json:"feedback"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Overdue      bool       `json:"overdue"`
}

// SubmissionActivity details recent submission events.
type SubmissionActivity struct {
	SubmissionID uint      `json:"submission_id"`
	TaskID       uint      `json:"task_id"`
	TaskName     string    `json:"task_name"`
	Status       string    `json:"status"`
	Grade        *float64  `json:"grade"`
	SubmittedAt  time.Time `json:"submitted_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
