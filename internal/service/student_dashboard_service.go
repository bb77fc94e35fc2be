package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

const recentSubmissionLimit = 5

// StudentDashboardService produces aggregated dashboard metrics.
type StudentDashboardService interface {
	DashboardInvalidator
	GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator. The cache is optional.
func NewStudentDashboardService(tasks repository.TaskRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		tasks:       tasks,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := dashboardCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	tasks, err := s.tasks.ListForStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	submissions, _, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(tasks, submissions)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached dashboard so the next read reflects new submissions or grades.
func (s *studentDashboardService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

// buildResponse expects submissions ordered newest first; the newest attempt per task wins.
func (s *studentDashboardService) buildResponse(tasks []models.Task, submissions []models.Submission) dto.StudentDashboardResponse {
	now := s.now()
	latestByTask := map[uint]models.Submission{}
	taskNames := map[uint]string{}
	for _, task := range tasks {
		taskNames[task.ID] = task.Name
	}
	for _, submission := range submissions {
		if _, exists := latestByTask[submission.TaskID]; !exists {
			latestByTask[submission.TaskID] = submission
		}
	}

	summary := dto.ProgressSummary{}
	pending := make([]dto.TaskProgress, 0)
	var gradeTotal float64
	var gradedCount int

	for _, task := range tasks {
		summary.TotalTasks++
		submission, submitted := latestByTask[task.ID]
		overdue := task.IsPastDue(now)

		progress := dto.TaskProgress{
			TaskID:    task.ID,
			Name:      task.Name,
			DueDate:   task.DueDate,
			Status:    "pending",
			UpdatedAt: task.UpdatedAt,
		}

		if submitted {
			progress.SubmissionID = &submission.ID
			progress.Attempt = submission.Attempt
			progress.Status = string(submission.Status)
			progress.Grade = submission.Grade
			progress.Feedback = submission.Feedback
			progress.UpdatedAt = submission.UpdatedAt
			summary.Submitted++

			switch submission.Status {
			case models.SubmissionStatusGraded:
				summary.Graded++
				if submission.Grade != nil {
					gradeTotal += *submission.Grade
					gradedCount++
				}
			case models.SubmissionStatusReturned:
				summary.Returned++
				summary.Pending++
			default:
				summary.Pending++
			}
		} else {
			summary.Pending++
		}

		isGraded := submitted && submission.Status == models.SubmissionStatusGraded
		progress.Overdue = overdue && !isGraded && !task.IsClosed()
		if progress.Overdue {
			summary.Overdue++
		}
		if !isGraded {
			pending = append(pending, progress)
		}
	}

	if gradedCount > 0 {
		summary.AverageGrade = gradeTotal / float64(gradedCount)
	}
	if summary.TotalTasks > 0 {
		summary.CompletionRate = (float64(summary.Graded) / float64(summary.TotalTasks)) * 100
	}

	activities := make([]dto.SubmissionActivity, 0, recentSubmissionLimit)
	for _, submission := range submissions {
		if len(activities) >= recentSubmissionLimit {
			break
		}
		activities = append(activities, dto.SubmissionActivity{
			SubmissionID: submission.ID,
			TaskID:       submission.TaskID,
			TaskName:     taskNames[submission.TaskID],
			Status:       string(submission.Status),
			Grade:        submission.Grade,
			SubmittedAt:  submission.SubmittedAt,
			UpdatedAt:    submission.UpdatedAt,
		})
	}

	return dto.StudentDashboardResponse{
		Summary:           summary,
		Pending:           pending,
		RecentSubmissions: activities,
	}
}
