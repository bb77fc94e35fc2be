package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	appErrors "github.com/noah-isme/gema-grading-api/pkg/errors"
)

// GradingConfig holds grading limits.
type GradingConfig struct {
	MaxGrade float64
}

// DashboardInvalidator drops cached read models for a student.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, studentID uint)
}

// GradingService owns the submission lifecycle of a task.
type GradingService interface {
	Submit(ctx context.Context, taskID, studentID uint, req dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, submissionID, graderID uint, req dto.GradeSubmissionRequest) (dto.SubmissionResponse, error)
	ReturnSubmission(ctx context.Context, submissionID, actorID uint, req dto.ReturnSubmissionRequest) (dto.SubmissionResponse, error)
	GetSubmission(ctx context.Context, submissionID uint, actor Actor) (dto.SubmissionResponse, error)
	ListSubmissions(ctx context.Context, req dto.SubmissionListRequest, actor Actor) (dto.SubmissionListResponse, error)
}

type gradingService struct {
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	activity    ActivityRecorder
	dispatcher  Dispatcher
	dashboard   DashboardInvalidator
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	maxGrade    float64
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the grading workflow. Dispatcher and dashboard may be nil.
func NewGradingService(
	tasks repository.TaskRepository,
	submissions repository.SubmissionRepository,
	users repository.UserRepository,
	activity ActivityRecorder,
	dispatcher Dispatcher,
	dashboard DashboardInvalidator,
	validate *validator.Validate,
	cfg GradingConfig,
	logger zerolog.Logger,
) GradingService {
	maxGrade := cfg.MaxGrade
	if maxGrade <= 0 {
		maxGrade = 100
	}
	return &gradingService{
		tasks:       tasks,
		submissions: submissions,
		users:       users,
		activity:    activity,
		dispatcher:  dispatcher,
		dashboard:   dashboard,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		maxGrade:    maxGrade,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/grading"),
		now:         time.Now,
	}
}

func (s *gradingService) Submit(ctx context.Context, taskID, studentID uint, req dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.submit", trace.WithAttributes(
		attribute.Int64("grading.task_id", int64(taskID)),
		attribute.Int64("grading.student_id", int64(studentID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "validation_failed")
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translateStoreError(err, "task not found"), "task_lookup_failed")
	}
	if _, err := s.users.GetByID(ctx, studentID); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translateStoreError(err, "student not found"), "student_lookup_failed")
	}
	if !task.CanSubmit(studentID) {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Forbidden("user is not assigned to this task"), "forbidden")
	}
	if task.IsClosed() {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Conflict("task is closed"), "task_closed")
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" && len(req.Files) == 0 {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Validation("submission requires content or files"), "validation_failed")
	}
	files, err := buildAttachments(req.Files)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "invalid_attachment")
	}

	attempts, err := s.submissions.CountAttempts(ctx, taskID, studentID)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "attempt_count_failed")
	}

	submission := models.Submission{
		TaskID:      taskID,
		StudentID:   studentID,
		Attempt:     int(attempts) + 1,
		Content:     content,
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: s.now().UTC(),
		Version:     1,
		Files:       files,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_create_failed")
	}

	observability.WorkflowTransitions().WithLabelValues("submission", string(models.SubmissionStatusSubmitted)).Inc()
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submission.ID)),
		attribute.Int("grading.attempt", submission.Attempt),
	)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    studentID,
		Action:     ActionSubmissionCreated,
		EntityType: "submission",
		EntityID:   submission.ID,
		NewValues: map[string]interface{}{
			"task_id":    taskID,
			"student_id": studentID,
			"attempt":    submission.Attempt,
			"status":     submission.Status,
			"files":      len(files),
		},
	})
	dispatchEvent(ctx, s.dispatcher, s.logger, WorkflowEvent{Kind: EventSubmissionCreated, ActorID: studentID, Task: task, Submission: submission})
	s.invalidateDashboard(ctx, studentID)

	return dto.NewSubmissionResponse(submission), nil
}

func (s *gradingService) Grade(ctx context.Context, submissionID, graderID uint, req dto.GradeSubmissionRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(graderID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "validation_failed")
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translateStoreError(err, "submission not found"), "submission_lookup_failed")
	}
	task := submission.Task
	if !task.CanGrade(graderID) {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Forbidden("only the task tutor or responsible user may grade"), "forbidden")
	}
	if !submission.Status.CanTransition(models.SubmissionStatusGraded) {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Conflict(fmt.Sprintf("submission is %s and cannot be graded", submission.Status)), "invalid_transition")
	}

	grade := *req.Grade
	maxGrade := task.EffectiveMaxGrade(s.maxGrade)
	if math.IsNaN(grade) || math.IsInf(grade, 0) || grade < 0 || grade > maxGrade {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Validation(fmt.Sprintf("grade must be between 0 and %s", formatScore(maxGrade))), "grade_out_of_range")
	}

	expected := submission.Version
	if req.ExpectedVersion != nil {
		if *req.ExpectedVersion != submission.Version {
			return dto.SubmissionResponse{}, failSpan(span, appErrors.Conflict("submission was modified since it was read"), "stale_version")
		}
		expected = *req.ExpectedVersion
	}

	previous := map[string]interface{}{
		"status":  submission.Status,
		"grade":   submission.Grade,
		"version": submission.Version,
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(req.Feedback))
	gradedAt := s.now().UTC()
	submission.Grade = &grade
	submission.Feedback = &feedback
	submission.GradedAt = &gradedAt
	submission.GradedBy = uintPtr(graderID)
	submission.Status = models.SubmissionStatusGraded

	if err := s.submissions.UpdateVersioned(ctx, &submission, expected); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translateStoreError(err, "submission not found"), "submission_update_failed")
	}

	observability.WorkflowTransitions().WithLabelValues("submission", string(models.SubmissionStatusGraded)).Inc()
	span.SetAttributes(
		attribute.Float64("grading.score", grade),
		attribute.Int64("grading.version", int64(submission.Version)),
	)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    graderID,
		Action:     ActionSubmissionGraded,
		EntityType: "submission",
		EntityID:   submission.ID,
		OldValues:  previous,
		NewValues: map[string]interface{}{
			"status":  submission.Status,
			"grade":   grade,
			"version": submission.Version,
			"task_id": submission.TaskID,
		},
	})
	dispatchEvent(ctx, s.dispatcher, s.logger, WorkflowEvent{Kind: EventSubmissionGraded, ActorID: graderID, Task: task, Submission: submission})
	s.invalidateDashboard(ctx, submission.StudentID)

	return dto.NewSubmissionResponse(submission), nil
}

// ReturnSubmission sends a submitted attempt back to the student without grading it.
func (s *gradingService) ReturnSubmission(ctx context.Context, submissionID, actorID uint, req dto.ReturnSubmissionRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.return", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actorID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "validation_failed")
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translateStoreError(err, "submission not found"), "submission_lookup_failed")
	}
	task := submission.Task
	if !task.CanGrade(actorID) {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Forbidden("only the task tutor or responsible user may return work"), "forbidden")
	}
	if !submission.Status.CanTransition(models.SubmissionStatusReturned) {
		return dto.SubmissionResponse{}, failSpan(span, appErrors.Conflict(fmt.Sprintf("submission is %s and cannot be returned", submission.Status)), "invalid_transition")
	}

	reason := strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(req.Reason))
	expected := submission.Version
	submission.Status = models.SubmissionStatusReturned
	if err := s.submissions.UpdateVersioned(ctx, &submission, expected); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translateStoreError(err, "submission not found"), "submission_update_failed")
	}

	observability.WorkflowTransitions().WithLabelValues("submission", string(models.SubmissionStatusReturned)).Inc()

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actorID,
		Action:     ActionSubmissionReturned,
		EntityType: "submission",
		EntityID:   submission.ID,
		OldValues:  map[string]interface{}{"status": models.SubmissionStatusSubmitted},
		NewValues: map[string]interface{}{
			"status": submission.Status,
			"reason": reason,
		},
	})
	dispatchEvent(ctx, s.dispatcher, s.logger, WorkflowEvent{Kind: EventSubmissionReturned, ActorID: actorID, Task: task, Submission: submission, Reason: reason})
	s.invalidateDashboard(ctx, submission.StudentID)

	return dto.NewSubmissionResponse(submission), nil
}

func (s *gradingService) GetSubmission(ctx context.Context, submissionID uint, actor Actor) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, translateStoreError(err, "submission not found")
	}
	if submission.StudentID != actor.ID && !submission.Task.CanGrade(actor.ID) && !actor.IsStaff() {
		return dto.SubmissionResponse{}, appErrors.Forbidden("submission belongs to another student")
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *gradingService) ListSubmissions(ctx context.Context, req dto.SubmissionListRequest, actor Actor) (dto.SubmissionListResponse, error) {
	filter := repository.SubmissionFilter{
		TaskID:    req.TaskID,
		StudentID: req.StudentID,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if status := models.SubmissionStatus(strings.ToLower(strings.TrimSpace(req.Status))); status != "" {
		if !status.Valid() {
			return dto.SubmissionListResponse{}, appErrors.Validation(fmt.Sprintf("unknown submission status %q", req.Status))
		}
		filter.Status = &status
	}
	if !actor.IsStaff() {
		filter.StudentID = uintPtr(actor.ID)
	}

	submissions, total, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	return dto.SubmissionListResponse{
		Items:      dto.NewSubmissionResponseSlice(submissions),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *gradingService) invalidateDashboard(ctx context.Context, studentID uint) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx, studentID)
	}
}
