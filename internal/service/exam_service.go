package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	appErrors "github.com/noah-isme/gema-grading-api/pkg/errors"
)

// ExamService runs the exam lifecycle: authoring, answering and review.
type ExamService interface {
	CreateExam(ctx context.Context, ownerID uint, req dto.ExamCreateRequest) (dto.ExamResponse, error)
	PublishExam(ctx context.Context, examID, actorID uint) (dto.ExamResponse, error)
	GetExam(ctx context.Context, examID uint) (dto.ExamResponse, error)
	SubmitExam(ctx context.Context, examID, studentID uint, req dto.ExamSubmitRequest) (dto.ExamSubmissionResponse, error)
	GradeExamSubmission(ctx context.Context, examSubmissionID, graderID uint, req dto.ExamGradeRequest) (dto.ExamSubmissionResponse, error)
	CloseExam(ctx context.Context, examID, actorID uint) (dto.ExamResponse, error)
}

type examService struct {
	exams      repository.ExamRepository
	users      repository.UserRepository
	activity   ActivityRecorder
	dispatcher Dispatcher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewExamService constructs the exam workflow.
func NewExamService(exams repository.ExamRepository, users repository.UserRepository, activity ActivityRecorder, dispatcher Dispatcher, validate *validator.Validate, logger zerolog.Logger) ExamService {
	return &examService{
		exams:      exams,
		users:      users,
		activity:   activity,
		dispatcher: dispatcher,
		validator:  validate,
		sanitizer:  bluemonday.UGCPolicy(),
		logger:     logger.With().Str("component", "exam_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/exam"),
		now:        time.Now,
	}
}

func (s *examService) CreateExam(ctx context.Context, ownerID uint, req dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return dto.ExamResponse{}, translateStoreError(err, "owner not found")
	}
	if !owner.CanAuthorTasks() {
		return dto.ExamResponse{}, appErrors.Forbidden("only tutors may create exams")
	}
	if req.StartsAt != nil && req.EndsAt != nil && !req.EndsAt.After(*req.StartsAt) {
		return dto.ExamResponse{}, appErrors.Validation("ends_at must be after starts_at")
	}

	maxScore := req.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}

	exam := models.Exam{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(req.Description)),
		OwnerID:     ownerID,
		Status:      models.ExamStatusDraft,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		MaxScore:    maxScore,
	}
	for idx, question := range req.Questions {
		points := question.Points
		if points <= 0 {
			points = 1
		}
		exam.Questions = append(exam.Questions, models.ExamQuestion{
			Prompt:        strings.TrimSpace(s.sanitizer.Sanitize(question.Prompt)),
			Kind:          models.QuestionKind(question.Kind),
			CorrectAnswer: strings.TrimSpace(question.CorrectAnswer),
			Points:        points,
			Position:      idx + 1,
		})
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(exam), nil
}

func (s *examService) PublishExam(ctx context.Context, examID, actorID uint) (dto.ExamResponse, error) {
	return s.transition(ctx, examID, actorID, models.ExamStatusPublished)
}

// CloseExam stops accepting answers. Closing an already closed exam is a conflict.
func (s *examService) CloseExam(ctx context.Context, examID, actorID uint) (dto.ExamResponse, error) {
	return s.transition(ctx, examID, actorID, models.ExamStatusClosed)
}

func (s *examService) transition(ctx context.Context, examID, actorID uint, next models.ExamStatus) (dto.ExamResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exams.transition", trace.WithAttributes(
		attribute.Int64("exams.id", int64(examID)),
		attribute.String("exams.next_status", string(next)),
	))
	defer span.End()

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return dto.ExamResponse{}, failSpan(span, translateStoreError(err, "exam not found"), "exam_lookup_failed")
	}
	if exam.OwnerID != actorID {
		return dto.ExamResponse{}, failSpan(span, appErrors.Forbidden("only the exam owner may change its status"), "forbidden")
	}
	if !exam.Status.CanTransition(next) {
		return dto.ExamResponse{}, failSpan(span, appErrors.Conflict(fmt.Sprintf("exam is %s and cannot become %s", exam.Status, next)), "invalid_transition")
	}

	previous := exam.Status
	if err := s.exams.UpdateStatus(ctx, exam.ID, previous, next); err != nil {
		return dto.ExamResponse{}, failSpan(span, translateStoreError(err, "exam not found"), "exam_update_failed")
	}
	exam.Status = next
	exam.UpdatedAt = s.now().UTC()

	observability.WorkflowTransitions().WithLabelValues("exam", string(next)).Inc()
	if next == models.ExamStatusClosed {
		recordActivity(ctx, s.activity, s.logger, ActivityEntry{
			ActorID:    actorID,
			Action:     ActionExamClosed,
			EntityType: "exam",
			EntityID:   exam.ID,
			OldValues:  map[string]interface{}{"status": previous},
			NewValues:  map[string]interface{}{"status": next},
		})
	}

	return dto.NewExamResponse(exam), nil
}

func (s *examService) GetExam(ctx context.Context, examID uint) (dto.ExamResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return dto.ExamResponse{}, translateStoreError(err, "exam not found")
	}
	return dto.NewExamResponse(exam), nil
}

func (s *examService) SubmitExam(ctx context.Context, examID, studentID uint, req dto.ExamSubmitRequest) (dto.ExamSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exams.submit", trace.WithAttributes(
		attribute.Int64("exams.id", int64(examID)),
		attribute.Int64("exams.student_id", int64(studentID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.ExamSubmissionResponse{}, failSpan(span, err, "validation_failed")
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return dto.ExamSubmissionResponse{}, failSpan(span, translateStoreError(err, "exam not found"), "exam_lookup_failed")
	}
	if _, err := s.users.GetByID(ctx, studentID); err != nil {
		return dto.ExamSubmissionResponse{}, failSpan(span, translateStoreError(err, "student not found"), "student_lookup_failed")
	}

	now := s.now().UTC()
	if !exam.AcceptsAnswers(now) {
		return dto.ExamSubmissionResponse{}, failSpan(span, appErrors.Conflict("exam is not accepting answers"), "exam_closed")
	}

	questions := make(map[uint]models.ExamQuestion, len(exam.Questions))
	for _, question := range exam.Questions {
		questions[question.ID] = question
	}

	answers := datatypes.JSONMap{}
	var autoScore float64
	for key, answer := range req.Answers {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return dto.ExamSubmissionResponse{}, failSpan(span, appErrors.Validation(fmt.Sprintf("invalid question id %q", key)), "validation_failed")
		}
		question, ok := questions[uint(id)]
		if !ok {
			return dto.ExamSubmissionResponse{}, failSpan(span, appErrors.Validation(fmt.Sprintf("question %d does not belong to this exam", id)), "validation_failed")
		}
		clean := strings.TrimSpace(s.sanitizer.Sanitize(answer))
		answers[strconv.FormatUint(id, 10)] = clean
		autoScore += question.Score(clean)
	}

	submission := models.ExamSubmission{
		ExamID:      exam.ID,
		StudentID:   studentID,
		Answers:     answers,
		AutoScore:   autoScore,
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: now,
		Version:     1,
	}
	if err := s.exams.CreateSubmission(ctx, &submission); err != nil {
		return dto.ExamSubmissionResponse{}, failSpan(span, err, "exam_submission_create_failed")
	}

	observability.WorkflowTransitions().WithLabelValues("exam_submission", string(models.SubmissionStatusSubmitted)).Inc()
	span.SetAttributes(attribute.Float64("exams.auto_score", autoScore))

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    studentID,
		Action:     ActionExamSubmissionCreated,
		EntityType: "exam_submission",
		EntityID:   submission.ID,
		NewValues: map[string]interface{}{
			"exam_id":    exam.ID,
			"student_id": studentID,
			"auto_score": autoScore,
			"answers":    len(answers),
		},
	})
	dispatchEvent(ctx, s.dispatcher, s.logger, WorkflowEvent{Kind: EventExamSubmissionCreated, ActorID: studentID, Exam: exam, ExamSubmission: submission})

	return dto.NewExamSubmissionResponse(submission), nil
}

func (s *examService) GradeExamSubmission(ctx context.Context, examSubmissionID, graderID uint, req dto.ExamGradeRequest) (dto.ExamSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exams.grade", trace.WithAttributes(
		attribute.Int64("exams.submission_id", int64(examSubmissionID)),
		attribute.Int64("exams.actor_id", int64(graderID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.ExamSubmissionResponse{}, failSpan(span, err, "validation_failed")
	}

	submission, err := s.exams.GetSubmission(ctx, examSubmissionID)
	if err != nil {
		return dto.ExamSubmissionResponse{}, failSpan(span, translateStoreError(err, "exam submission not found"), "exam_submission_lookup_failed")
	}
	exam := submission.Exam
	if exam.OwnerID != graderID {
		return dto.ExamSubmissionResponse{}, failSpan(span, appErrors.Forbidden("only the exam owner may grade"), "forbidden")
	}
	if !submission.Status.CanTransition(models.SubmissionStatusGraded) {
		return dto.ExamSubmissionResponse{}, failSpan(span, appErrors.Conflict(fmt.Sprintf("exam submission is %s and cannot be graded", submission.Status)), "invalid_transition")
	}

	score := *req.Score
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > exam.MaxScore {
		return dto.ExamSubmissionResponse{}, failSpan(span, appErrors.Validation(fmt.Sprintf("score must be between 0 and %s", formatScore(exam.MaxScore))), "score_out_of_range")
	}

	expected := submission.Version
	if req.ExpectedVersion != nil {
		if *req.ExpectedVersion != submission.Version {
			return dto.ExamSubmissionResponse{}, failSpan(span, appErrors.Conflict("exam submission was modified since it was read"), "stale_version")
		}
		expected = *req.ExpectedVersion
	}

	previous := map[string]interface{}{
		"status":  submission.Status,
		"score":   submission.Score,
		"version": submission.Version,
	}

	review := strings.TrimSpace(s.sanitizer.Sanitize(req.Review))
	reviewedAt := s.now().UTC()
	submission.Score = &score
	submission.Review = &review
	submission.ReviewedAt = &reviewedAt
	submission.ReviewedBy = uintPtr(graderID)
	submission.Status = models.SubmissionStatusGraded

	if err := s.exams.UpdateSubmissionVersioned(ctx, &submission, expected); err != nil {
		return dto.ExamSubmissionResponse{}, failSpan(span, translateStoreError(err, "exam submission not found"), "exam_submission_update_failed")
	}

	observability.WorkflowTransitions().WithLabelValues("exam_submission", string(models.SubmissionStatusGraded)).Inc()

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    graderID,
		Action:     ActionExamSubmissionGraded,
		EntityType: "exam_submission",
		EntityID:   submission.ID,
		OldValues:  previous,
		NewValues: map[string]interface{}{
			"status":  submission.Status,
			"score":   score,
			"version": submission.Version,
		},
	})
	dispatchEvent(ctx, s.dispatcher, s.logger, WorkflowEvent{Kind: EventExamSubmissionGraded, ActorID: graderID, Exam: exam, ExamSubmission: submission})

	return dto.NewExamSubmissionResponse(submission), nil
}
