package service

import (
	"context"
	"fmt"
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

// TaskService manages task authoring and lifecycle transitions.
type TaskService interface {
	CreateTask(ctx context.Context, actorID uint, req dto.TaskCreateRequest) (dto.TaskResponse, error)
	UpdateTaskStatus(ctx context.Context, taskID, actorID uint, req dto.TaskStatusUpdateRequest) (dto.TaskResponse, error)
	CloseTask(ctx context.Context, taskID, actorID uint) (dto.TaskResponse, error)
	GetTask(ctx context.Context, taskID uint) (dto.TaskResponse, error)
	ListTasks(ctx context.Context, req dto.TaskListRequest, actor Actor) (dto.TaskListResponse, error)
}

type taskService struct {
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	projects    repository.ProjectRepository
	users       repository.UserRepository
	activity    ActivityRecorder
	dispatcher  Dispatcher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewTaskService constructs the task service.
func NewTaskService(
	tasks repository.TaskRepository,
	submissions repository.SubmissionRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	activity ActivityRecorder,
	dispatcher Dispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) TaskService {
	return &taskService{
		tasks:       tasks,
		submissions: submissions,
		projects:    projects,
		users:       users,
		activity:    activity,
		dispatcher:  dispatcher,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "task_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/task"),
		now:         time.Now,
	}
}

func (s *taskService) CreateTask(ctx context.Context, actorID uint, req dto.TaskCreateRequest) (dto.TaskResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tasks.create", trace.WithAttributes(attribute.Int64("tasks.actor_id", int64(actorID))))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.TaskResponse{}, failSpan(span, err, "validation_failed")
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "actor not found"), "actor_lookup_failed")
	}
	if _, err := s.users.GetByID(ctx, req.ResponsibleID); err != nil {
		return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "responsible user not found"), "responsible_lookup_failed")
	}
	if req.TutorID != nil {
		if _, err := s.users.GetByID(ctx, *req.TutorID); err != nil {
			return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "tutor not found"), "tutor_lookup_failed")
		}
	}

	authorized := actor.CanAuthorTasks()
	tutorID := req.TutorID
	if req.ProjectID != nil {
		project, err := s.projects.GetByID(ctx, *req.ProjectID)
		if err != nil {
			return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "project not found"), "project_lookup_failed")
		}
		if project.Status == models.ProjectStatusArchived {
			return dto.TaskResponse{}, failSpan(span, appErrors.Conflict("project is archived"), "project_archived")
		}
		if project.TutorID != nil && *project.TutorID == actorID {
			authorized = true
		}
		if tutorID == nil {
			tutorID = project.TutorID
		}
	}
	if !authorized {
		return dto.TaskResponse{}, failSpan(span, appErrors.Forbidden("only tutors may create tasks"), "forbidden")
	}

	priority := models.TaskPriority(strings.ToLower(strings.TrimSpace(req.Priority)))
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := models.Task{
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(s.sanitizer.Sanitize(req.Description)),
		Priority:      priority,
		Status:        models.TaskStatusOpen,
		ResponsibleID: req.ResponsibleID,
		TutorID:       tutorID,
		ProjectID:     req.ProjectID,
		MaxGrade:      req.MaxGrade,
	}
	if req.DueDate != nil {
		due := req.DueDate.UTC()
		task.DueDate = &due
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, failSpan(span, err, "task_create_failed")
	}

	created, err := s.tasks.GetByID(ctx, task.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("task_id", task.ID).Msg("failed to reload created task")
		created = task
	}

	observability.WorkflowTransitions().WithLabelValues("task", string(models.TaskStatusOpen)).Inc()
	span.SetAttributes(attribute.Int64("tasks.id", int64(created.ID)))

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actorID,
		Action:     ActionTaskCreated,
		EntityType: "task",
		EntityID:   created.ID,
		NewValues: map[string]interface{}{
			"name":           created.Name,
			"status":         created.Status,
			"responsible_id": created.ResponsibleID,
			"project_id":     created.ProjectID,
			"due_date":       created.DueDate,
		},
	})
	dispatchEvent(ctx, s.dispatcher, s.logger, WorkflowEvent{Kind: EventTaskCreated, ActorID: actorID, Task: created})

	return dto.NewTaskResponse(created), nil
}

func (s *taskService) UpdateTaskStatus(ctx context.Context, taskID, actorID uint, req dto.TaskStatusUpdateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TaskResponse{}, err
	}

	next := models.TaskStatus(req.Status)
	if next == models.TaskStatusClosed {
		return s.CloseTask(ctx, taskID, actorID)
	}

	ctx, span := s.tracer.Start(ctx, "tasks.update_status", trace.WithAttributes(
		attribute.Int64("tasks.id", int64(taskID)),
		attribute.String("tasks.next_status", string(next)),
	))
	defer span.End()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "task not found"), "task_lookup_failed")
	}
	if !task.CanGrade(actorID) {
		return dto.TaskResponse{}, failSpan(span, appErrors.Forbidden("only the task tutor or responsible user may change status"), "forbidden")
	}
	if !task.Status.CanTransition(next) {
		return dto.TaskResponse{}, failSpan(span, appErrors.Conflict(fmt.Sprintf("task cannot move from %s to %s", task.Status, next)), "invalid_transition")
	}

	previous := task.Status
	if err := s.tasks.UpdateStatus(ctx, task.ID, previous, next); err != nil {
		return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "task not found"), "task_update_failed")
	}
	task.Status = next
	task.UpdatedAt = s.now().UTC()

	observability.WorkflowTransitions().WithLabelValues("task", string(next)).Inc()

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actorID,
		Action:     ActionTaskStatusChanged,
		EntityType: "task",
		EntityID:   task.ID,
		OldValues:  map[string]interface{}{"status": previous},
		NewValues:  map[string]interface{}{"status": next},
	})

	return dto.NewTaskResponse(task), nil
}

// CloseTask marks the task closed. Existing submissions and their grades are left untouched.
func (s *taskService) CloseTask(ctx context.Context, taskID, actorID uint) (dto.TaskResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tasks.close", trace.WithAttributes(
		attribute.Int64("tasks.id", int64(taskID)),
		attribute.Int64("tasks.actor_id", int64(actorID)),
	))
	defer span.End()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "task not found"), "task_lookup_failed")
	}
	if !task.CanGrade(actorID) {
		return dto.TaskResponse{}, failSpan(span, appErrors.Forbidden("only the task tutor or responsible user may close the task"), "forbidden")
	}
	if task.IsClosed() {
		return dto.TaskResponse{}, failSpan(span, appErrors.Conflict("task is already closed"), "already_closed")
	}

	previous := task.Status
	if err := s.tasks.UpdateStatus(ctx, task.ID, previous, models.TaskStatusClosed); err != nil {
		return dto.TaskResponse{}, failSpan(span, translateStoreError(err, "task not found"), "task_update_failed")
	}
	task.Status = models.TaskStatusClosed
	task.UpdatedAt = s.now().UTC()

	observability.WorkflowTransitions().WithLabelValues("task", string(models.TaskStatusClosed)).Inc()

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actorID,
		Action:     ActionTaskClosed,
		EntityType: "task",
		EntityID:   task.ID,
		OldValues:  map[string]interface{}{"status": previous},
		NewValues:  map[string]interface{}{"status": task.Status},
	})

	studentIDs, err := s.submissions.ListStudentIDsByTask(ctx, task.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("task_id", task.ID).Msg("failed to list students for close notification")
	}
	dispatchEvent(ctx, s.dispatcher, s.logger, WorkflowEvent{Kind: EventTaskClosed, ActorID: actorID, Task: task, StudentIDs: studentIDs})

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) GetTask(ctx context.Context, taskID uint) (dto.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return dto.TaskResponse{}, translateStoreError(err, "task not found")
	}
	return dto.NewTaskResponse(task), nil
}

func (s *taskService) ListTasks(ctx context.Context, req dto.TaskListRequest, actor Actor) (dto.TaskListResponse, error) {
	filter := repository.TaskFilter{
		Search:        strings.TrimSpace(req.Search),
		ProjectID:     req.ProjectID,
		ResponsibleID: req.ResponsibleID,
		TutorID:       req.TutorID,
		Sort:          req.Sort,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	if status := models.TaskStatus(strings.ToLower(strings.TrimSpace(req.Status))); status != "" {
		if !status.Valid() {
			return dto.TaskListResponse{}, appErrors.Validation(fmt.Sprintf("unknown task status %q", req.Status))
		}
		filter.Status = &status
	}

	if !actor.IsStaff() {
		tasks, err := s.tasks.ListForStudent(ctx, actor.ID)
		if err != nil {
			return dto.TaskListResponse{}, err
		}
		visible := make([]models.Task, 0, len(tasks))
		for _, task := range tasks {
			if filter.Status != nil && task.Status != *filter.Status {
				continue
			}
			visible = append(visible, task)
		}
		return dto.TaskListResponse{
			Items:      dto.NewTaskResponseSlice(pageTasks(visible, req.Page, req.PageSize)),
			Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, int64(len(visible))),
		}, nil
	}

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return dto.TaskListResponse{}, err
	}

	return dto.TaskListResponse{
		Items:      dto.NewTaskResponseSlice(tasks),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// pageTasks slices an in-memory listing; a non-positive size returns everything.
func pageTasks(tasks []models.Task, page, size int) []models.Task {
	if size <= 0 {
		return tasks
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(tasks) {
		return []models.Task{}
	}
	end := start + size
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end]
}
