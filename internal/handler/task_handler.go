package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// TaskHandler exposes task lifecycle endpoints and the submission entry point.
type TaskHandler struct {
	tasks   service.TaskService
	grading service.GradingService
	logger  zerolog.Logger
}

// NewTaskHandler constructs the handler.
func NewTaskHandler(tasks service.TaskService, grading service.GradingService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:   tasks,
		grading: grading,
		logger:  logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register attaches task endpoints. submitGuards run before the submission handler,
// typically a per-user rate limiter.
func (h *TaskHandler) Register(router fiber.Router, submitGuards ...fiber.Handler) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("", middleware.WithAuth(h.list, middleware.AuthOptions{}))
	router.Post("", middleware.WithAuth(h.create, staff))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{}))
	router.Patch("/:id/status", middleware.WithAuth(h.updateStatus, staff))
	router.Post("/:id/close", middleware.WithAuth(h.close, staff))

	submit := append(append([]fiber.Handler{}, submitGuards...), middleware.WithAuth(h.submit, middleware.AuthOptions{}))
	router.Post("/:id/submissions", submit...)
}

func (h *TaskHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	req := dto.TaskListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   strings.TrimSpace(c.Query("status")),
		Sort:     strings.TrimSpace(c.Query("sort")),
	}
	if req.ProjectID, err = parseQueryUint(c, "project_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.ResponsibleID, err = parseQueryUint(c, "responsible_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.TutorID, err = parseQueryUint(c, "tutor_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.tasks.ListTasks(requestContext(c), req, actor)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list tasks")
	}

	return utils.OK(c, result.Items, "tasks retrieved", result.Pagination)
}

func (h *TaskHandler) create(c *fiber.Ctx) error {
	var payload dto.TaskCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	task, err := h.tasks.CreateTask(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create task")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task created", task)
}

func (h *TaskHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	task, err := h.tasks.GetTask(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load task")
	}

	return utils.SendSuccess(c, "task retrieved", task)
}

func (h *TaskHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TaskStatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	task, err := h.tasks.UpdateTaskStatus(requestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update task status")
	}

	return utils.SendSuccess(c, "task status updated", task)
}

func (h *TaskHandler) close(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	task, err := h.tasks.CloseTask(requestContext(c), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to close task")
	}

	return utils.SendSuccess(c, "task closed", task)
}

func (h *TaskHandler) submit(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	submission, err := h.grading.Submit(requestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit work")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}
