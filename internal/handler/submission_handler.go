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

// SubmissionHandler exposes submission reads and the grading transitions.
type SubmissionHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.GradingService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission endpoints to the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("", middleware.WithAuth(h.list, middleware.AuthOptions{}))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{}))
	router.Patch("/:id/grade", middleware.WithAuth(h.grade, staff))
	router.Post("/:id/return", middleware.WithAuth(h.returnSubmission, staff))
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
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

	req := dto.SubmissionListRequest{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if req.TaskID, err = parseQueryUint(c, "task_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.StudentID, err = parseQueryUint(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ListSubmissions(requestContext(c), req, actor)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}

	return utils.OK(c, result.Items, "submissions retrieved", result.Pagination)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.GetSubmission(requestContext(c), id, actor)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	submission, err := h.service.Grade(requestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to grade submission")
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) returnSubmission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReturnSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	submission, err := h.service.ReturnSubmission(requestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to return submission")
	}

	return utils.SendSuccess(c, "submission returned", submission)
}
