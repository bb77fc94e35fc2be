package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// ExamHandler exposes exam authoring, submission and grading endpoints.
type ExamHandler struct {
	service service.ExamService
	logger  zerolog.Logger
}

// NewExamHandler constructs the handler.
func NewExamHandler(service service.ExamService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		service: service,
		logger:  logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches exam routes to the exams group and grading to the exam-submissions group.
func (h *ExamHandler) Register(exams fiber.Router, examSubmissions fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	exams.Post("", middleware.WithAuth(h.create, staff))
	exams.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{}))
	exams.Post("/:id/publish", middleware.WithAuth(h.publish, staff))
	exams.Post("/:id/close", middleware.WithAuth(h.close, staff))
	exams.Post("/:id/submissions", middleware.WithAuth(h.submit, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))

	examSubmissions.Patch("/:id/grade", middleware.WithAuth(h.grade, staff))
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	exam, err := h.service.CreateExam(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create exam")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exam, err := h.service.GetExam(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load exam")
	}

	return utils.SendSuccess(c, "exam retrieved", exam)
}

func (h *ExamHandler) publish(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exam, err := h.service.PublishExam(requestContext(c), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to publish exam")
	}

	return utils.SendSuccess(c, "exam published", exam)
}

func (h *ExamHandler) close(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exam, err := h.service.CloseExam(requestContext(c), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to close exam")
	}

	return utils.SendSuccess(c, "exam closed", exam)
}

func (h *ExamHandler) submit(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExamSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	submission, err := h.service.SubmitExam(requestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit exam")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam submitted", submission)
}

func (h *ExamHandler) grade(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExamGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	submission, err := h.service.GradeExamSubmission(requestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to grade exam submission")
	}

	return utils.SendSuccess(c, "exam submission graded", submission)
}
