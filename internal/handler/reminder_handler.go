package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// ReminderHandler lists the caller's pending deadline reminders.
type ReminderHandler struct {
	service service.ReminderService
	logger  zerolog.Logger
}

// NewReminderHandler constructs the handler.
func NewReminderHandler(service service.ReminderService, logger zerolog.Logger) *ReminderHandler {
	return &ReminderHandler{
		service: service,
		logger:  logger.With().Str("component", "reminder_handler").Logger(),
	}
}

// Register attaches the reminder routes.
func (h *ReminderHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ReminderHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthorized(c)
	}

	reminders, err := h.service.ListActive(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list reminders")
	}

	return utils.SendSuccess(c, "reminders retrieved", reminders)
}
