package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// ActivityHandler exposes the audit trail to staff.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 25
	} else if pageSize > 200 {
		pageSize = 200
	}

	req := dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}
	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid actor id")
	}
	if actorID != nil {
		req.ActorID = *actorID
	}
	entityID, err := parseQueryUint(c, "entity_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity id")
	}
	if entityID != nil {
		req.EntityID = *entityID
	}

	if req.Since, err = parseQueryTime(c, "since"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "since must be an RFC3339 timestamp")
	}
	if req.Until, err = parseQueryTime(c, "until"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "until must be an RFC3339 timestamp")
	}

	response, err := h.service.List(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list activity logs")
	}

	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}
