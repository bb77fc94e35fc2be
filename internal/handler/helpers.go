package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
	appErrors "github.com/noah-isme/gema-grading-api/pkg/errors"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return nil, fmt.Errorf("invalid %s", key)
	}
	id := uint(parsed)
	return &id, nil
}

func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals("user_id").(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	case string:
		if parsed, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64); err == nil {
			return uint(parsed)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if role, ok := c.Locals("user_role").(string); ok {
		return middleware.CanonicalRole(role)
	}
	return ""
}

// actorFromContext resolves the authenticated caller; ok is false when no user is bound.
func actorFromContext(c *fiber.Ctx) (service.Actor, bool) {
	id := userIDFromContext(c)
	if id == 0 {
		return service.Actor{}, false
	}

	return service.Actor{ID: id, Role: models.UserRole(userRoleFromContext(c))}, true
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError logs unexpected failures and renders the error envelope.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, msg string) error {
	if appErr := appErrors.FromError(err); appErr != nil && appErr.Status >= fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Msg(msg)
	}
	return utils.SendAppError(c, err)
}

func unauthorized(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
}
