package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := CanonicalRole(role)
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		roleValue := c.Locals("user_role")
		role := normalizeRoleValue(roleValue)
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return CanonicalRole(v)
	case fmt.Stringer:
		return CanonicalRole(v.String())
	default:
		if value == nil {
			return ""
		}
		return CanonicalRole(fmt.Sprintf("%v", value))
	}
}

// CanonicalRole lowercases a role and folds legacy "teacher" tokens onto "tutor".
// Every role comparison in the API goes through it.
func CanonicalRole(role string) string {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "teacher" {
		return "tutor"
	}
	return normalized
}
