package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// RateLimit throttles a route group per authenticated user, falling back to the client IP
// for anonymous callers. It must run after the JWT middleware to see the user id.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   window,
		KeyGenerator: rateLimitKey(identifier),
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(utils.APIResponse{
				Success: false,
				Message: "too many requests, slow down",
				Code:    "RATE_LIMITED",
			})
		},
	})
}

func rateLimitKey(identifier string) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if userID, ok := c.Locals("user_id").(uint); ok && userID != 0 {
			return identifier + ":user:" + strconv.FormatUint(uint64(userID), 10)
		}
		return identifier + ":ip:" + c.IP()
	}
}
