package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

func TestRateLimitKeysByUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User"); id == "3" {
			c.Locals("user_id", uint(3))
		} else if id == "4" {
			c.Locals("user_id", uint(4))
		}
		return c.Next()
	})
	app.Post("/submit", RateLimit("submissions", 1, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func(user string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	require.Equal(t, fiber.StatusCreated, send("3").StatusCode)

	limited := send("3")
	require.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	require.Equal(t, "60", limited.Header.Get(fiber.HeaderRetryAfter))
	var payload utils.APIResponse
	require.NoError(t, decodeJSON(limited, &payload))
	require.False(t, payload.Success)
	require.Equal(t, "RATE_LIMITED", payload.Code)

	require.Equal(t, fiber.StatusCreated, send("4").StatusCode)
	require.Equal(t, fiber.StatusCreated, send("").StatusCode)
	require.Equal(t, fiber.StatusTooManyRequests, send("").StatusCode)
}

func TestCorrelationIDPropagation(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CorrelationIDFromContext(c.UserContext()))
	})

	cases := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{name: "correlation header", header: CorrelationHeader, value: "req-42", expected: "req-42"},
		{name: "request id fallback", header: fiber.HeaderXRequestID, value: "legacy-7", expected: "legacy-7"},
		{name: "oversized id replaced", header: CorrelationHeader, value: strings.Repeat("a", maxCorrelationLength+1)},
		{name: "embedded whitespace replaced", header: CorrelationHeader, value: "bad id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(tc.header, tc.value)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			id := resp.Header.Get(CorrelationHeader)
			if tc.expected != "" {
				require.Equal(t, tc.expected, id)
			} else {
				require.NotEqual(t, tc.value, id)
				require.Len(t, id, 36)
			}

			buf := new(strings.Builder)
			_, err = io.Copy(buf, resp.Body)
			require.NoError(t, err)
			require.Equal(t, id, buf.String())
		})
	}
}
