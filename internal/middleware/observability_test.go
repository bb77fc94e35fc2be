package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/observability"
)

func decodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

func TestObservabilityCountsAPIRequestsByRouteTemplate(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(zerolog.Nop()))
	app.Get("/api/v2/submissions/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "404" {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	ok := observability.HTTPRequests().WithLabelValues(http.MethodGet, "/api/v2/submissions/:id", "200")
	missing := observability.HTTPErrors().WithLabelValues(http.MethodGet, "/api/v2/submissions/:id", "404")
	okBefore, missingBefore := testutil.ToFloat64(ok), testutil.ToFloat64(missing)

	for _, path := range []string{"/api/v2/submissions/1", "/api/v2/submissions/2", "/api/v2/submissions/404", "/metrics"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	}

	require.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	require.Equal(t, missingBefore+1, testutil.ToFloat64(missing))
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=25ms", latencyBucket(0))
	require.Equal(t, ">500ms", latencyBucket(2e9))
	require.True(t, isStreamRoute("/api/v2/notifications/stream"))
	require.False(t, isStreamRoute("/api/v2/notifications"))
}
