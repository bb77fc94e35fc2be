package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "grading-secret"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func jwtApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "user_role": c.Locals("user_role")})
	})
	return app
}

func TestJWTProtectedPopulatesActor(t *testing.T) {
	app := jwtApp()
	token := signedToken(t, jwt.MapClaims{"sub": "7", "roles": []string{"Teacher"}, "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"user_role"`
	}
	require.NoError(t, decodeJSON(resp, &payload))
	require.Equal(t, uint(7), payload.UserID)
	require.Equal(t, "tutor", payload.Role)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := jwtApp()

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"expired":        "Bearer " + signedToken(t, jwt.MapClaims{"sub": 7, "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":     "Bearer " + signedToken(t, jwt.MapClaims{"role": "student"}),
		"foreign secret": "Bearer " + func() string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 7}).SignedString([]byte("other"))
			require.NoError(t, err)
			return token
		}(),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
