package middleware

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

var (
	errMissingBearer  = errors.New("authorization header missing")
	errMalformedToken = errors.New("invalid authorization header")
)

// tokenIdentity is the actor carried by a bearer token.
type tokenIdentity struct {
	UserID uint
	Role   string
}

// JWTProtected validates HMAC-signed bearer tokens and stores the actor under the
// user_id and user_role locals. Tokens without a usable subject are rejected.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		identity, ok := identityFromClaims(claims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token subject missing")
		}

		c.Locals("user_id", identity.UserID)
		if identity.Role != "" {
			c.Locals("user_role", identity.Role)
		}
		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingBearer
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", errMalformedToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMalformedToken
	}
	return token, nil
}

func identityFromClaims(claims jwt.MapClaims) (tokenIdentity, bool) {
	var identity tokenIdentity
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if id, err := subjectID(value); err == nil {
				identity.UserID = id
				break
			}
		}
	}
	if identity.UserID == 0 {
		return identity, false
	}

	for _, key := range []string{"role", "roles"} {
		if role := roleClaim(claims[key]); role != "" {
			identity.Role = role
			break
		}
	}
	return identity, true
}

// subjectID accepts numeric or decimal-string subjects. Zero is never a valid user.
func subjectID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return 0, fmt.Errorf("invalid subject %v", v)
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			return 0, fmt.Errorf("invalid subject %q", v)
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

func roleClaim(value interface{}) string {
	switch v := value.(type) {
	case string:
		return CanonicalRole(v)
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := CanonicalRole(str); role != "" {
					return role
				}
			}
		}
	}
	return ""
}
