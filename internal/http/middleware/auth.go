package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"docvault/internal/model"
	"docvault/internal/service"
)

// PrincipalLocalKey is the key used to store the verified caller in Fiber's context locals.
const PrincipalLocalKey = "principal"

// Identifier resolves a verified owner id into a principal.
type Identifier interface {
	Identify(ctx context.Context, ownerID string) (model.Principal, error)
}

// Auth verifies an HS256 bearer token and stores the caller's principal in locals.
// The owner id is read from the "user_id" claim, falling back to "sub".
// The role always comes from the owner record, never from the token.
func Auth(secret []byte, owners Identifier) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization token required")
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		ownerID, err := ownerIDFromClaims(claims)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
		}

		p, err := owners.Identify(c.UserContext(), ownerID)
		if err != nil {
			if errors.Is(err, service.ErrForbidden) {
				return fiber.NewError(fiber.StatusForbidden, "account disabled")
			}
			return err
		}

		c.Locals(PrincipalLocalKey, p)
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after Auth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization token required")
		}
		if !p.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "admin role required")
		}
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by Auth.
func PrincipalFrom(c *fiber.Ctx) (model.Principal, bool) {
	p, ok := c.Locals(PrincipalLocalKey).(model.Principal)
	return p, ok
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func ownerIDFromClaims(claims jwt.MapClaims) (string, error) {
	if v, ok := claims["user_id"]; ok {
		switch id := v.(type) {
		case string:
			if id != "" {
				return id, nil
			}
		case float64:
			if id == float64(int64(id)) {
				return strconv.FormatInt(int64(id), 10), nil
			}
		}
		return "", fmt.Errorf("unsupported user_id claim %v", v)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("missing subject")
	}
	return sub, nil
}
