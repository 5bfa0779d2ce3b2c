package middlewares

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

// userIDLocalsKey is where the authenticated user id lives on the request.
const userIDLocalsKey = "user_id"

type AuthMiddlewareDependencies struct {
	JWTSecret string
}

// NewAuthMiddleware authenticates requests with an HS256 bearer token and
// stores the token subject as the requesting user id.
func NewAuthMiddleware(deps AuthMiddlewareDependencies) fiber.Handler {
	secret := []byte(deps.JWTSecret)

	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		claims := jwt.MapClaims{}

		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected token algorithm %s", token.Method.Alg())
			}

			return secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token has no subject",
			})
		}

		c.Locals(userIDLocalsKey, subject)

		return c.Next()
	}
}

// UserIDFromContext returns the authenticated user id, or an empty string on
// routes that never passed the auth middleware.
func UserIDFromContext(c fiber.Ctx) string {
	userID, _ := c.Locals(userIDLocalsKey).(string)
	return userID
}
