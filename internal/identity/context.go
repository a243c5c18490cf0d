// Package identity resolves which user a request acts for.
package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultUserID is used when bearer auth is disabled or the token carries no subject.
const DefaultUserID = "default"

// GetUserID extracts the user id from the JWT "sub" claim placed in locals
// by the auth middleware.
func GetUserID(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return DefaultUserID
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return DefaultUserID
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return DefaultUserID
	}
	return sub
}
