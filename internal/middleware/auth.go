package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// ParseAccessToken validates an HMAC-signed access token and returns the
// subject user id and display name. Identity is trusted as given by the
// issuing auth service; this core does not authenticate beyond the signature.
func ParseAccessToken(jwtSecret, tokenString string) (userID, displayName string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}

	userID, _ = claims["sub"].(string)
	displayName, _ = claims["name"].(string)
	if userID == "" {
		return "", "", ErrInvalidToken
	}
	if displayName == "" {
		displayName = userID
	}
	return userID, displayName, nil
}

// Auth guards HTTP endpoints with a Bearer token and stores the caller's
// identity in request locals.
func Auth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(401).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		userID, displayName, err := ParseAccessToken(jwtSecret, tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals("user_id", userID)
		c.Locals("display_name", displayName)
		return c.Next()
	}
}
