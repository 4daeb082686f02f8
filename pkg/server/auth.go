package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"

	"github.com/equipviz/equipviz/pkg/config"
	"github.com/equipviz/equipviz/pkg/contract"
)

const ownerLocal = "owner"

func unauthenticated(message string) *contract.Error {
	return contract.NewError(contract.ErrorCode_UNAUTHENTICATED, message)
}

// ownerFrom returns the identity stored by the authentication middleware.
func ownerFrom(c *fiber.Ctx) string {
	owner, _ := c.Locals(ownerLocal).(string)

	return owner
}

// claimString reads a claim that may have been issued as a string or a number.
func claimString(claims jwt.MapClaims, key string) string {
	switch value := claims[key].(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(value)
	}
}

func newTokenAuth(secret []byte) (fiber.Handler, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}

	parser := &jwt.Parser{
		ValidMethods:  []string{jwt.SigningMethodHS256.Alg()},
		UseJSONNumber: true,
	}

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			return unauthenticated("Authentication credentials were not provided")
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}); err != nil {
			logrus.WithError(err).Debug("bearer token rejected")

			return unauthenticated("Invalid or expired token")
		}

		owner := claimString(claims, "user_id")
		if owner == "" {
			owner = claimString(claims, "sub")
		}
		if owner == "" {
			return unauthenticated("Token does not identify a user")
		}

		c.Locals(ownerLocal, owner)

		return c.Next()
	}, nil
}

// newHeaderAuth trusts an identity header set by a fronting proxy.
func newHeaderAuth(header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := strings.TrimSpace(c.Get(header))
		if owner == "" {
			return unauthenticated("Authentication credentials were not provided")
		}

		c.Locals(ownerLocal, owner)

		return c.Next()
	}
}

func newAuthMiddleware(cfg *config.Config) (fiber.Handler, error) {
	if cfg.JWTSecret != "" {
		return newTokenAuth([]byte(cfg.JWTSecret))
	}

	header := cfg.OwnerHeader
	if header == "" {
		header = "X-Remote-User"
	}

	return newHeaderAuth(header), nil
}
