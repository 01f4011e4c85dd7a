package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/core/domain"
)

// IdentityKey is the echo context key holding the caller's *domain.IdentityRecord.
const IdentityKey = "identity"

// SessionResolver turns a bearer token into the identity it was issued to.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*domain.IdentityRecord, error)
}

// Auth validates the bearer token and injects the caller's identity into context.
func Auth(sessions SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			identity, err := sessions.CurrentSession(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil || identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(IdentityKey, identity)
			c.Set("role", string(identity.Role))

			return next(c)
		}
	}
}
