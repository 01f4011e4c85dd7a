package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/core/authz"
	"github.com/coachline/coaching-core/internal/core/domain"
)

// RBAC enforces role-based access control against the identity set by Auth. The
// lifecycle engine re-checks the gate against the store; this only fails fast.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := c.Get(IdentityKey).(*domain.IdentityRecord)
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, role := range allowedRoles {
				if authz.RequireRole(identity, role) == nil {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}

// CoachOnly is RBAC(domain.RoleCoach).
func CoachOnly() echo.MiddlewareFunc {
	return RBAC(domain.RoleCoach)
}
