package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/api/middleware"
	"github.com/coachline/coaching-core/internal/core/domain"
)

// actorFrom returns the authenticated caller. An empty actor makes the lifecycle
// engine answer with domain.ErrUnauthorized.
func actorFrom(c echo.Context) domain.Actor {
	identity, _ := c.Get(middleware.IdentityKey).(*domain.IdentityRecord)
	if identity == nil {
		return domain.Actor{}
	}
	return domain.Actor{ID: identity.ID}
}

// bindAndValidate decodes the request body and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
