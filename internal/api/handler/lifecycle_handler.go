package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

// LifecycleHandler exposes the coach-only transitions.
type LifecycleHandler struct {
	service ports.LifecycleService
}

func NewLifecycleHandler(service ports.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{service: service}
}

// Approve handles POST /v1/leads/:id/approve.
//
// @Summary      Approve a lead
// @Tags         lifecycle
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Lead identity id"
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/leads/{id}/approve [post]
func (h *LifecycleHandler) Approve(c echo.Context) error {
	acct, err := h.service.Approve(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountResponse{
		Identity: acct.Identity,
		Profile:  acct.Profile,
		Route:    domain.ResolveLandingRoute(&acct.Identity, acct.Profile),
	})
}

// UpdateLead handles PATCH /v1/leads/:id.
//
// @Summary      Edit a lead's metadata
// @Tags         lifecycle
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Lead identity id"
// @Param        body  body      updateLeadRequest  true  "Fields to change"
// @Success      200   {object}  domain.IdentityRecord
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/leads/{id} [patch]
func (h *LifecycleHandler) UpdateLead(c echo.Context) error {
	var req updateLeadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	rec, err := h.service.UpdateLeadProfile(c.Request().Context(), actorFrom(c), c.Param("id"), domain.LeadProfileFields{
		Name:  req.Name,
		Goal:  req.Goal,
		Notes: req.Notes,
		Email: req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// UpdateRole handles PUT /v1/users/:id/role.
//
// @Summary      Change a user's role
// @Tags         lifecycle
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Identity id"
// @Param        body  body      updateRoleRequest  true  "New role (lead, client or coach)"
// @Success      200   {object}  accountResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /v1/users/{id}/role [put]
func (h *LifecycleHandler) UpdateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}

	acct, err := h.service.UpdateRole(c.Request().Context(), actorFrom(c), c.Param("id"), role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountResponse{Identity: acct.Identity, Profile: acct.Profile})
}

// CreateCoach handles POST /v1/coaches.
//
// @Summary      Provision a coach
// @Tags         lifecycle
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCoachRequest  true  "Coach details"
// @Success      201   {object}  accountResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /v1/coaches [post]
func (h *LifecycleHandler) CreateCoach(c echo.Context) error {
	var req createCoachRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acct, err := h.service.CreateCoach(c.Request().Context(), actorFrom(c), domain.CoachInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, accountResponse{Identity: acct.Identity, Profile: acct.Profile})
}
