package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/core/ports"
)

type AuthHandler struct {
	lifecycle ports.LifecycleService
	sessions  ports.SessionService
}

func NewAuthHandler(lifecycle ports.LifecycleService, sessions ports.SessionService) *AuthHandler {
	return &AuthHandler{lifecycle: lifecycle, sessions: sessions}
}

// SignUp registers a lead or client from the public intake forms.
//
// @Summary      Register through an intake form
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Intake kind, credentials and questionnaire"
// @Success      201   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acct, err := h.lifecycle.Register(c.Request().Context(), req.toRegistration())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, accountResponse{
		Identity: acct.Identity,
		Profile:  acct.Profile,
	})
}

// SignIn authenticates and returns a session token with the landing route.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, route, err := h.sessions.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Identity:  session.Identity,
		Route:     route,
	})
}

// Landing resolves where the signed-in caller should be sent.
//
// @Summary      Resolve landing route
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  landingResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me/landing [get]
func (h *AuthHandler) Landing(c echo.Context) error {
	route, err := h.lifecycle.Landing(c.Request().Context(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, landingResponse{Route: route})
}
