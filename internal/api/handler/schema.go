package handler

import (
	"time"

	"github.com/coachline/coaching-core/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// --- Request / Response types ---

type intakeRequest struct {
	Name            string   `json:"name"`
	Goal            string   `json:"goal"`
	Notes           string   `json:"notes"`
	Age             *int     `json:"age"`
	HeightCm        *float64 `json:"height_cm"`
	WeightKg        *float64 `json:"weight_kg"`
	AssignedCoachID *string  `json:"assigned_coach_id"`
}

type signUpRequest struct {
	Kind     string        `json:"kind"     validate:"required"`
	Email    string        `json:"email"    validate:"required"`
	Password string        `json:"password" validate:"required"`
	Intake   intakeRequest `json:"intake"`
}

func (r signUpRequest) toRegistration() domain.Registration {
	return domain.Registration{
		Kind:     domain.RegistrationKind(r.Kind),
		Email:    r.Email,
		Password: r.Password,
		Intake: domain.Intake{
			Name:            r.Intake.Name,
			Goal:            r.Intake.Goal,
			Notes:           r.Intake.Notes,
			Age:             r.Intake.Age,
			HeightCm:        r.Intake.HeightCm,
			WeightKg:        r.Intake.WeightKg,
			AssignedCoachID: r.Intake.AssignedCoachID,
		},
	}
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createCoachRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type updateLeadRequest struct {
	Name  *string `json:"name"`
	Goal  *string `json:"goal"`
	Notes *string `json:"notes"`
	Email *string `json:"email"`
}

type accountResponse struct {
	Identity domain.IdentityRecord `json:"identity"`
	Profile  *domain.ProfileRecord `json:"profile,omitempty"`
	Route    domain.Route          `json:"route,omitempty"`
}

type sessionResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	Identity  *domain.IdentityRecord `json:"identity"`
	Route     domain.Route           `json:"route"`
}

type landingResponse struct {
	Route domain.Route `json:"route"`
}

type roleDriftResponse struct {
	Mismatches []domain.RoleMismatch `json:"mismatches"`
	Count      int                   `json:"count"`
	Truncated  bool                  `json:"truncated"`
}
