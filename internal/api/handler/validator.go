package handler

import (
	"github.com/coachline/coaching-core/internal/core/domain"
)

// echoValidator lets Echo call c.Validate(req) with the same rules and error type
// the domain uses.
type echoValidator struct{}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	return domain.ValidateStruct(i)
}
