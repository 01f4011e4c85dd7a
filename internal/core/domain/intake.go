package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegistrationKind selects the sign-up entry path.
type RegistrationKind string

const (
	KindLeadIntake   RegistrationKind = "lead-intake"
	KindClientIntake RegistrationKind = "client-intake"
)

// Role returns the role an identity receives when registering through kind.
func (k RegistrationKind) Role() Role {
	if k == KindLeadIntake {
		return RoleLead
	}
	return RoleClient
}

// Intake holds the questionnaire answers collected at sign-up.
type Intake struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Goal            string   `json:"goal" validate:"max=2000"`
	Notes           string   `json:"notes" validate:"max=4000"`
	Age             *int     `json:"age" validate:"omitempty,gte=10,lte=120"`
	HeightCm        *float64 `json:"height_cm" validate:"omitempty,gt=0,lte=300"`
	WeightKg        *float64 `json:"weight_kg" validate:"omitempty,gt=0,lte=500"`
	AssignedCoachID *string  `json:"assigned_coach_id" validate:"omitempty,uuid"`
}

// Registration is the input to the register transition.
type Registration struct {
	Kind     RegistrationKind `json:"kind" validate:"required,oneof=lead-intake client-intake"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required"`
	Intake   Intake           `json:"intake"`
}

// Validate checks the registration without touching any store.
func (r Registration) Validate() error {
	if err := ValidateStruct(r); err != nil {
		return err
	}
	if r.Kind == KindLeadIntake && strings.TrimSpace(r.Intake.Goal) == "" {
		return &ValidationError{Field: "goal", Reason: "is required for lead intake"}
	}
	return nil
}

// CoachInput is the input to the create-coach transition.
type CoachInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the coach input without touching any store.
func (c CoachInput) Validate() error {
	return ValidateStruct(c)
}

// LeadProfileFields are the lead metadata fields a coach may edit.
type LeadProfileFields struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Goal  *string `json:"goal" validate:"omitempty,max=2000"`
	Notes *string `json:"notes" validate:"omitempty,max=4000"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// Validate rejects malformed or empty edits.
func (f LeadProfileFields) Validate() error {
	if f.Name == nil && f.Goal == nil && f.Notes == nil && f.Email == nil {
		return &ValidationError{Reason: "at least one field is required"}
	}
	return ValidateStruct(f)
}

// Patch converts the edit into an identity metadata patch.
func (f LeadProfileFields) Patch() MetadataPatch {
	p := MetadataPatch{Name: f.Name, Goal: f.Goal, Notes: f.Notes}
	if f.Email != nil {
		p.Email = Ptr(NormalizeEmail(*f.Email))
	}
	return p
}

var validate = newValidator()

// newValidator reports fields by their json name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct runs struct-tag validation and reports the first failure as a
// *ValidationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fieldError(ve[0])
	}
	return &ValidationError{Reason: err.Error()}
}

// fieldError converts a single validator.FieldError into a ValidationError.
func fieldError(fe validator.FieldError) *ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "is required"}
	case "email":
		return &ValidationError{Field: field, Reason: "must be a valid email"}
	case "uuid":
		return &ValidationError{Field: field, Reason: "must be a valid id"}
	case "gt", "gte":
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least %s", fe.Param())}
	case "lte", "max":
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %s", fe.Param())}
	case "min":
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least %s characters", fe.Param())}
	case "oneof":
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be one of: %s", fe.Param())}
	default:
		return &ValidationError{Field: field, Reason: fmt.Sprintf("failed validation (%s)", fe.Tag())}
	}
}
