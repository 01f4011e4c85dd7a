// Package authz is the authorization gate consulted before every privileged
// lifecycle transition.
//
// The gate reads only the identity store's role tag. It deliberately does not look at
// the profile row's status: a coach whose profile is missing or inactive still passes.
// Drift between the two stores is caught by the consistency checker instead of on the
// hot path.
package authz

import (
	"fmt"

	"github.com/coachline/coaching-core/internal/core/domain"
)

// HasCoachAccess reports whether identity carries the coach role.
func HasCoachAccess(identity *domain.IdentityRecord) bool {
	return identity != nil && identity.Role == domain.RoleCoach
}

// RequireRole fails with ErrUnauthorized when there is no identity and ErrForbidden
// when the identity's role differs from role.
func RequireRole(identity *domain.IdentityRecord, role domain.Role) error {
	if identity == nil {
		return domain.ErrUnauthorized
	}
	if identity.Role != role {
		return fmt.Errorf("%w: requires %s role", domain.ErrForbidden, role)
	}
	return nil
}

// RequireCoach is RequireRole for the coach role.
func RequireCoach(identity *domain.IdentityRecord) error {
	return RequireRole(identity, domain.RoleCoach)
}
